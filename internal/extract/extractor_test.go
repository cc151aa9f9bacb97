package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func newStubExtractor() *Extractor {
	return New(time.Second, time.Second, "test-agent")
}

func TestTierOneAcceptedWhenLongEnough(t *testing.T) {
	e := newStubExtractor()
	long := strings.Repeat("a", minReadableLength)

	selectorCalls, browserCalls := 0, 0
	e.fetchReadable = func(ctx context.Context, url string) (string, error) { return long, nil }
	e.fetchSelector = func(ctx context.Context, url, sel string) (string, error) {
		selectorCalls++
		return "", nil
	}
	e.renderBrowser = func(ctx context.Context, url string) (string, error) {
		browserCalls++
		return "", nil
	}

	got := e.Extract(context.Background(), "https://finance.naver.com/article/1")
	assert.Equal(t, long, got)
	assert.Equal(t, 0, selectorCalls)
	assert.Equal(t, 0, browserCalls)
}

// A page that fails tier 1's length threshold but has a known domain selector
// must resolve at tier 2 without ever touching the browser.
func TestTierTwoShortCircuitsBrowser(t *testing.T) {
	e := newStubExtractor()

	browserCalls := 0
	e.fetchReadable = func(ctx context.Context, url string) (string, error) {
		return "too short", nil
	}
	e.fetchSelector = func(ctx context.Context, url, sel string) (string, error) {
		assert.Equal(t, "#news_read", sel)
		return strings.Repeat("b", minSelectorLength+1), nil
	}
	e.renderBrowser = func(ctx context.Context, url string) (string, error) {
		browserCalls++
		return "browser text", nil
	}

	got := e.Extract(context.Background(), "https://finance.naver.com/article/2")
	assert.Equal(t, strings.Repeat("b", minSelectorLength+1), got)
	assert.Equal(t, 0, browserCalls)
}

func TestBrowserTierIsLastResort(t *testing.T) {
	e := newStubExtractor()

	e.fetchReadable = func(ctx context.Context, url string) (string, error) {
		return "", errors.New("network down")
	}
	e.renderBrowser = func(ctx context.Context, url string) (string, error) {
		return "rendered article body", nil
	}

	// unknown domain: no selector tier, straight to the browser
	got := e.Extract(context.Background(), "https://unknown.example.com/article")
	assert.Equal(t, "rendered article body", got)
}

func TestAllTiersFailingYieldsEmpty(t *testing.T) {
	e := newStubExtractor()

	e.fetchReadable = func(ctx context.Context, url string) (string, error) {
		return "", errors.New("boom")
	}
	e.fetchSelector = func(ctx context.Context, url, sel string) (string, error) {
		return "", errors.New("boom")
	}
	e.renderBrowser = func(ctx context.Context, url string) (string, error) {
		return "", errors.New("boom")
	}

	assert.Equal(t, "", e.Extract(context.Background(), "https://finance.naver.com/article/3"))
}

func TestShortSelectorResultFallsThrough(t *testing.T) {
	e := newStubExtractor()

	e.fetchReadable = func(ctx context.Context, url string) (string, error) { return "", nil }
	e.fetchSelector = func(ctx context.Context, url, sel string) (string, error) {
		return "tiny", nil
	}
	e.renderBrowser = func(ctx context.Context, url string) (string, error) {
		return "full rendered text", nil
	}

	got := e.Extract(context.Background(), "https://finance.naver.com/article/4")
	assert.Equal(t, "full rendered text", got)
}

func TestSelectorForStripsWWW(t *testing.T) {
	e := newStubExtractor()
	e.RegisterSelector("example.co.kr", ".article")

	sel, ok := e.selectorFor("https://www.example.co.kr/news/1")
	assert.Equal(t, true, ok)
	assert.Equal(t, ".article", sel)

	_, ok = e.selectorFor("https://other.example.org/news/1")
	assert.Equal(t, false, ok)
}
