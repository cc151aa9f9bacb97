package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

const (
	// Tier 1 output below this length falls through to the next tier.
	minReadableLength = 200
	// Tier 2 output below this length falls through to the browser tier.
	minSelectorLength = 50
)

// Extractor pulls the full article text out of an arbitrary web page. Three
// tiers are tried in order, each heavier than the last: a plain fetch run
// through a readability parser, a per-domain CSS selector, and finally a full
// headless-browser render. The first acceptable result wins; tier errors are
// swallowed and treated as "no result".
type Extractor struct {
	client    *http.Client
	userAgent string
	selectors map[string]string

	// tier hooks, replaceable in tests
	fetchReadable  func(ctx context.Context, pageURL string) (string, error)
	fetchSelector  func(ctx context.Context, pageURL, selector string) (string, error)
	renderBrowser  func(ctx context.Context, pageURL string) (string, error)
	browserTimeout time.Duration
}

func New(fetchTimeout, browserTimeout time.Duration, userAgent string) *Extractor {
	e := &Extractor{
		client:         &http.Client{Timeout: fetchTimeout},
		userAgent:      userAgent,
		selectors:      defaultSelectors(),
		browserTimeout: browserTimeout,
	}
	e.fetchReadable = e.readableFetch
	e.fetchSelector = e.selectorFetch
	e.renderBrowser = e.browserRender
	return e
}

// Extract returns the best-effort article text for pageURL, or "" when every
// tier comes up empty. It never returns an error for tier failures.
func (e *Extractor) Extract(ctx context.Context, pageURL string) string {
	if text, err := e.fetchReadable(ctx, pageURL); err == nil && len(text) >= minReadableLength {
		return text
	} else if err != nil {
		logger.Debug("readable fetch failed", zap.String("url", pageURL), zap.Error(err))
	}

	if selector, ok := e.selectorFor(pageURL); ok {
		if text, err := e.fetchSelector(ctx, pageURL, selector); err == nil && len(text) > minSelectorLength {
			return text
		} else if err != nil {
			logger.Debug("selector fetch failed", zap.String("url", pageURL), zap.Error(err))
		}
	}

	text, err := e.renderBrowser(ctx, pageURL)
	if err != nil {
		logger.Warn("browser render failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	return text
}

func (e *Extractor) selectorFor(pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	selector, ok := e.selectors[host]
	return selector, ok
}

// readableFetch is tier 1: plain GET plus readability main-content parse.
func (e *Extractor) readableFetch(ctx context.Context, pageURL string) (string, error) {
	body, err := e.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	article, err := readability.FromReader(body, parsed)
	if err != nil {
		return "", fmt.Errorf("readability parse failed: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// selectorFetch is tier 2: GET plus a known per-domain CSS selector.
func (e *Extractor) selectorFetch(ctx context.Context, pageURL, selector string) (string, error) {
	body, err := e.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("html parse failed: %w", err)
	}

	text := strings.TrimSpace(doc.Find(selector).Text())
	return collapseWhitespace(text), nil
}

func (e *Extractor) get(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
