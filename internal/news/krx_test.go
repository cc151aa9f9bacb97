package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
)

const krxListingHTML = `<!DOCTYPE html>
<html><body>
<ul class="newsList">
  <li>
    <a href="https://news.hankyung.example.com/article/202601011234">코스피, 외국인 매수에 상승 마감</a>
    <img src="/thumb/1.jpg">
    <p class="articleSummary">외국인 순매수가 이어지며 지수가 올랐다.<span class="press">한국경제</span></p>
    <span class="wdate">2026-01-01 15:40:00</span>
  </li>
  <li>
    <a href="/relative/article/5678">반도체주 강세</a>
    <span class="wdate">2026.01.01 16:02</span>
  </li>
  <li>
    <a>제목 없는 항목</a>
  </li>
</ul>
</body></html>`

func TestKRXFetchParsesListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(krxListingHTML))
	}))
	defer srv.Close()

	source := NewKRXSource(srv.URL + "/news/list")
	articles, err := source.Fetch(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(articles))

	first := articles[0]
	assert.Equal(t, "코스피, 외국인 매수에 상승 마감", first.Title)
	assert.Equal(t, "https://news.hankyung.example.com/article/202601011234", first.URL)
	assert.Equal(t, "외국인 순매수가 이어지며 지수가 올랐다.", first.Summary)
	assert.Equal(t, "hankyung", first.Publisher)
	assert.Equal(t, models.CategoryDomestic, first.Category)
	assert.Equal(t, 2026, first.PublishedAt.Year())

	// relative hrefs resolve against the listing URL
	second := articles[1]
	assert.Equal(t, srv.URL+"/relative/article/5678", second.URL)
	assert.Equal(t, 16, second.PublishedAt.Hour())
}

func TestKRXFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	source := NewKRXSource(srv.URL)
	_, err := source.Fetch(context.Background())
	if err == nil {
		t.Fatal("want error on non-200 feed response")
	}
}

func TestPublisherFromHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"news.hankyung.com", "hankyung"},
		{"www.mk.co.kr", "mk"},
		{"edaily.co.kr", "edaily"},
		{"localhost", "localhost"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, publisherFromHost(tt.host))
	}
}
