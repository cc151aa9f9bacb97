package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
)

func TestUSStockFetchMapsAndFilters(t *testing.T) {
	payload := []map[string]any{
		{
			"id":       int64(42),
			"headline": "Apple Announces New Chip",
			"summary":  "Apple unveiled its next-generation silicon.",
			"url":      "https://example.com/apple-chip",
			"image":    "https://example.com/thumb.jpg",
			"source":   "TechWire",
			"datetime": int64(1700000000),
			"related":  "AAPL,FOO",
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	lister := &fakeLister{symbols: []string{"AAPL"}}
	cache := NewSymbolCache(lister, time.Hour)
	source := NewUSStockSource(srv.URL, "test-key", cache, 10)

	articles, err := source.Fetch(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(articles))

	a := articles[0]
	assert.Equal(t, "42", a.ExternalID)
	assert.Equal(t, "Apple Announces New Chip", a.Title)
	assert.Equal(t, "https://example.com/apple-chip", a.URL)
	assert.Equal(t, "TechWire", a.Publisher)
	assert.Equal(t, models.CategoryInternational, a.Category)
	// FOO is not tracked, so only AAPL survives the intersection
	assert.Equal(t, []string{"AAPL"}, a.Symbols)
	assert.Equal(t, time.Unix(1700000000, 0), a.PublishedAt)
}

func TestUSStockFetchDeduplicatesByURL(t *testing.T) {
	payload := []map[string]any{
		{"id": int64(1), "headline": "Shared story", "url": "https://example.com/shared", "datetime": int64(1700000000), "related": "AAPL,MSFT"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	lister := &fakeLister{symbols: []string{"AAPL", "MSFT"}}
	cache := NewSymbolCache(lister, time.Hour)
	source := NewUSStockSource(srv.URL, "test-key", cache, 10)

	// both tickers return the same story; it must appear once
	articles, err := source.Fetch(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(articles))
	assert.Equal(t, []string{"AAPL", "MSFT"}, articles[0].Symbols)
}
