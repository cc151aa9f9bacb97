package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
)

const cryptoFeedJSON = `{
	"items": [
		{
			"id": "n-1",
			"title": "Bitcoin breaks new high",
			"subtitle": "Institutional demand keeps climbing",
			"content": "Full body of the bitcoin story.",
			"url": "https://example.com/btc-high",
			"thumbnail_url": "https://example.com/btc.jpg",
			"publisher": "CoinWire",
			"published_at": "2026-08-29T09:30:00Z",
			"assets": ["BTC", "DOGE"]
		},
		{
			"id": "n-2",
			"title": "Obscure token rallies",
			"url": "https://example.com/obscure",
			"published_at": "2026-08-29T10:00:00Z",
			"assets": ["OBSCURE"]
		}
	]
}`

func TestCryptoFetchFiltersToTrackedAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cryptoFeedJSON))
	}))
	defer srv.Close()

	lister := &fakeLister{symbols: []string{"BTC", "ETH"}}
	source := NewCryptoSource(srv.URL, NewSymbolCache(lister, time.Hour))

	articles, err := source.Fetch(context.Background())
	assert.Equal(t, nil, err)

	// the OBSCURE-only item carries no tracked asset and is dropped
	assert.Equal(t, 1, len(articles))

	a := articles[0]
	assert.Equal(t, "n-1", a.ExternalID)
	assert.Equal(t, "Bitcoin breaks new high", a.Title)
	assert.Equal(t, "Institutional demand keeps climbing", a.Summary)
	assert.Equal(t, "Full body of the bitcoin story.", a.Body)
	assert.Equal(t, "CoinWire", a.Publisher)
	assert.Equal(t, models.CategoryCrypto, a.Category)
	assert.Equal(t, []string{"BTC"}, a.Symbols)
	assert.Equal(t, time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC), a.PublishedAt.UTC())
}

func TestCryptoFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	lister := &fakeLister{symbols: []string{"BTC"}}
	source := NewCryptoSource(srv.URL, NewSymbolCache(lister, time.Hour))

	_, err := source.Fetch(context.Background())
	if err == nil {
		t.Fatal("want error on non-200 feed response")
	}
}
