package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
)

// USStockSource fetches company news for the tracked US tickers from a
// Finnhub-style API. Tickers are requested in chunks with a short sleep
// between chunks to stay inside the provider's rate limit.
type USStockSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	symbols    *SymbolCache
	chunkSize  int
	chunkDelay time.Duration
}

func NewUSStockSource(baseURL, apiKey string, symbols *SymbolCache, chunkSize int) *USStockSource {
	if chunkSize <= 0 {
		chunkSize = 10
	}
	return &USStockSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		symbols:    symbols,
		chunkSize:  chunkSize,
		chunkDelay: time.Second,
	}
}

func (s *USStockSource) Name() string { return "usstock" }

func (s *USStockSource) Category() models.Category { return models.CategoryInternational }

func (s *USStockSource) Fetch(ctx context.Context) ([]RawArticle, error) {
	tracked, err := s.symbols.GetOrRefresh(ctx, models.CategoryInternational)
	if err != nil {
		return nil, fmt.Errorf("usstock symbol lookup: %w", err)
	}

	tickers := make([]string, 0, len(tracked))
	for t := range tracked {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	seen := make(map[string]bool)
	var articles []RawArticle

	for i := 0; i < len(tickers); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(tickers) {
			end = len(tickers)
		}

		for _, ticker := range tickers[i:end] {
			items, err := s.fetchCompanyNews(ctx, ticker)
			if err != nil {
				return nil, fmt.Errorf("usstock fetch for %s: %w", ticker, err)
			}

			for _, item := range items {
				if item.URL == "" || seen[item.URL] {
					continue
				}
				seen[item.URL] = true

				symbols := intersectSymbols(item.relatedSymbols(), tracked)
				if len(symbols) == 0 {
					symbols = []string{ticker}
				}

				articles = append(articles, RawArticle{
					ExternalID:  fmt.Sprintf("%d", item.ID),
					Title:       item.Headline,
					Summary:     item.Summary,
					URL:         item.URL,
					Thumbnail:   item.Image,
					Publisher:   item.Source,
					PublishedAt: time.Unix(item.Datetime, 0),
					Symbols:     symbols,
					Category:    models.CategoryInternational,
				})
			}
		}

		if end < len(tickers) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.chunkDelay):
			}
		}
	}
	return articles, nil
}

func (s *USStockSource) fetchCompanyNews(ctx context.Context, ticker string) ([]usNewsItem, error) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	endpoint := fmt.Sprintf("%s/company-news?symbol=%s&from=%s&to=%s&token=%s",
		s.baseURL, url.QueryEscape(ticker),
		from.Format("2006-01-02"), to.Format("2006-01-02"), s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var items []usNewsItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return items, nil
}

type usNewsItem struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Image    string `json:"image"`
	Source   string `json:"source"`
	Datetime int64  `json:"datetime"`
	Related  string `json:"related"`
}

func (i usNewsItem) relatedSymbols() []string {
	if i.Related == "" {
		return nil
	}
	return strings.Split(i.Related, ",")
}
