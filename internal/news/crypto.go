package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
)

// CryptoSource reads a crypto news JSON feed. The feed carries full article
// bodies, so the pipeline rarely needs the content extractor for this source.
type CryptoSource struct {
	feedURL    string
	httpClient *http.Client
	symbols    *SymbolCache
}

func NewCryptoSource(feedURL string, symbols *SymbolCache) *CryptoSource {
	return &CryptoSource{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		symbols:    symbols,
	}
}

func (s *CryptoSource) Name() string { return "crypto" }

func (s *CryptoSource) Category() models.Category { return models.CategoryCrypto }

func (s *CryptoSource) Fetch(ctx context.Context) ([]RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto feed request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crypto feed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crypto feed returned status %d", resp.StatusCode)
	}

	var raw cryptoFeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("crypto feed decode: %w", err)
	}

	tracked, err := s.symbols.GetOrRefresh(ctx, models.CategoryCrypto)
	if err != nil {
		return nil, fmt.Errorf("crypto symbol lookup: %w", err)
	}

	articles := make([]RawArticle, 0, len(raw.Items))
	for _, item := range raw.Items {
		publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
		if err != nil {
			publishedAt = time.Time{}
		}

		symbols := intersectSymbols(item.Assets, tracked)
		if len(symbols) == 0 {
			continue
		}

		articles = append(articles, RawArticle{
			ExternalID:  item.ID,
			Title:       item.Title,
			Summary:     item.Subtitle,
			Body:        item.Content,
			URL:         item.URL,
			Thumbnail:   item.ThumbnailURL,
			Publisher:   item.Publisher,
			PublishedAt: publishedAt,
			Symbols:     symbols,
			Category:    models.CategoryCrypto,
		})
	}
	return articles, nil
}

type cryptoFeedResponse struct {
	Items []cryptoFeedItem `json:"items"`
}

type cryptoFeedItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle"`
	Content      string   `json:"content"`
	URL          string   `json:"url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Publisher    string   `json:"publisher"`
	PublishedAt  string   `json:"published_at"`
	Assets       []string `json:"assets"`
}
