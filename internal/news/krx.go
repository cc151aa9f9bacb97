package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
)

// KRXSource scrapes a domestic market news listing page. The upstream page
// carries no publisher field, so the publisher is derived from each article
// URL's hostname. Bodies are not present in the listing; the pipeline fills
// them in through the content extractor.
type KRXSource struct {
	listURL    string
	httpClient *http.Client
}

func NewKRXSource(listURL string) *KRXSource {
	return &KRXSource{
		listURL:    listURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *KRXSource) Name() string { return "krx" }

func (s *KRXSource) Category() models.Category { return models.CategoryDomestic }

func (s *KRXSource) Fetch(ctx context.Context) ([]RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("krx feed request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; panzee-news/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("krx feed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("krx feed returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("krx feed parse: %w", err)
	}

	base, err := url.Parse(s.listURL)
	if err != nil {
		return nil, fmt.Errorf("krx feed url: %w", err)
	}

	var articles []RawArticle
	doc.Find("ul.newsList li").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)

		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		thumbnail, _ := sel.Find("img").First().Attr("src")
		summary := strings.TrimSpace(sel.Find(".articleSummary").Clone().Children().Remove().End().Text())

		publishedAt := parseKoreanTimestamp(strings.TrimSpace(sel.Find(".wdate").Text()))

		articles = append(articles, RawArticle{
			ExternalID:  abs.String(),
			Title:       title,
			Summary:     summary,
			URL:         abs.String(),
			Thumbnail:   thumbnail,
			Publisher:   publisherFromHost(abs.Hostname()),
			PublishedAt: publishedAt,
			Category:    models.CategoryDomestic,
		})
	})

	return articles, nil
}

// publisherFromHost turns "news.example.co.kr" into "example".
func publisherFromHost(host string) string {
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "news.")
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}

func parseKoreanTimestamp(s string) time.Time {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.UTC
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006.01.02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
