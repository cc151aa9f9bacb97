package news

import (
	"context"
	"time"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
)

// RawArticle is the canonical feed item shape every adapter maps into.
// Body may be empty; the pipeline runs the content extractor then.
type RawArticle struct {
	ExternalID  string
	Title       string
	Summary     string
	Body        string
	URL         string
	Thumbnail   string
	Publisher   string
	PublishedAt time.Time
	Symbols     []string
	Category    models.Category
}

// Source fetches a provider feed and maps it into RawArticles already
// filtered to the instruments the platform tracks.
type Source interface {
	Name() string
	Category() models.Category
	Fetch(ctx context.Context) ([]RawArticle, error)
}

// SymbolLister is the known-instrument lookup adapters filter against.
type SymbolLister interface {
	ListTrackedSymbols(ctx context.Context, category models.Category) ([]string, error)
}

// intersectSymbols returns the article symbols present in tracked, preserving
// article order.
func intersectSymbols(articleSymbols []string, tracked map[string]bool) []string {
	var out []string
	for _, s := range articleSymbols {
		if tracked[s] {
			out = append(out, s)
		}
	}
	return out
}
