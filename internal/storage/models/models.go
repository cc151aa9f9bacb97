package models

import "time"

type Category string

const (
	CategoryDomestic      Category = "domestic"
	CategoryInternational Category = "international"
	CategoryCrypto        Category = "crypto"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryDomestic, CategoryInternational, CategoryCrypto:
		return true
	}
	return false
}

// Article is one ingested news item. SourceLink is the natural key; an
// article with an already seen link is never re-ingested.
type Article struct {
	ID              int64
	Category        Category
	Title           string
	TranslatedTitle string
	Body            string
	ThumbnailURL    string
	SourceLink      string
	Publisher       string
	PublishedAt     time.Time
	CreatedAt       time.Time
}

// Analysis is the AI-generated companion of an Article. It is written in the
// same transaction as its article and never exists without it.
type Analysis struct {
	ID              int64
	ArticleID       int64
	SentimentScore  int // 1..5
	PositiveFactors []string
	NegativeFactors []string
	Summary         string
	BriefSummary    string
	Tags            []string
	CommunityScore  *float64 // owned by the community subsystem
	CreatedAt       time.Time
}
