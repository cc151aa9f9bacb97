package vector

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrDimensionMismatch is returned when a record's embedding does not match
// the store's configured dimension. Fatal for that record only.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Record is the unit stored in a vector store. ID is normally the article's
// source link; upserting an existing ID replaces vector and metadata.
type Record struct {
	ID        string
	Embedding []float32
	Meta      Metadata
}

type Metadata struct {
	PublishedAt time.Time
	Title       string
	Summary     string
	SourceLink  string
}

// Result is a search hit. Score is a similarity where higher is more similar,
// regardless of the backend's native distance metric.
type Result struct {
	Record Record
	Score  float64
}

// Store persists (id, vector, metadata) records and answers top-K similarity
// queries. Implementations: localstore (file-backed brute force) and pgstore
// (postgres + pgvector).
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	// Search returns up to topK results sorted by descending similarity.
	// Results scoring below minScore are excluded; minScore <= 0 disables
	// the floor.
	Search(ctx context.Context, query []float32, topK int, minScore float64) ([]Result, error)
	// Export returns every stored record, for backups.
	Export(ctx context.Context) ([]Record, error)
}

// Cosine returns dot(a,b) / (|a|*|b|), or 0 when either norm is zero.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
