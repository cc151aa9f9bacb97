package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

// Store keeps embeddings in a postgres vector column and pushes the distance
// computation into the pgvector extension. Each upsert is one atomic
// statement, so unlike the local file backend there is no lost-update window
// between concurrent writers.
type Store struct {
	db  *sql.DB
	dim int
}

func New(dsn string, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("pgvector store initialized", zap.Int("dimension", dimension))

	return &Store{db: db, dim: dimension}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS news_vectors (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			published_at TIMESTAMPTZ NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			source_link TEXT NOT NULL DEFAULT ''
		)`, s.dim)
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create news_vectors table: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, rec vector.Record) error {
	if len(rec.Embedding) != s.dim {
		return fmt.Errorf("record %q has %d dims, store expects %d: %w",
			rec.ID, len(rec.Embedding), s.dim, vector.ErrDimensionMismatch)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO news_vectors (id, embedding, published_at, title, summary, source_link)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			published_at = EXCLUDED.published_at,
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			source_link = EXCLUDED.source_link`,
		rec.ID, pgvector.NewVector(rec.Embedding), rec.Meta.PublishedAt,
		rec.Meta.Title, rec.Meta.Summary, rec.Meta.SourceLink,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vector %q: %w", rec.ID, err)
	}
	return nil
}

// searchQuery builds the ranked-search statement. The similarity floor only
// applies when minScore is positive, per the Store contract.
func searchQuery(minScore float64) string {
	q := `
		SELECT id, embedding, published_at, title, summary, source_link,
		       1 - (embedding <=> $1) AS score
		FROM news_vectors`
	if minScore > 0 {
		q += `
		WHERE 1 - (embedding <=> $1) >= $3`
	}
	return q + `
		ORDER BY embedding <=> $1
		LIMIT $2`
}

// Search orders by the native cosine distance operator ascending and reports
// similarity as 1 - distance so that higher means more similar.
func (s *Store) Search(ctx context.Context, query []float32, topK int, minScore float64) ([]vector.Result, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("query has %d dims, store expects %d: %w",
			len(query), s.dim, vector.ErrDimensionMismatch)
	}
	if topK <= 0 {
		topK = 3
	}

	args := []any{pgvector.NewVector(query), topK}
	if minScore > 0 {
		args = append(args, minScore)
	}

	rows, err := s.db.QueryContext(ctx, searchQuery(minScore), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var (
			res         vector.Result
			embedding   pgvector.Vector
			publishedAt time.Time
		)
		err := rows.Scan(&res.Record.ID, &embedding, &publishedAt,
			&res.Record.Meta.Title, &res.Record.Meta.Summary,
			&res.Record.Meta.SourceLink, &res.Score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		res.Record.Embedding = embedding.Slice()
		res.Record.Meta.PublishedAt = publishedAt
		results = append(results, res)
	}
	return results, rows.Err()
}

func (s *Store) Export(ctx context.Context) ([]vector.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, embedding, published_at, title, summary, source_link
		FROM news_vectors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to export vectors: %w", err)
	}
	defer rows.Close()

	var records []vector.Record
	for rows.Next() {
		var (
			rec         vector.Record
			embedding   pgvector.Vector
			publishedAt time.Time
		)
		err := rows.Scan(&rec.ID, &embedding, &publishedAt,
			&rec.Meta.Title, &rec.Meta.Summary, &rec.Meta.SourceLink)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}
		rec.Embedding = embedding.Slice()
		rec.Meta.PublishedAt = publishedAt
		records = append(records, rec)
	}
	return records, rows.Err()
}
