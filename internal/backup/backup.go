package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector"
)

// Service dumps the whole vector corpus to a timestamped JSON file. It is
// invoked fire-and-forget after scheduled ingestion batches; the caller logs
// and drops any error.
type Service struct {
	store vector.Store
	dir   string
}

func New(store vector.Store, dir string) *Service {
	return &Service{store: store, dir: dir}
}

type dumpRecord struct {
	ID          string    `json:"id"`
	Embedding   []float32 `json:"embedding"`
	PublishedAt time.Time `json:"published_at"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	SourceLink  string    `json:"source_link"`
}

// Run exports every record and writes it under the backup directory. Returns
// the path of the written dump.
func (s *Service) Run(ctx context.Context) (string, error) {
	records, err := s.store.Export(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to export vectors: %w", err)
	}

	dump := make([]dumpRecord, 0, len(records))
	for _, rec := range records {
		dump = append(dump, dumpRecord{
			ID:          rec.ID,
			Embedding:   rec.Embedding,
			PublishedAt: rec.Meta.PublishedAt,
			Title:       rec.Meta.Title,
			Summary:     rec.Meta.Summary,
			SourceLink:  rec.Meta.SourceLink,
		})
	}

	data, err := json.Marshal(dump)
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("vectors-%s.json", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	return path, nil
}
