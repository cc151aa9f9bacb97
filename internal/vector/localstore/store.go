package localstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

// Store is a file-backed brute-force similarity store. Every operation
// reloads the file and every write rewrites it whole, so the previous version
// stays intact until the replacement rename lands. The mutex serializes
// writers within one process; concurrent processes are last-writer-wins.
type Store struct {
	mu   sync.Mutex
	path string
	dim  int
}

func New(path string, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{path: path, dim: dimension}, nil
}

func (s *Store) Upsert(ctx context.Context, rec vector.Record) error {
	if len(rec.Embedding) != s.dim {
		return fmt.Errorf("record %q has %d dims, store expects %d: %w",
			rec.ID, len(rec.Embedding), s.dim, vector.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()

	replaced := false
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}

	return s.save(records)
}

func (s *Store) Search(ctx context.Context, query []float32, topK int, minScore float64) ([]vector.Result, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("query has %d dims, store expects %d: %w",
			len(query), s.dim, vector.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 3
	}

	s.mu.Lock()
	records := s.load()
	s.mu.Unlock()

	results := make([]vector.Result, 0, len(records))
	for _, rec := range records {
		score := vector.Cosine(query, rec.Embedding)
		if minScore > 0 && score < minScore {
			continue
		}
		results = append(results, vector.Result{Record: rec, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) Export(ctx context.Context) ([]vector.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// load deserializes the store file. A missing or unreadable file yields an
// empty store, never an error.
func (s *Store) load() []vector.Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read vector store file, starting empty",
				zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}

	records, err := decodeRecords(data, s.dim)
	if err != nil {
		logger.Warn("vector store file is corrupt, starting empty",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}
	return records
}

// save rewrites the whole file through a temp file + rename so a crash mid
// write leaves the previous version readable.
func (s *Store) save(records []vector.Record) error {
	data := encodeRecords(records, s.dim)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write vector store temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace vector store file: %w", err)
	}
	return nil
}
