package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/llm"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/news"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector/localstore"
)

type fakeSource struct {
	name     string
	category models.Category
	items    []news.RawArticle
	err      error
}

func (s *fakeSource) Name() string              { return s.name }
func (s *fakeSource) Category() models.Category { return s.category }
func (s *fakeSource) Fetch(ctx context.Context) ([]news.RawArticle, error) {
	return s.items, s.err
}

type memStore struct {
	links        map[string]bool
	creates      int
	lastAnalysis *models.Analysis
}

func newMemStore() *memStore { return &memStore{links: make(map[string]bool)} }

func (m *memStore) ExistsByLink(ctx context.Context, link string) (bool, error) {
	return m.links[link], nil
}

func (m *memStore) CreateArticleWithAnalysis(ctx context.Context, article *models.Article, analysis *models.Analysis) (int64, error) {
	m.links[article.SourceLink] = true
	m.creates++
	m.lastAnalysis = analysis
	return int64(m.creates), nil
}

type fakeAnalyzer struct {
	errByTitle map[string]error
	calls      int
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, title, body string, publishedAt time.Time) (*llm.Analysis, error) {
	a.calls++
	if err, ok := a.errByTitle[title]; ok {
		return nil, err
	}
	return &llm.Analysis{
		Summary:         "요약: " + title,
		BriefSummary:    title,
		TranslatedTitle: title,
		SentimentScore:  3,
		Tags:            []string{"BTC"},
	}, nil
}

type fakeEmbedder struct{ calls int }

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{1, 0, 0}, nil
}

type fakeExtractor struct{ body string }

func (e *fakeExtractor) Extract(ctx context.Context, url string) string { return e.body }

type staticLister struct {
	symbols []string
	err     error
}

func (l *staticLister) ListTrackedSymbols(ctx context.Context, category models.Category) ([]string, error) {
	return l.symbols, l.err
}

func item(url, title string) news.RawArticle {
	return news.RawArticle{
		ExternalID:  url,
		Title:       title,
		URL:         url,
		Body:        "full article body for " + title,
		Publisher:   "tester",
		PublishedAt: time.Unix(1700000000, 0),
		Category:    models.CategoryCrypto,
	}
}

func newTestPipeline(t *testing.T, source news.Source, store *memStore, analyzer *fakeAnalyzer, embedder *fakeEmbedder) (*Pipeline, vector.Store) {
	t.Helper()
	vectors, err := localstore.New(filepath.Join(t.TempDir(), "vectors.bin"), 3)
	if err != nil {
		t.Fatalf("failed to create vector store: %v", err)
	}
	symbols := news.NewSymbolCache(&staticLister{symbols: []string{"BTC"}}, time.Hour)
	return NewPipeline(
		[]news.Source{source}, store, analyzer, embedder,
		&fakeExtractor{}, vectors, symbols, nil,
	), vectors
}

func TestTagFilterFailureDropsTags(t *testing.T) {
	source := &fakeSource{name: "crypto", category: models.CategoryCrypto,
		items: []news.RawArticle{item("https://example.com/a", "비트코인 상승")}}
	store := newMemStore()

	vectors, err := localstore.New(filepath.Join(t.TempDir(), "vectors.bin"), 3)
	assert.Equal(t, nil, err)
	// the lister fails and nothing is cached, so the tracked set is unknown
	symbols := news.NewSymbolCache(&staticLister{err: errors.New("db down")}, time.Hour)
	p := NewPipeline([]news.Source{source}, store, &fakeAnalyzer{}, &fakeEmbedder{},
		&fakeExtractor{}, vectors, symbols, nil)

	assert.Equal(t, nil, p.RunSource(context.Background(), "crypto"))

	// the article still lands, but with no unverified tags attached
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 0, len(store.lastAnalysis.Tags))
}

func TestRunSourceIngestsAndIndexes(t *testing.T) {
	source := &fakeSource{name: "crypto", category: models.CategoryCrypto,
		items: []news.RawArticle{item("https://example.com/a", "비트코인 상승")}}
	store := newMemStore()
	p, vectors := newTestPipeline(t, source, store, &fakeAnalyzer{}, &fakeEmbedder{})

	err := p.RunSource(context.Background(), "crypto")
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, store.creates)

	records, err := vectors.Export(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(records))
	assert.Equal(t, "https://example.com/a", records[0].ID)
	assert.Equal(t, "https://example.com/a", records[0].Meta.SourceLink)
}

func TestRunSourceIsIdempotent(t *testing.T) {
	source := &fakeSource{name: "crypto", category: models.CategoryCrypto,
		items: []news.RawArticle{item("https://example.com/a", "비트코인 상승")}}
	store := newMemStore()
	analyzer := &fakeAnalyzer{}
	p, vectors := newTestPipeline(t, source, store, analyzer, &fakeEmbedder{})

	ctx := context.Background()
	assert.Equal(t, nil, p.RunSource(ctx, "crypto"))
	assert.Equal(t, nil, p.RunSource(ctx, "crypto"))

	// second run sees the link already persisted and does nothing
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 1, analyzer.calls)

	records, err := vectors.Export(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(records))
}

func TestDuplicateLinkWithinBatch(t *testing.T) {
	link := "https://example.com/shared"
	source := &fakeSource{name: "crypto", category: models.CategoryCrypto,
		items: []news.RawArticle{item(link, "첫 번째"), item(link, "두 번째")}}
	store := newMemStore()
	p, vectors := newTestPipeline(t, source, store, &fakeAnalyzer{}, &fakeEmbedder{})

	ctx := context.Background()
	assert.Equal(t, nil, p.RunSource(ctx, "crypto"))

	assert.Equal(t, 1, store.creates)
	records, err := vectors.Export(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(records))
	assert.Equal(t, link, records[0].ID)
}

func TestFailingItemDoesNotAbortRun(t *testing.T) {
	source := &fakeSource{name: "crypto", category: models.CategoryCrypto,
		items: []news.RawArticle{
			item("https://example.com/bad", "망가진 기사"),
			item("https://example.com/good", "정상 기사"),
		}}
	store := newMemStore()
	analyzer := &fakeAnalyzer{errByTitle: map[string]error{
		"망가진 기사": &llm.MalformedResponseError{Raw: "not json", Err: errors.New("invalid json")},
	}}
	p, _ := newTestPipeline(t, source, store, analyzer, &fakeEmbedder{})

	err := p.RunSource(context.Background(), "crypto")
	assert.Equal(t, nil, err)

	// the malformed item was skipped, the good one still landed
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, true, store.links["https://example.com/good"])
	assert.Equal(t, false, store.links["https://example.com/bad"])
}

func TestIrrelevantItemSkipped(t *testing.T) {
	source := &fakeSource{name: "crypto", category: models.CategoryCrypto,
		items: []news.RawArticle{item("https://example.com/offtopic", "연예 가십")}}
	store := newMemStore()
	analyzer := &fakeAnalyzer{errByTitle: map[string]error{"연예 가십": llm.ErrNotRelevant}}
	p, _ := newTestPipeline(t, source, store, analyzer, &fakeEmbedder{})

	assert.Equal(t, nil, p.RunSource(context.Background(), "crypto"))
	assert.Equal(t, 0, store.creates)
}

func TestFeedFetchFailureAbortsRun(t *testing.T) {
	source := &fakeSource{name: "crypto", category: models.CategoryCrypto,
		err: errors.New("upstream down")}
	store := newMemStore()
	p, _ := newTestPipeline(t, source, store, &fakeAnalyzer{}, &fakeEmbedder{})

	err := p.RunSource(context.Background(), "crypto")
	if err == nil {
		t.Fatal("want error when the feed fetch fails")
	}
	assert.Equal(t, 0, store.creates)
}

func TestRunSourceUnknownSource(t *testing.T) {
	store := newMemStore()
	p, _ := newTestPipeline(t, &fakeSource{name: "crypto", category: models.CategoryCrypto}, store, &fakeAnalyzer{}, &fakeEmbedder{})

	err := p.RunSource(context.Background(), "nope")
	if err == nil {
		t.Fatal("want error for unknown source name")
	}
}

type memEmbeddingCache struct {
	entries map[string][]float32
	hits    int
}

func (c *memEmbeddingCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool, error) {
	if v, ok := c.entries[text]; ok {
		c.hits++
		return v, true, nil
	}
	return nil, false, nil
}

func (c *memEmbeddingCache) SetEmbedding(ctx context.Context, text string, embedding []float32) error {
	c.entries[text] = embedding
	return nil
}

func TestEmbeddingCacheShortCircuitsEmbedder(t *testing.T) {
	a := item("https://example.com/a", "비트코인 상승")
	sourceA := &fakeSource{name: "crypto", category: models.CategoryCrypto, items: []news.RawArticle{a}}
	store := newMemStore()
	embedder := &fakeEmbedder{}
	cache := &memEmbeddingCache{entries: make(map[string][]float32)}

	vectors, err := localstore.New(filepath.Join(t.TempDir(), "vectors.bin"), 3)
	assert.Equal(t, nil, err)
	symbols := news.NewSymbolCache(&staticLister{symbols: []string{"BTC"}}, time.Hour)
	p := NewPipeline([]news.Source{sourceA}, store, &fakeAnalyzer{}, embedder,
		&fakeExtractor{}, vectors, symbols, cache)

	ctx := context.Background()
	assert.Equal(t, nil, p.RunSource(ctx, "crypto"))
	assert.Equal(t, 1, embedder.calls)

	// same input again: served from the cache, embedder untouched
	store.links = make(map[string]bool)
	assert.Equal(t, nil, p.RunSource(ctx, "crypto"))
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, cache.hits)
}
