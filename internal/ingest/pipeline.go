package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/llm"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/metrics"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/news"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

// ArticleStore is the relational persistence surface the pipeline needs.
type ArticleStore interface {
	ExistsByLink(ctx context.Context, link string) (bool, error)
	CreateArticleWithAnalysis(ctx context.Context, article *models.Article, analysis *models.Analysis) (int64, error)
}

// Analyzer produces the structured AI analysis for one article.
type Analyzer interface {
	Analyze(ctx context.Context, title, body string, publishedAt time.Time) (*llm.Analysis, error)
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Extractor resolves full article text for a URL; "" means nothing usable.
type Extractor interface {
	Extract(ctx context.Context, url string) string
}

// EmbeddingCache is an optional lookaside cache in front of the Embedder.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, text string, embedding []float32) error
}

// Pipeline runs the per-source ingestion cycle:
// fetch, dedupe by link, extract, analyze, persist, embed, index.
// One item's failure never aborts the rest of the run; a failed feed fetch
// aborts only that source's run.
type Pipeline struct {
	sources   map[string]news.Source
	store     ArticleStore
	analyzer  Analyzer
	embedder  Embedder
	extractor Extractor
	vectors   vector.Store
	symbols   *news.SymbolCache
	cache     EmbeddingCache // may be nil
}

func NewPipeline(
	sources []news.Source,
	store ArticleStore,
	analyzer Analyzer,
	embedder Embedder,
	extractor Extractor,
	vectors vector.Store,
	symbols *news.SymbolCache,
	cache EmbeddingCache,
) *Pipeline {
	byName := make(map[string]news.Source, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	return &Pipeline{
		sources:   byName,
		store:     store,
		analyzer:  analyzer,
		embedder:  embedder,
		extractor: extractor,
		vectors:   vectors,
		symbols:   symbols,
		cache:     cache,
	}
}

func (p *Pipeline) SourceNames() []string {
	names := make([]string, 0, len(p.sources))
	for name := range p.sources {
		names = append(names, name)
	}
	return names
}

// RunAll runs every source concurrently and independently. A slow or failing
// source does not delay or fail the others.
func (p *Pipeline) RunAll(ctx context.Context) {
	var wg sync.WaitGroup
	for name := range p.sources {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.RunSource(ctx, name); err != nil {
				logger.Error("source run failed", zap.String("source", name), zap.Error(err))
			}
		}()
	}
	wg.Wait()
}

// RunSource executes one ingestion cycle for the named source. Articles are
// processed sequentially in feed order.
func (p *Pipeline) RunSource(ctx context.Context, name string) error {
	source, ok := p.sources[name]
	if !ok {
		return fmt.Errorf("unknown source %q", name)
	}

	start := time.Now()
	defer func() {
		metrics.IngestRunDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	items, err := source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("feed fetch for %q failed: %w", name, err)
	}

	logger.Info("ingestion run started",
		zap.String("source", name),
		zap.Int("items", len(items)),
	)

	ingested := 0
	for _, item := range items {
		outcome := p.processItem(ctx, source, item)
		metrics.ArticlesProcessed.WithLabelValues(name, outcome).Inc()
		if outcome == metrics.OutcomeIngested {
			ingested++
		}
	}

	logger.Info("ingestion run finished",
		zap.String("source", name),
		zap.Int("ingested", ingested),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) processItem(ctx context.Context, source news.Source, item news.RawArticle) string {
	log := logger.GetLogger().With(
		zap.String("source", source.Name()),
		zap.String("link", item.URL),
	)

	// Dedup first: the cheapest check, and the idempotence guarantee.
	exists, err := p.store.ExistsByLink(ctx, item.URL)
	if err != nil {
		log.Error("dedup check failed", zap.Error(err))
		return metrics.OutcomeFailed
	}
	if exists {
		return metrics.OutcomeDuplicate
	}

	body := item.Body
	if body == "" {
		body = p.extractor.Extract(ctx, item.URL)
	}
	if body == "" {
		log.Info("no content could be extracted, skipping")
		return metrics.OutcomeNoContent
	}

	analysis, err := p.analyzer.Analyze(ctx, item.Title, body, item.PublishedAt)
	if err != nil {
		var malformed *llm.MalformedResponseError
		switch {
		case errors.Is(err, llm.ErrNotRelevant):
			return metrics.OutcomeIrrelevant
		case errors.As(err, &malformed):
			log.Error("analysis response was malformed",
				zap.String("raw", malformed.Raw),
				zap.Error(err),
			)
			return metrics.OutcomeMalformedLLM
		default:
			log.Error("analysis call failed", zap.Error(err))
			return metrics.OutcomeFailed
		}
	}

	// Tags must be validated against the tracked set before they persist;
	// when the lookup fails the article lands untagged rather than with
	// unverified symbols.
	tags, err := p.filterTags(ctx, source.Category(), analysis.Tags)
	if err != nil {
		log.Warn("tag filtering failed, dropping tags", zap.Error(err))
		tags = nil
	}

	article := &models.Article{
		Category:        source.Category(),
		Title:           item.Title,
		TranslatedTitle: analysis.TranslatedTitle,
		Body:            body,
		ThumbnailURL:    item.Thumbnail,
		SourceLink:      item.URL,
		Publisher:       item.Publisher,
		PublishedAt:     item.PublishedAt,
	}
	record := &models.Analysis{
		SentimentScore:  analysis.SentimentScore,
		PositiveFactors: analysis.PositiveFactors,
		NegativeFactors: analysis.NegativeFactors,
		Summary:         analysis.Summary,
		BriefSummary:    analysis.BriefSummary,
		Tags:            tags,
	}

	if _, err := p.store.CreateArticleWithAnalysis(ctx, article, record); err != nil {
		log.Error("failed to persist article", zap.Error(err))
		return metrics.OutcomeFailed
	}

	if err := p.embedAndIndex(ctx, item, analysis); err != nil {
		log.Error("failed to index article", zap.Error(err))
		return metrics.OutcomeFailed
	}

	return metrics.OutcomeIngested
}

// embedAndIndex builds the embedding input from title, publish time and the
// AI summary, then upserts the vector keyed by the source link.
func (p *Pipeline) embedAndIndex(ctx context.Context, item news.RawArticle, analysis *llm.Analysis) error {
	input := fmt.Sprintf("%s\n%s\n%s",
		item.Title, item.PublishedAt.Format(time.RFC3339), analysis.Summary)

	embedding, err := p.embed(ctx, input)
	if err != nil {
		return err
	}

	title := analysis.TranslatedTitle
	if title == "" {
		title = item.Title
	}

	return p.vectors.Upsert(ctx, vector.Record{
		ID:        item.URL,
		Embedding: embedding,
		Meta: vector.Metadata{
			PublishedAt: item.PublishedAt,
			Title:       title,
			Summary:     analysis.Summary,
			SourceLink:  item.URL,
		},
	})
}

func (p *Pipeline) embed(ctx context.Context, input string) ([]float32, error) {
	if p.cache != nil {
		if cached, ok, err := p.cache.GetEmbedding(ctx, input); err == nil && ok {
			return cached, nil
		}
	}

	embedding, err := p.embedder.Embed(ctx, input)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.SetEmbedding(ctx, input, embedding); err != nil {
			logger.Debug("failed to cache embedding", zap.Error(err))
		}
	}
	return embedding, nil
}

func (p *Pipeline) filterTags(ctx context.Context, category models.Category, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	tracked, err := p.symbols.GetOrRefresh(ctx, category)
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(tags))
	for _, t := range tags {
		if tracked[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}
