package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/metrics"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/vector"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

// InsufficientDataAnswer is the fixed reply when retrieval finds nothing the
// answer could be grounded on. Guard against making things up: the service
// returns this sentence instead of letting the model speculate.
const InsufficientDataAnswer = "죄송합니다. 관련된 뉴스 데이터가 부족하여 답변드리기 어렵습니다."

const systemPrompt = `You are the news assistant of a Korean stock and crypto platform.
Answer in Korean, grounded strictly on the provided news context.
If the context is empty or unrelated to the question, reply with exactly:
"` + InsufficientDataAnswer + `"
Do not speculate beyond the context.`

// Embedder turns the user question into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer produces the final grounded answer.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float32) (string, error)
}

// Service is the retrieval-augmented query path: embed the question, pull the
// most similar articles from the vector store, and answer from that context.
type Service struct {
	embedder  Embedder
	completer Completer
	store     vector.Store
	topK      int
	minScore  float64
	now       func() time.Time
}

func NewService(embedder Embedder, completer Completer, store vector.Store, topK int, minScore float64) *Service {
	if topK <= 0 {
		topK = 3
	}
	return &Service{
		embedder:  embedder,
		completer: completer,
		store:     store,
		topK:      topK,
		minScore:  minScore,
		now:       time.Now,
	}
}

// Answer resolves question against the indexed news corpus. "Nothing
// relevant found" is not an error: the fixed insufficient-data sentence is
// returned instead.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	start := time.Now()
	hits, err := s.store.Search(ctx, queryVec, s.topK, s.minScore)
	metrics.VectorSearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("vector search failed: %w", err)
	}

	if len(hits) == 0 {
		logger.Info("no grounding context found for question")
		return InsufficientDataAnswer, nil
	}

	prompt := s.buildPrompt(question, hits)

	answer, err := s.completer.Complete(ctx, systemPrompt, prompt, 0.2)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	logger.Debug("rag answer generated",
		zap.Int("hits", len(hits)),
		zap.Int("answer_length", len(answer)),
	)
	return answer, nil
}

func (s *Service) buildPrompt(question string, hits []vector.Result) string {
	var sb strings.Builder
	sb.WriteString("[뉴스 컨텍스트]\n")
	for i, hit := range hits {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n%s\n\n",
			i+1,
			hit.Record.Meta.Title,
			hit.Record.Meta.PublishedAt.Format("2006-01-02"),
			hit.Record.Meta.Summary,
		))
	}
	sb.WriteString(fmt.Sprintf("[오늘 날짜] %s\n", s.now().Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("[질문] %s\n", question))
	sb.WriteString("위 컨텍스트에 근거해서 답변해 주세요.")
	return sb.String()
}
