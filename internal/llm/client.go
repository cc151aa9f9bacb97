package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/circuitbreaker"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/retry"
)

// Client wraps the OpenAI API for chat completions and embeddings. Chat calls
// go through retry + circuit breaker; embedding calls only through the
// breaker, so transport errors surface to the caller unretried.
type Client struct {
	api            *openai.Client
	model          string
	embeddingModel string
	maxTokens      int
	breaker        *circuitbreaker.Breaker
	retryConfig    retry.Config
}

func NewClient(apiKey, model, embeddingModel string, maxTokens int) *Client {
	breaker := circuitbreaker.New("openai", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("llm client initialized",
		zap.String("model", model),
		zap.String("embedding_model", embeddingModel),
	)

	return &Client{
		api:            openai.NewClient(apiKey),
		model:          model,
		embeddingModel: embeddingModel,
		maxTokens:      maxTokens,
		breaker:        breaker,
		retryConfig:    retryConfig,
	}
}

// Complete runs one system+user chat exchange and returns the raw content of
// the first choice.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var content string
	err := c.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Temperature: temperature,
				MaxTokens:   c.maxTokens,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: system},
					{Role: openai.ChatMessageRoleUser, Content: user},
				},
			})
			if err != nil {
				return fmt.Errorf("chat completion failed: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("chat completion returned no choices")
			}

			logger.Debug("chat completion",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Embed returns the embedding vector for text under the fixed embedding
// model. No retry is performed here; the caller decides what a failure costs.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32
	err := c.breaker.Execute(ctx, func() error {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		if err != nil {
			return fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("embedding response is empty")
		}
		embedding = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}
