package redis

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

// Client caches embeddings keyed by a hash of the input text, so re-analyzed
// or re-run content does not pay for the embedding API twice.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: 7 * 24 * time.Hour}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func embeddingKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%x", sum[:16])
}

func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, embeddingKey(text)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached embedding: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached embedding: %w", err)
	}
	return embedding, true, nil
}

func (c *Client) SetEmbedding(ctx context.Context, text string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	if err := c.client.Set(ctx, embeddingKey(text), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache embedding: %w", err)
	}
	return nil
}
