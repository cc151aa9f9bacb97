package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("sqlite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		translated_title TEXT,
		body TEXT NOT NULL,
		thumbnail_url TEXT,
		source_link TEXT UNIQUE NOT NULL,
		publisher TEXT,
		published_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);

	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER UNIQUE NOT NULL,
		sentiment_score INTEGER NOT NULL,
		positive_factors TEXT NOT NULL,
		negative_factors TEXT NOT NULL,
		summary TEXT NOT NULL,
		brief_summary TEXT NOT NULL,
		tags TEXT NOT NULL,
		community_score REAL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tracked_assets (
		symbol TEXT NOT NULL,
		category TEXT NOT NULL,
		name TEXT,
		PRIMARY KEY (symbol, category)
	);
	CREATE INDEX IF NOT EXISTS idx_assets_category ON tracked_assets(category);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("sqlite schema initialized")
	return nil
}

// ExistsByLink is the dedup primitive: it answers whether an article with the
// given source link was already ingested.
func (c *Client) ExistsByLink(ctx context.Context, link string) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM articles WHERE source_link = ?", link).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return n > 0, nil
}

// CreateArticleWithAnalysis writes the article and its analysis in one
// transaction: both rows land or neither does.
func (c *Client) CreateArticleWithAnalysis(ctx context.Context, article *models.Article, analysis *models.Analysis) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO articles (category, title, translated_title, body, thumbnail_url, source_link, publisher, published_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(article.Category), article.Title, article.TranslatedTitle, article.Body,
		article.ThumbnailURL, article.SourceLink, article.Publisher,
		article.PublishedAt.Unix(), now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}

	articleID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read article id: %w", err)
	}

	positives, err := json.Marshal(analysis.PositiveFactors)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal positive factors: %w", err)
	}
	negatives, err := json.Marshal(analysis.NegativeFactors)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal negative factors: %w", err)
	}
	tags, err := json.Marshal(analysis.Tags)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (article_id, sentiment_score, positive_factors, negative_factors, summary, brief_summary, tags, community_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		articleID, analysis.SentimentScore, string(positives), string(negatives),
		analysis.Summary, analysis.BriefSummary, string(tags), analysis.CommunityScore, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	return articleID, nil
}

// BackfillTranslatedTitle sets a translated title on an article that was
// ingested before translation existed. It is a one-time update.
func (c *Client) BackfillTranslatedTitle(ctx context.Context, articleID int64, title string) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE articles SET translated_title = ?
		WHERE id = ? AND (translated_title IS NULL OR translated_title = '')`,
		title, articleID,
	)
	if err != nil {
		return fmt.Errorf("failed to backfill translated title: %w", err)
	}
	return nil
}

// ListTrackedSymbols returns the known instrument symbols for a category.
func (c *Client) ListTrackedSymbols(ctx context.Context, category models.Category) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT symbol FROM tracked_assets WHERE category = ?", string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func (c *Client) AddTrackedAsset(ctx context.Context, symbol string, category models.Category, name string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO tracked_assets (symbol, category, name) VALUES (?, ?, ?)
		ON CONFLICT (symbol, category) DO UPDATE SET name = excluded.name`,
		symbol, string(category), name,
	)
	if err != nil {
		return fmt.Errorf("failed to add tracked asset: %w", err)
	}
	return nil
}

// ListRecentArticles returns newest-first articles with their analyses.
// An empty category returns all categories.
func (c *Client) ListRecentArticles(ctx context.Context, category models.Category, limit int) ([]ArticleWithAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT a.id, a.category, a.title, COALESCE(a.translated_title, ''), a.body,
		       COALESCE(a.thumbnail_url, ''), a.source_link, COALESCE(a.publisher, ''),
		       a.published_at, a.created_at,
		       n.sentiment_score, n.positive_factors, n.negative_factors,
		       n.summary, n.brief_summary, n.tags, n.community_score
		FROM articles a
		JOIN analyses n ON n.article_id = a.id`
	args := []any{}
	if category != "" {
		query += " WHERE a.category = ?"
		args = append(args, string(category))
	}
	query += " ORDER BY a.published_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var out []ArticleWithAnalysis
	for rows.Next() {
		var (
			item                       ArticleWithAnalysis
			category                   string
			publishedAt, createdAt     int64
			positives, negatives, tags string
		)
		err := rows.Scan(
			&item.Article.ID, &category, &item.Article.Title, &item.Article.TranslatedTitle,
			&item.Article.Body, &item.Article.ThumbnailURL, &item.Article.SourceLink,
			&item.Article.Publisher, &publishedAt, &createdAt,
			&item.Analysis.SentimentScore, &positives, &negatives,
			&item.Analysis.Summary, &item.Analysis.BriefSummary, &tags,
			&item.Analysis.CommunityScore,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		item.Article.Category = models.Category(category)
		item.Article.PublishedAt = time.Unix(publishedAt, 0)
		item.Article.CreatedAt = time.Unix(createdAt, 0)
		item.Analysis.ArticleID = item.Article.ID
		if err := json.Unmarshal([]byte(positives), &item.Analysis.PositiveFactors); err != nil {
			return nil, fmt.Errorf("failed to decode positive factors: %w", err)
		}
		if err := json.Unmarshal([]byte(negatives), &item.Analysis.NegativeFactors); err != nil {
			return nil, fmt.Errorf("failed to decode negative factors: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &item.Analysis.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

type ArticleWithAnalysis struct {
	Article  models.Article
	Analysis models.Analysis
}
