package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/sqlite"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

type NewsHandler struct {
	store *sqlite.Client
}

func NewNewsHandler(store *sqlite.Client) *NewsHandler {
	return &NewsHandler{store: store}
}

func (h *NewsHandler) ListRecent(c *fiber.Ctx) error {
	category := models.Category(c.Query("category"))
	if category != "" && !category.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown category",
		})
	}

	items, err := h.store.ListRecentArticles(c.Context(), category, c.QueryInt("limit", 20))
	if err != nil {
		logger.Error("failed to list articles", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list articles",
		})
	}

	out := make([]fiber.Map, 0, len(items))
	for _, item := range items {
		out = append(out, fiber.Map{
			"id":               item.Article.ID,
			"category":         item.Article.Category,
			"title":            item.Article.Title,
			"translated_title": item.Article.TranslatedTitle,
			"thumbnail_url":    item.Article.ThumbnailURL,
			"source_link":      item.Article.SourceLink,
			"publisher":        item.Article.Publisher,
			"published_at":     item.Article.PublishedAt,
			"sentiment_score":  item.Analysis.SentimentScore,
			"brief_summary":    item.Analysis.BriefSummary,
			"tags":             item.Analysis.Tags,
		})
	}

	return c.JSON(fiber.Map{"articles": out})
}

// BackfillTranslatedTitle fills a missing translated title on an already
// ingested article. Articles that have one keep it.
func (h *NewsHandler) BackfillTranslatedTitle(c *fiber.Ctx) error {
	articleID, err := c.ParamsInt("id")
	if err != nil || articleID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid article id",
		})
	}

	var req struct {
		TranslatedTitle string `json:"translated_title"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.TranslatedTitle == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "translated_title is required",
		})
	}

	if err := h.store.BackfillTranslatedTitle(c.Context(), int64(articleID), req.TranslatedTitle); err != nil {
		logger.Error("failed to backfill translated title",
			zap.Int("article_id", articleID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to backfill translated title",
		})
	}

	return c.JSON(fiber.Map{"status": "updated", "id": articleID})
}
