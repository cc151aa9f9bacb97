package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/models"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/storage/sqlite"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

// AssetHandler manages the tracked-instrument registry the source adapters
// and tag filter match against.
type AssetHandler struct {
	store *sqlite.Client
}

func NewAssetHandler(store *sqlite.Client) *AssetHandler {
	return &AssetHandler{store: store}
}

func (h *AssetHandler) Add(c *fiber.Ctx) error {
	var req struct {
		Symbol   string `json:"symbol"`
		Category string `json:"category"`
		Name     string `json:"name"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Symbol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "symbol is required",
		})
	}
	category := models.Category(req.Category)
	if !category.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown category",
		})
	}

	if err := h.store.AddTrackedAsset(c.Context(), req.Symbol, category, req.Name); err != nil {
		logger.Error("failed to add tracked asset",
			zap.String("symbol", req.Symbol), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to add tracked asset",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"symbol":   req.Symbol,
		"category": string(category),
	})
}

func (h *AssetHandler) List(c *fiber.Ctx) error {
	category := models.Category(c.Query("category"))
	if !category.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown category",
		})
	}

	symbols, err := h.store.ListTrackedSymbols(c.Context(), category)
	if err != nil {
		logger.Error("failed to list tracked assets", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list tracked assets",
		})
	}

	return c.JSON(fiber.Map{
		"category": string(category),
		"symbols":  symbols,
	})
}
