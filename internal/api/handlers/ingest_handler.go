package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/ingest"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

// IngestHandler exposes manual/administrative triggers for the scheduled
// ingestion runs.
type IngestHandler struct {
	pipeline *ingest.Pipeline
}

func NewIngestHandler(pipeline *ingest.Pipeline) *IngestHandler {
	return &IngestHandler{pipeline: pipeline}
}

func (h *IngestHandler) RunSource(c *fiber.Ctx) error {
	name := c.Params("source")

	if err := h.pipeline.RunSource(c.Context(), name); err != nil {
		logger.Error("manual ingestion run failed", zap.String("source", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "ingestion run failed",
			"source": name,
		})
	}

	return c.JSON(fiber.Map{
		"status": "completed",
		"source": name,
	})
}

func (h *IngestHandler) RunAll(c *fiber.Ctx) error {
	// run in the request to keep the trigger synchronous and observable
	h.pipeline.RunAll(c.Context())
	return c.JSON(fiber.Map{
		"status":  "completed",
		"sources": h.pipeline.SourceNames(),
	})
}
