package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/metrics"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/internal/rag"
	"github.com/rkdsan1013/smhrd-stockpanzee-sub000/pkg/logger"
)

type ChatHandler struct {
	service *rag.Service
}

func NewChatHandler(service *rag.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Message string `json:"message"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("failed to parse chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}

	answer, err := h.service.Answer(c.Context(), req.Message)
	if err != nil {
		metrics.ChatRequests.WithLabelValues("error").Inc()
		logger.Error("failed to answer chat message", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate answer",
		})
	}

	metrics.ChatRequests.WithLabelValues("ok").Inc()
	return c.JSON(fiber.Map{
		"id":     uuid.New().String(),
		"answer": answer,
	})
}
