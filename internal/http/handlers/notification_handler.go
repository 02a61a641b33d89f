package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/medtrack/backend/internal/middleware"
	"github.com/medtrack/backend/internal/repositories"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	repo *repositories.NotificationRepo
	log  *zap.Logger
}

func NewNotificationHandler(repo *repositories.NotificationRepo, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, log: log}
}

// List returns the caller's in-app inbox.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	unread := c.QueryBool("unread", false)

	items, err := h.repo.ListForUser(c.Context(), userID, unread,
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		h.log.Error("notification list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"notifications": items})
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	if err := h.repo.MarkRead(c.Context(), middleware.GetUserID(c), id); err != nil {
		h.log.Error("mark read failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
