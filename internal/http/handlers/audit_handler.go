package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medtrack/backend/internal/repositories"
	"go.uber.org/zap"
)

type AuditHandler struct {
	repo *repositories.AuditRepo
	log  *zap.Logger
}

func NewAuditHandler(repo *repositories.AuditRepo, log *zap.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, log: log}
}

// GetByEntity returns the audit trail of one entity, newest first.
func (h *AuditHandler) GetByEntity(c *fiber.Ctx) error {
	entityType := c.Params("type")
	entityID := c.Params("id")

	recs, err := h.repo.GetByEntity(c.Context(), entityType, entityID,
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		h.log.Error("audit query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"records": recs})
}

// GetByTimeRange returns audit records between from and to (RFC3339).
func (h *AuditHandler) GetByTimeRange(c *fiber.Ctx) error {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid from"})
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		to = time.Now()
	}

	recs, err := h.repo.GetByTimeRange(c.Context(), from, to,
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		h.log.Error("audit query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"records": recs})
}
