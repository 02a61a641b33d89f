package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/medtrack/backend/internal/middleware"
	"github.com/medtrack/backend/internal/models"
	"github.com/medtrack/backend/internal/observer"
	"github.com/medtrack/backend/internal/repositories"
	"go.uber.org/zap"
)

// EquipmentHandler is the thin mutation surface feeding the lifecycle
// observer. Fuller inventory CRUD lives with the rest of the hospital
// backend; these endpoints exist so every mutation funnels through the
// event pipeline.
type EquipmentHandler struct {
	repo *repositories.EquipmentRepo
	obs  *observer.Observer
	log  *zap.Logger
}

func NewEquipmentHandler(repo *repositories.EquipmentRepo, obs *observer.Observer, log *zap.Logger) *EquipmentHandler {
	return &EquipmentHandler{repo: repo, obs: obs, log: log}
}

type createEquipmentRequest struct {
	Name      string     `json:"name"`
	Brand     *string    `json:"brand"`
	Model     *string    `json:"model"`
	Serial    *string    `json:"serial"`
	RiskClass string     `json:"risk_class"`
	ServiceID *uuid.UUID `json:"service_id"`
	AreaID    *uuid.UUID `json:"area_id"`
}

func (h *EquipmentHandler) Create(c *fiber.Ctx) error {
	var req createEquipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	e := models.Equipment{
		ID:        uuid.New(),
		Name:      req.Name,
		Brand:     req.Brand,
		Model:     req.Model,
		Serial:    req.Serial,
		Status:    models.EquipmentStatusOperational,
		RiskClass: req.RiskClass,
		ServiceID: req.ServiceID,
		AreaID:    req.AreaID,
	}

	fields := equipmentFields(e)
	actorID := middleware.GetUserID(c)
	if err := h.obs.OnEntityCreating(c.Context(), "equipment", fields, &actorID, requestMeta(c)); err != nil {
		h.log.Error("equipment creating hook failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	e.Code, _ = fields["code"].(string)

	if err := h.repo.Insert(c.Context(), &e); err != nil {
		h.log.Error("equipment insert failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *EquipmentHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil || !models.IsValidEquipmentStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status"})
	}

	before, err := h.repo.Snapshot(c.Context(), "equipment", id.String())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "equipment not found"})
	}
	if err := h.repo.UpdateStatus(c.Context(), id, req.Status); err != nil {
		h.log.Error("equipment status update failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	after, err := h.repo.Snapshot(c.Context(), "equipment", id.String())
	if err != nil {
		h.log.Error("post-update snapshot failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	actorID := middleware.GetUserID(c)
	if err := h.obs.OnEntityMutated(c.Context(), "equipment", before, after, &actorID, requestMeta(c)); err != nil {
		h.log.Error("equipment mutation hook failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *EquipmentHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	actorID := middleware.GetUserID(c)
	// Snapshot and dispatch happen before the row disappears.
	if err := h.obs.OnEntityRemoving(c.Context(), "equipment", id.String(), &actorID, requestMeta(c)); err != nil {
		h.log.Error("equipment removal hook failed", zap.Error(err))
	}
	if err := h.repo.Delete(c.Context(), id); err != nil {
		h.log.Error("equipment delete failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func equipmentFields(e models.Equipment) map[string]any {
	fields := map[string]any{
		"id":         e.ID,
		"code":       e.Code,
		"name":       e.Name,
		"status":     e.Status,
		"risk_class": e.RiskClass,
	}
	if e.ServiceID != nil {
		fields["service_id"] = *e.ServiceID
	}
	if e.AreaID != nil {
		fields["area_id"] = *e.AreaID
	}
	return fields
}

func requestMeta(c *fiber.Ctx) map[string]any {
	return map[string]any{
		"ip":             c.IP(),
		"user_agent":     c.Get("User-Agent"),
		"correlation_id": middleware.RequestID(c),
	}
}
