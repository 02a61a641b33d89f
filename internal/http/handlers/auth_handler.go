package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medtrack/backend/internal/auth"
	"github.com/medtrack/backend/internal/config"
	"github.com/medtrack/backend/internal/dispatch"
	"github.com/medtrack/backend/internal/events"
	"github.com/medtrack/backend/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	users      *repositories.UserRepo
	dispatcher *dispatch.Dispatcher
	cfg        *config.Config
	log        *zap.Logger
}

func NewAuthHandler(users *repositories.UserRepo, dispatcher *dispatch.Dispatcher, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, dispatcher: dispatcher, cfg: cfg, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and dispatches the user.logged_in event; its
// classification (off-hours escalation included) happens downstream in the
// pipeline, not here.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	user, err := h.users.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}
	if !user.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "account disabled"})
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.ID, user.Role, user.ServiceID, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("jwt generation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	_ = h.users.TouchLastActive(c.Context(), user.ID)

	actorID := user.ID
	meta := requestMeta(c)
	meta["hour"] = time.Now().Hour()
	ev := events.New(events.EventUserLoggedIn, &actorID,
		map[string]any{"user_id": user.ID.String(), "role": user.Role}, meta)
	if _, err := h.dispatcher.Dispatch(c.Context(), ev); err != nil {
		// Audit loss is the one failure that must surface; the login itself
		// already succeeded, so report without revoking the session.
		h.log.Error("login event audit failed", zap.Error(err))
	}

	return c.JSON(fiber.Map{"token": token, "user": user})
}
