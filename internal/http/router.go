package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/medtrack/backend/internal/config"
	"github.com/medtrack/backend/internal/http/handlers"
	"github.com/medtrack/backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	equipmentHandler *handlers.EquipmentHandler,
	auditHandler *handlers.AuditHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/login", authHandler.Login)

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Notification inbox
	protected.Get("/me/notifications", notificationHandler.List)
	protected.Post("/me/notifications/:id/read", notificationHandler.MarkRead)

	// Equipment mutations (supervisory only; each funnels through the
	// lifecycle observer)
	equipmentGroup := protected.Group("/equipment", middleware.SupervisoryMiddleware())
	equipmentGroup.Post("", equipmentHandler.Create)
	equipmentGroup.Patch("/:id/status", equipmentHandler.UpdateStatus)
	equipmentGroup.Delete("/:id", equipmentHandler.Delete)

	// Audit trail (supervisory only)
	auditGroup := protected.Group("/audit", middleware.SupervisoryMiddleware())
	auditGroup.Get("/entity/:type/:id", auditHandler.GetByEntity)
	auditGroup.Get("/range", auditHandler.GetByTimeRange)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
