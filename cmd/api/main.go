package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/medtrack/backend/internal/audit"
	"github.com/medtrack/backend/internal/config"
	"github.com/medtrack/backend/internal/db"
	"github.com/medtrack/backend/internal/dispatch"
	"github.com/medtrack/backend/internal/events"
	apphttp "github.com/medtrack/backend/internal/http"
	"github.com/medtrack/backend/internal/http/handlers"
	"github.com/medtrack/backend/internal/metrics"
	"github.com/medtrack/backend/internal/notify"
	"github.com/medtrack/backend/internal/observer"
	"github.com/medtrack/backend/internal/repositories"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	redactor := audit.NewRedactor(cfg.SensitiveFields)
	userRepo := repositories.NewUserRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool, redactor)
	notificationRepo := repositories.NewNotificationRepo(pool)
	equipmentRepo := repositories.NewEquipmentRepo(pool)

	// Event pipeline
	m := metrics.New()
	classifier := events.NewClassifier(nil, events.OffHoursLoginPolicy(cfg.OffHoursStart, cfg.OffHoursEnd))
	resolver := notify.NewResolver(userRepo, cfg.DirectoryTimeout, log)

	redisNotifier := notify.NewRedisNotifier(rdb, log)

	mux := notify.NewMux()
	mux.Register(events.ChannelPersisted, notify.NewPersistedNotifier(notificationRepo, log))
	mux.Register(events.ChannelBroadcast, redisNotifier)
	mux.Register(events.ChannelDirected, redisNotifier)
	mux.Register(events.ChannelMail, redisNotifier)

	dispatcher := dispatch.New(classifier, resolver, mux, auditRepo, m, cfg.ChannelDeliveryTimeout, log)

	codes := observer.NewCodeGenerator(equipmentRepo, cfg.CodeMaxRetries, nil, nil)
	obs := observer.New(dispatcher, equipmentRepo, codes, log)

	// Handlers
	subscriber := notify.NewSubscriber(rdb, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)
	wsHub.Start(ctx)

	authHandler := handlers.NewAuthHandler(userRepo, dispatcher, cfg, log)
	equipmentHandler := handlers.NewEquipmentHandler(equipmentRepo, obs, log)
	auditHandler := handlers.NewAuditHandler(auditRepo, log)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, log)

	app := fiber.New(fiber.Config{
		AppName: "medtrack-api",
	})
	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, equipmentHandler, auditHandler, notificationHandler, wsHub)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
