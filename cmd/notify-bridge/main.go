package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/medtrack/backend/internal/config"
	"github.com/medtrack/backend/internal/db"
	"github.com/medtrack/backend/internal/notify"
	"go.uber.org/zap"
)

// Notify Bridge — small service that subscribes to the Redis mail stream
// and forwards external-mail notifications to the mail relay. Running it
// apart from the API keeps slow SMTP paths off the request path entirely.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	mailClient := notify.NewMailClient(cfg.MailRelayURL, cfg.MailRelayTimeout, log)
	subscriber := notify.NewSubscriber(rdb, log)

	log.Info("notify-bridge started")

	_ = subscriber.Subscribe(ctx, notify.StreamMail, func(wire notify.WireNotification) {
		if len(wire.Emails) == 0 {
			return
		}
		log.Info("forwarding mail notification",
			zap.String("event_type", wire.EventType),
			zap.Int("recipients", len(wire.Emails)),
		)
		if err := mailClient.Send(ctx, wire.Emails, wire.Title, wire.Body); err != nil {
			log.Warn("failed to forward mail", zap.Error(err))
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}
