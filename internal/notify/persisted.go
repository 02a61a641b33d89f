package notify

import (
	"context"

	"github.com/medtrack/backend/internal/events"
	"github.com/medtrack/backend/internal/models"
	"go.uber.org/zap"
)

// InboxStore persists in-app notifications, one row per recipient.
type InboxStore interface {
	Insert(ctx context.Context, notifications []models.Notification) error
}

// PersistedNotifier serves the persisted (in-app inbox) channel.
type PersistedNotifier struct {
	store InboxStore
	log   *zap.Logger
}

func NewPersistedNotifier(store InboxStore, log *zap.Logger) *PersistedNotifier {
	return &PersistedNotifier{store: store, log: log}
}

func (n *PersistedNotifier) Deliver(ctx context.Context, _ events.Channel, recipients []Recipient, content Content) error {
	if len(recipients) == 0 {
		return nil
	}
	rows := make([]models.Notification, 0, len(recipients))
	for _, rec := range recipients {
		rows = append(rows, models.Notification{
			UserID:    rec.User.ID,
			EventType: content.EventType,
			Severity:  content.Severity,
			Title:     content.Title,
			Body:      content.Body,
		})
	}
	return n.store.Insert(ctx, rows)
}
