package notify

import (
	"context"
	"encoding/json"

	"github.com/medtrack/backend/internal/events"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis pub/sub streams for live-update delivery.
const (
	StreamBroadcast = "notify:broadcast"
	StreamDirected  = "notify:directed"
	StreamMail      = "notify:mail"
)

// WireNotification is the pub/sub payload shared by the websocket hub and
// the notify bridge.
type WireNotification struct {
	EventType  string         `json:"event_type"`
	Severity   string         `json:"severity"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Recipients []string       `json:"recipients,omitempty"` // user ids, directed only
	Emails     []string       `json:"emails,omitempty"`     // mail channel only
	Data       map[string]any `json:"data,omitempty"`
}

// RedisNotifier serves the broadcast, directed-message and external-mail
// channels over Redis pub/sub. The websocket hub consumes the first two
// streams; the notify-bridge drains the mail stream so SMTP latency never
// sits inside a dispatch call.
type RedisNotifier struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisNotifier(client *redis.Client, log *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, log: log}
}

func (n *RedisNotifier) Deliver(ctx context.Context, channel events.Channel, recipients []Recipient, content Content) error {
	wire := WireNotification{
		EventType: content.EventType,
		Severity:  content.Severity,
		Title:     content.Title,
		Body:      content.Body,
		Data:      content.Data,
	}

	stream := StreamBroadcast
	switch channel {
	case events.ChannelDirected:
		stream = StreamDirected
		for _, rec := range recipients {
			wire.Recipients = append(wire.Recipients, rec.User.ID.String())
		}
	case events.ChannelMail:
		stream = StreamMail
		for _, rec := range recipients {
			if rec.User.Email != "" {
				wire.Emails = append(wire.Emails, rec.User.Email)
			}
		}
		if len(wire.Emails) == 0 {
			return nil
		}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, stream, string(data)).Err()
}

// Subscriber receives wire notifications from a Redis stream.
type Subscriber struct {
	client *redis.Client
	log    *zap.Logger
}

func NewSubscriber(client *redis.Client, log *zap.Logger) *Subscriber {
	return &Subscriber{client: client, log: log}
}

func (s *Subscriber) Subscribe(ctx context.Context, stream string, handler func(WireNotification)) error {
	pubsub := s.client.Subscribe(ctx, stream)
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var wire WireNotification
				if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
					s.log.Error("failed to unmarshal notification", zap.Error(err))
					continue
				}
				handler(wire)
			}
		}
	}()

	return nil
}
