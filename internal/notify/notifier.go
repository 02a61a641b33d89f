package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/medtrack/backend/internal/events"
)

// Content is the rendered notification handed to every channel.
type Content struct {
	EventType string         `json:"event_type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Severity  string         `json:"severity"`
	Data      map[string]any `json:"data,omitempty"`
}

// Notifier delivers rendered content on one channel.
type Notifier interface {
	Deliver(ctx context.Context, channel events.Channel, recipients []Recipient, content Content) error
}

// Render builds the channel-independent content for an event.
func Render(ev events.Event, tier events.Severity) Content {
	entityType, entityID := ev.EntityRef()
	body := fmt.Sprintf("%s event on %s", tier, entityType)
	if entityID != "" {
		body += " " + entityID
	}
	return Content{
		EventType: ev.Type(),
		Title:     strings.ReplaceAll(ev.Type(), ".", " "),
		Body:      body,
		Severity:  tier.String(),
		Data:      ev.PayloadMap(),
	}
}

// Mux routes each channel to its registered notifier.
type Mux struct {
	sinks map[events.Channel]Notifier
}

func NewMux() *Mux {
	return &Mux{sinks: make(map[events.Channel]Notifier)}
}

func (m *Mux) Register(channel events.Channel, n Notifier) {
	m.sinks[channel] = n
}

func (m *Mux) Deliver(ctx context.Context, channel events.Channel, recipients []Recipient, content Content) error {
	sink, ok := m.sinks[channel]
	if !ok {
		return fmt.Errorf("no notifier registered for channel %s", channel)
	}
	return sink.Deliver(ctx, channel, recipients, content)
}
