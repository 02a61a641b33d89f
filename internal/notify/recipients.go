package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medtrack/backend/internal/events"
	"github.com/medtrack/backend/internal/models"
	"github.com/medtrack/backend/internal/rbac"
	"go.uber.org/zap"
)

// Selection reasons recorded on recipients.
const (
	ReasonRole  = "role"
	ReasonScope = "scope"
)

// Recipient is a user selected for notification plus why they were picked.
type Recipient struct {
	User   models.User `json:"user"`
	Reason string      `json:"reason"`
}

// Directory is the user-lookup capability consumed by the resolver. Both
// queries return only what the store knows; the resolver applies the
// active-user filter itself.
type Directory interface {
	FindUsersByRole(ctx context.Context, roles []string) ([]models.User, error)
	FindUsersByScope(ctx context.Context, scopeID uuid.UUID) ([]models.User, error)
}

// Resolver computes the recipient set for an event at a given tier. Given
// the same directory snapshot, resolution is deterministic.
type Resolver struct {
	dir     Directory
	timeout time.Duration
	log     *zap.Logger
}

func NewResolver(dir Directory, timeout time.Duration, log *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{dir: dir, timeout: timeout, log: log}
}

// Resolve returns the users to notify. Critical events go to all active
// supervisory users; high events to the union of scope and supervisory
// users; lower tiers to the organizational scope only. The actor is excluded
// softly: only when at least one other recipient remains.
func (r *Resolver) Resolve(ctx context.Context, ev events.Event, tier events.Severity) ([]Recipient, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var recipients []Recipient
	seen := make(map[uuid.UUID]bool)

	add := func(users []models.User, reason string) {
		for _, u := range users {
			if !u.IsActive || seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			recipients = append(recipients, Recipient{User: u, Reason: reason})
		}
	}

	scopeID, hasScope := eventScope(ev)

	switch {
	case tier == events.SeverityCritical:
		users, err := r.dir.FindUsersByRole(ctx, rbac.SupervisoryRoles())
		if err != nil {
			return nil, err
		}
		add(users, ReasonRole)

	case tier == events.SeverityHigh:
		if hasScope {
			users, err := r.dir.FindUsersByScope(ctx, scopeID)
			if err != nil {
				return nil, err
			}
			add(users, ReasonScope)
		}
		users, err := r.dir.FindUsersByRole(ctx, rbac.SupervisoryRoles())
		if err != nil {
			return nil, err
		}
		add(users, ReasonRole)

	default:
		if !hasScope {
			return nil, nil
		}
		users, err := r.dir.FindUsersByScope(ctx, scopeID)
		if err != nil {
			return nil, err
		}
		add(users, ReasonScope)
	}

	return excludeActor(recipients, ev.Actor()), nil
}

// excludeActor removes the triggering actor only if someone else remains,
// so a self-caused critical event with a single administrator still
// notifies.
func excludeActor(recipients []Recipient, actor *uuid.UUID) []Recipient {
	if actor == nil {
		return recipients
	}
	out := make([]Recipient, 0, len(recipients))
	for _, rec := range recipients {
		if rec.User.ID != *actor {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return recipients
	}
	return out
}

// eventScope reads the organizational scope (service or area) off the event
// payload.
func eventScope(ev events.Event) (uuid.UUID, bool) {
	for _, key := range []string{"service_id", "area_id", "scope_id"} {
		v, ok := ev.Payload(key)
		if !ok {
			continue
		}
		switch id := v.(type) {
		case uuid.UUID:
			return id, true
		case string:
			if parsed, err := uuid.Parse(id); err == nil {
				return parsed, true
			}
		}
	}
	return uuid.Nil, false
}
