package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medtrack/backend/internal/events"
	"github.com/medtrack/backend/internal/models"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	byRole  []models.User
	byScope []models.User
	err     error
}

func (d *fakeDirectory) FindUsersByRole(_ context.Context, _ []string) ([]models.User, error) {
	return d.byRole, d.err
}

func (d *fakeDirectory) FindUsersByScope(_ context.Context, _ uuid.UUID) ([]models.User, error) {
	return d.byScope, d.err
}

func user(role string, active bool, scope *uuid.UUID) models.User {
	return models.User{ID: uuid.New(), Role: role, IsActive: active, ServiceID: scope}
}

func ids(recipients []Recipient) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(recipients))
	for _, r := range recipients {
		out[r.User.ID] = true
	}
	return out
}

func TestResolveCritical(t *testing.T) {
	admin := user("admin", true, nil)
	supervisor := user("supervisor", true, nil)
	inactive := user("admin", false, nil)
	dir := &fakeDirectory{byRole: []models.User{admin, supervisor, inactive}}
	r := NewResolver(dir, time.Second, zap.NewNop())

	actorID := admin.ID
	ev := events.New(events.EventUserDeleted, &actorID, nil, nil)

	got, err := r.Resolve(context.Background(), ev, events.SeverityCritical)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	set := ids(got)
	if set[actorID] {
		t.Error("actor should be excluded when another recipient exists")
	}
	if !set[supervisor.ID] {
		t.Error("supervisor missing from critical recipients")
	}
	if set[inactive.ID] {
		t.Error("inactive user must never be selected")
	}
	for _, rec := range got {
		if rec.Reason != ReasonRole {
			t.Errorf("critical recipient reason = %s, want %s", rec.Reason, ReasonRole)
		}
	}
}

func TestResolveCriticalSoleAdminKept(t *testing.T) {
	admin := user("admin", true, nil)
	dir := &fakeDirectory{byRole: []models.User{admin}}
	r := NewResolver(dir, time.Second, zap.NewNop())

	actorID := admin.ID
	ev := events.New(events.EventAdminDatabaseReset, &actorID, nil, nil)

	got, err := r.Resolve(context.Background(), ev, events.SeverityCritical)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].User.ID != admin.ID {
		t.Errorf("sole administrator must remain a recipient, got %v", got)
	}
}

func TestResolveHighUnion(t *testing.T) {
	scope := uuid.New()
	admin := user("admin", true, nil)
	techInScope := user("technician", true, &scope)
	dir := &fakeDirectory{
		byRole:  []models.User{admin},
		byScope: []models.User{techInScope},
	}
	r := NewResolver(dir, time.Second, zap.NewNop())

	ev := events.New(events.EventEquipmentStatusChanged, nil,
		map[string]any{"service_id": scope.String()}, nil)

	got, err := r.Resolve(context.Background(), ev, events.SeverityHigh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set := ids(got)
	if !set[admin.ID] || !set[techInScope.ID] {
		t.Errorf("high tier should union scope and supervisory users, got %v", got)
	}
}

func TestResolveHighDeduplicates(t *testing.T) {
	scope := uuid.New()
	// Supervisor both in scope and supervisory
	supervisor := user("supervisor", true, &scope)
	dir := &fakeDirectory{
		byRole:  []models.User{supervisor},
		byScope: []models.User{supervisor},
	}
	r := NewResolver(dir, time.Second, zap.NewNop())

	ev := events.New(events.EventEquipmentStatusChanged, nil,
		map[string]any{"service_id": scope}, nil)

	got, err := r.Resolve(context.Background(), ev, events.SeverityHigh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected deduplicated single recipient, got %d", len(got))
	}
	if got[0].Reason != ReasonScope {
		t.Errorf("first-match reason should win, got %s", got[0].Reason)
	}
}

func TestResolveNormalScopeOnly(t *testing.T) {
	scope := uuid.New()
	techInScope := user("technician", true, &scope)
	dir := &fakeDirectory{
		byRole:  []models.User{user("admin", true, nil)},
		byScope: []models.User{techInScope},
	}
	r := NewResolver(dir, time.Second, zap.NewNop())

	withScope := events.New(events.EventEquipmentUpdated, nil,
		map[string]any{"service_id": scope.String()}, nil)
	got, err := r.Resolve(context.Background(), withScope, events.SeverityNormal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].User.ID != techInScope.ID {
		t.Errorf("normal tier should target scope only, got %v", got)
	}

	// No organizational scope below high yields nobody
	withoutScope := events.New(events.EventEquipmentUpdated, nil, nil, nil)
	got, err = r.Resolve(context.Background(), withoutScope, events.SeverityNormal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("scopeless normal event should have no recipients, got %v", got)
	}
}

func TestResolveDirectoryError(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("directory down")}
	r := NewResolver(dir, time.Second, zap.NewNop())

	ev := events.New(events.EventUserDeleted, nil, nil, nil)
	if _, err := r.Resolve(context.Background(), ev, events.SeverityCritical); err == nil {
		t.Fatal("expected error when directory is unavailable")
	}
}

func TestResolveDeterministic(t *testing.T) {
	scope := uuid.New()
	users := []models.User{
		user("technician", true, &scope),
		user("operator", true, &scope),
	}
	dir := &fakeDirectory{byScope: users}
	r := NewResolver(dir, time.Second, zap.NewNop())
	ev := events.New(events.EventEquipmentUpdated, nil,
		map[string]any{"service_id": scope}, nil)

	first, _ := r.Resolve(context.Background(), ev, events.SeverityNormal)
	second, _ := r.Resolve(context.Background(), ev, events.SeverityNormal)
	if len(first) != len(second) {
		t.Fatalf("resolution not deterministic: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].User.ID != second[i].User.ID {
			t.Errorf("recipient order differs at %d", i)
		}
	}
}
