package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medtrack/backend/internal/audit"
	"github.com/medtrack/backend/internal/events"
	"github.com/medtrack/backend/internal/models"
	"github.com/medtrack/backend/internal/notify"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	users []models.User
	err   error
}

func (d *fakeDirectory) FindUsersByRole(_ context.Context, _ []string) ([]models.User, error) {
	return d.users, d.err
}

func (d *fakeDirectory) FindUsersByScope(_ context.Context, _ uuid.UUID) ([]models.User, error) {
	return d.users, d.err
}

// fakeNotifier records deliveries and can fail or stall per channel.
type fakeNotifier struct {
	fail  map[events.Channel]error
	delay map[events.Channel]time.Duration

	mu        sync.Mutex
	delivered []events.Channel
}

func (n *fakeNotifier) Deliver(ctx context.Context, channel events.Channel, _ []notify.Recipient, _ notify.Content) error {
	if d, ok := n.delay[channel]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err, ok := n.fail[channel]; ok {
		return err
	}
	n.mu.Lock()
	n.delivered = append(n.delivered, channel)
	n.mu.Unlock()
	return nil
}

type failingSink struct{}

func (failingSink) Append(context.Context, audit.Record) error {
	return errors.New("disk full")
}

func newTestDispatcher(dir notify.Directory, notifier notify.Notifier, sink audit.Sink, timeout time.Duration) *Dispatcher {
	log := zap.NewNop()
	classifier := events.NewClassifier(nil, nil)
	resolver := notify.NewResolver(dir, time.Second, log)
	return New(classifier, resolver, notifier, sink, nil, timeout, log)
}

func supervisors() []models.User {
	return []models.User{
		{ID: uuid.New(), Role: "admin", IsActive: true},
		{ID: uuid.New(), Role: "supervisor", IsActive: true},
	}
}

func hasChannel(channels []events.Channel, want events.Channel) bool {
	for _, c := range channels {
		if c == want {
			return true
		}
	}
	return false
}

func TestDispatchHighRiskDeletion(t *testing.T) {
	notifier := &fakeNotifier{}
	sink := audit.NewMemorySink(nil)
	d := newTestDispatcher(&fakeDirectory{users: supervisors()}, notifier, sink, 0)

	ev := events.New(events.EventEquipmentDeleted, nil,
		map[string]any{"equipment_id": 42, "risk": "high"}, nil)

	outcome, err := d.Dispatch(context.Background(), ev)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if outcome.Tier != events.SeverityHigh {
		t.Errorf("tier = %s, want high", outcome.Tier)
	}
	for _, want := range []events.Channel{events.ChannelPersisted, events.ChannelBroadcast, events.ChannelMail} {
		if !hasChannel(outcome.Channels, want) {
			t.Errorf("channel %s missing from %v", want, outcome.Channels)
		}
	}
	if len(outcome.DeliveryErrors) != 0 {
		t.Errorf("unexpected delivery errors: %v", outcome.DeliveryErrors)
	}

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.EntityType != "equipment" || rec.EntityID != "42" {
		t.Errorf("entity ref = %s/%s, want equipment/42", rec.EntityType, rec.EntityID)
	}
	if rec.Outcome != audit.OutcomeDelivered {
		t.Errorf("outcome = %s, want %s", rec.Outcome, audit.OutcomeDelivered)
	}
	if rec.Actor != audit.ActorSystem {
		t.Errorf("actor = %s, want %s", rec.Actor, audit.ActorSystem)
	}
}

func TestDispatchLowTierAuditedNotNotified(t *testing.T) {
	notifier := &fakeNotifier{}
	sink := audit.NewMemorySink(nil)
	d := newTestDispatcher(&fakeDirectory{}, notifier, sink, 0)

	actor := uuid.New()
	ev := events.New(events.EventUserLoggedIn, &actor, nil,
		map[string]any{"hour": 10, "known_origin": true})

	outcome, err := d.Dispatch(context.Background(), ev)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if outcome.Tier != events.SeverityLow {
		t.Errorf("tier = %s, want low", outcome.Tier)
	}
	if len(outcome.Channels) != 0 {
		t.Errorf("low-tier login should select no channels, got %v", outcome.Channels)
	}
	if len(notifier.delivered) != 0 {
		t.Errorf("nothing should be delivered, got %v", notifier.delivered)
	}
	if len(sink.Records()) != 1 {
		t.Fatalf("suppressed event still needs its audit record, got %d", len(sink.Records()))
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	notifier := &fakeNotifier{fail: map[events.Channel]error{
		events.ChannelBroadcast: errors.New("redis unavailable"),
	}}
	sink := audit.NewMemorySink(nil)
	d := newTestDispatcher(&fakeDirectory{users: supervisors()}, notifier, sink, 0)

	ev := events.New(events.EventUserDeleted, nil, map[string]any{"user_id": "u1"}, nil)

	outcome, err := d.Dispatch(context.Background(), ev)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(outcome.DeliveryErrors) != 1 {
		t.Fatalf("expected one delivery error, got %v", outcome.DeliveryErrors)
	}
	if outcome.DeliveryErrors[0].Channel != string(events.ChannelBroadcast) {
		t.Errorf("failed channel = %s, want %s", outcome.DeliveryErrors[0].Channel, events.ChannelBroadcast)
	}
	// Siblings still delivered.
	if !hasChannel(notifier.delivered, events.ChannelPersisted) {
		t.Error("persisted channel should deliver despite broadcast failure")
	}

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("expected one audit record, got %d", len(recs))
	}
	if recs[0].Outcome != audit.OutcomePartiallyFailed {
		t.Errorf("outcome = %s, want %s", recs[0].Outcome, audit.OutcomePartiallyFailed)
	}
}

func TestDispatchChannelTimeout(t *testing.T) {
	notifier := &fakeNotifier{delay: map[events.Channel]time.Duration{
		events.ChannelDirected: 200 * time.Millisecond,
	}}
	sink := audit.NewMemorySink(nil)
	d := newTestDispatcher(&fakeDirectory{users: supervisors()}, notifier, sink, 20*time.Millisecond)

	ev := events.New(events.EventUserDeleted, nil, map[string]any{"user_id": "u1"}, nil)

	outcome, err := d.Dispatch(context.Background(), ev)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	var timedOut bool
	for _, derr := range outcome.DeliveryErrors {
		if derr.Channel == string(events.ChannelDirected) {
			timedOut = true
		}
	}
	if !timedOut {
		t.Errorf("stalled channel should time out, errors: %v", outcome.DeliveryErrors)
	}
	if len(sink.Records()) != 1 {
		t.Fatalf("expected one audit record, got %d", len(sink.Records()))
	}
}

func TestDispatchDirectoryFailure(t *testing.T) {
	notifier := &fakeNotifier{}
	sink := audit.NewMemorySink(nil)
	d := newTestDispatcher(&fakeDirectory{err: errors.New("ldap down")}, notifier, sink, 0)

	ev := events.New(events.EventUserDeleted, nil, map[string]any{"user_id": "u1"}, nil)

	outcome, err := d.Dispatch(context.Background(), ev)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	var fromDirectory bool
	for _, derr := range outcome.DeliveryErrors {
		if derr.Channel == SourceDirectory {
			fromDirectory = true
		}
	}
	if !fromDirectory {
		t.Errorf("directory failure should surface as delivery error, got %v", outcome.DeliveryErrors)
	}
	if len(outcome.Recipients) != 0 {
		t.Errorf("no recipients expected when directory is down, got %v", outcome.Recipients)
	}
	// Channels still selected and delivered with an empty recipient set.
	if !hasChannel(notifier.delivered, events.ChannelPersisted) {
		t.Error("delivery should proceed with empty recipients")
	}
	recs := sink.Records()
	if len(recs) != 1 || recs[0].Outcome != audit.OutcomePartiallyFailed {
		t.Errorf("expected one partially_failed record, got %v", recs)
	}
}

func TestDispatchInternalPanic(t *testing.T) {
	sink := audit.NewMemorySink(nil)
	log := zap.NewNop()
	// nil resolver forces a panic inside routing.
	d := New(events.NewClassifier(nil, nil), nil, &fakeNotifier{}, sink, nil, 0, log)

	ev := events.New(events.EventUserDeleted, nil, map[string]any{"user_id": "u1"}, nil)

	if _, err := d.Dispatch(context.Background(), ev); err != nil {
		t.Fatalf("internal failure must not bubble up: %v", err)
	}
	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("expected one audit record, got %d", len(recs))
	}
	if recs[0].Outcome != audit.OutcomeDispatchFailed {
		t.Errorf("outcome = %s, want %s", recs[0].Outcome, audit.OutcomeDispatchFailed)
	}
	if recs[0].Detail["failure_reason"] == nil {
		t.Error("failure_reason missing from detail")
	}
}

func TestDispatchAuditFailureReturnsError(t *testing.T) {
	d := newTestDispatcher(&fakeDirectory{users: supervisors()}, &fakeNotifier{}, failingSink{}, 0)

	ev := events.New(events.EventUserDeleted, nil, map[string]any{"user_id": "u1"}, nil)

	if _, err := d.Dispatch(context.Background(), ev); err == nil {
		t.Fatal("audit append failure must be returned to the caller")
	}
}

func TestDispatchAuditSurvivesCancellation(t *testing.T) {
	sink := audit.NewMemorySink(nil)
	d := newTestDispatcher(&fakeDirectory{users: supervisors()}, &fakeNotifier{}, sink, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev := events.New(events.EventUserDeleted, nil, map[string]any{"user_id": "u1"}, nil)
	if _, err := d.Dispatch(ctx, ev); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(sink.Records()) != 1 {
		t.Fatalf("audit record must be written despite cancelled caller, got %d", len(sink.Records()))
	}
}

func TestDispatchDeterministicRouting(t *testing.T) {
	sink := audit.NewMemorySink(nil)
	d := newTestDispatcher(&fakeDirectory{users: supervisors()}, &fakeNotifier{}, sink, 0)

	ev := events.New(events.EventEquipmentDeleted, nil,
		map[string]any{"equipment_id": 42, "risk": "high"}, nil)

	first, _ := d.Dispatch(context.Background(), ev)
	second, _ := d.Dispatch(context.Background(), ev)
	if first.Tier != second.Tier {
		t.Errorf("tier differs across identical dispatches: %s vs %s", first.Tier, second.Tier)
	}
	if len(first.Channels) != len(second.Channels) {
		t.Errorf("channel set differs: %v vs %v", first.Channels, second.Channels)
	}
}
