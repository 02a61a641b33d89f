package observer

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"
	"github.com/medtrack/backend/internal/dispatch"
	"github.com/medtrack/backend/internal/events"
	"github.com/medtrack/backend/internal/models"
	"go.uber.org/zap"
)

// EventSink is where observed mutations end up; in production the
// dispatcher.
type EventSink interface {
	Dispatch(ctx context.Context, ev events.Event) (dispatch.Outcome, error)
}

// SnapshotProvider returns the field map of an entity at a point in time.
// Needed before removal, since a deletion event carries data that stops
// being queryable afterward.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, entityType, entityID string) (map[string]any, error)
}

// timestampFields are bookkeeping columns; a change touching only these is
// not a business event.
var timestampFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"deleted_at":     true,
	"last_active_at": true,
}

// Observer converts persistence-layer create/update/delete notifications
// into Event Records fed to the dispatcher. Dispatch stays synchronous so
// audit order per entity follows mutation order.
type Observer struct {
	sink      EventSink
	snapshots SnapshotProvider
	codes     *CodeGenerator
	log       *zap.Logger
}

func New(sink EventSink, snapshots SnapshotProvider, codes *CodeGenerator, log *zap.Logger) *Observer {
	return &Observer{sink: sink, snapshots: snapshots, codes: codes, log: log}
}

// OnEntityCreating assigns a unique code when the entity has none, then
// dispatches the created event. The fields map is the entity about to be
// persisted; the code is written into it.
func (o *Observer) OnEntityCreating(ctx context.Context, entityType string, fields map[string]any, actor *uuid.UUID, meta map[string]any) error {
	if o.codes != nil {
		if code, _ := fields["code"].(string); code == "" {
			code, err := o.codes.Generate(ctx, entityType)
			if err != nil {
				return fmt.Errorf("assign code for %s: %w", entityType, err)
			}
			if code != "" {
				fields["code"] = code
			}
		}
	}

	payload := basePayload(entityType, fields["id"], fields)
	payload["new_values"] = fields

	_, err := o.sink.Dispatch(ctx, events.New(entityType+".created", actor, payload, meta))
	return err
}

// OnEntityMutated diffs before and after, skipping timestamp-only changes,
// and dispatches the updated event. A status change additionally dispatches
// the more specific status-changed event.
func (o *Observer) OnEntityMutated(ctx context.Context, entityType string, before, after map[string]any, actor *uuid.UUID, meta map[string]any) error {
	changed := diffFields(before, after)
	if len(changed) == 0 {
		return nil
	}

	payload := basePayload(entityType, entityID(before, after), after)
	payload["changed_fields"] = changed
	payload["old_values"] = subset(before, changed)
	payload["new_values"] = subset(after, changed)

	if _, err := o.sink.Dispatch(ctx, events.New(entityType+".updated", actor, payload, meta)); err != nil {
		return err
	}

	if containsField(changed, "status") {
		statusPayload := basePayload(entityType, entityID(before, after), after)
		statusPayload["old_status"] = before["status"]
		statusPayload["new_status"] = after["status"]
		statusPayload["changed_fields"] = []string{"status"}
		if _, err := o.sink.Dispatch(ctx, events.New(entityType+".status_changed", actor, statusPayload, meta)); err != nil {
			return err
		}
	}
	return nil
}

// OnEntityRemoving captures the entity snapshot before physical removal and
// dispatches the deleted event carrying it.
func (o *Observer) OnEntityRemoving(ctx context.Context, entityType, id string, actor *uuid.UUID, meta map[string]any) error {
	snapshot, err := o.snapshots.Snapshot(ctx, entityType, id)
	if err != nil {
		o.log.Warn("snapshot before removal failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", id),
			zap.Error(err),
		)
		snapshot = nil
	}

	payload := basePayload(entityType, id, snapshot)
	payload["old_values"] = snapshot

	_, err = o.sink.Dispatch(ctx, events.New(entityType+".deleted", actor, payload, meta))
	return err
}

// basePayload carries the entity reference plus the routing hints the
// classifier and resolver read: organizational scope and equipment risk.
func basePayload(entityType string, id any, fields map[string]any) map[string]any {
	payload := map[string]any{}
	if id != nil {
		payload[entityType+"_id"] = id
	}
	for _, key := range []string{"service_id", "area_id"} {
		if v, ok := fields[key]; ok && v != nil {
			payload[key] = v
		}
	}
	if risk, _ := fields["risk_class"].(string); risk == models.RiskClassIIb || risk == models.RiskClassIII {
		payload["high_risk"] = true
	}
	if due, ok := fields["scheduled_at"]; ok {
		payload["scheduled_at"] = due
	}
	return payload
}

func entityID(before, after map[string]any) any {
	if id, ok := after["id"]; ok {
		return id
	}
	return before["id"]
}

// diffFields is the symmetric difference of the two field maps, timestamp
// fields excluded, sorted for determinism.
func diffFields(before, after map[string]any) []string {
	changedSet := make(map[string]bool)
	for k, v := range after {
		if timestampFields[k] {
			continue
		}
		if prev, ok := before[k]; !ok || !reflect.DeepEqual(prev, v) {
			changedSet[k] = true
		}
	}
	for k := range before {
		if timestampFields[k] {
			continue
		}
		if _, ok := after[k]; !ok {
			changedSet[k] = true
		}
	}

	changed := make([]string, 0, len(changedSet))
	for k := range changedSet {
		changed = append(changed, k)
	}
	sort.Strings(changed)
	return changed
}

func subset(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
