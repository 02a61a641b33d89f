package events

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Categories
const (
	CategoryEquipment      = "equipment"
	CategoryMaintenance    = "maintenance"
	CategoryCalibration    = "calibration"
	CategoryContingency    = "contingency"
	CategoryTraining       = "training"
	CategoryFile           = "file"
	CategoryExport         = "export"
	CategoryUser           = "user"
	CategoryAdministration = "administration"
	CategoryDashboard      = "dashboard"
)

// Event types
const (
	EventEquipmentCreated       = "equipment.created"
	EventEquipmentUpdated       = "equipment.updated"
	EventEquipmentStatusChanged = "equipment.status_changed"
	EventEquipmentDeleted       = "equipment.deleted"

	EventMaintenanceScheduled = "maintenance.scheduled"
	EventMaintenanceCompleted = "maintenance.completed"

	EventCalibrationScheduled = "calibration.scheduled"
	EventCalibrationCompleted = "calibration.completed"

	EventContingencyCreated  = "contingency.created"
	EventContingencyResolved = "contingency.resolved"

	EventTrainingScheduled = "training.scheduled"

	EventFileProcessed   = "file.processed"
	EventExportGenerated = "export.generated"

	EventUserCreated             = "user.created"
	EventUserUpdated             = "user.updated"
	EventUserDeleted             = "user.deleted"
	EventUserLoggedIn            = "user.logged_in"
	EventUserPermissionsModified = "user.permissions_modified"

	EventAdminConfigChanged  = "administration.system_config_changed"
	EventAdminBulkUpdate     = "administration.bulk_update"
	EventAdminBulkDelete     = "administration.bulk_delete"
	EventAdminDatabaseReset  = "administration.database_reset"
	EventAdminBackupRestored = "administration.backup_restored"
)

// Event is an immutable record of one domain occurrence. Priority, channels
// and recipients are always computed from it, never stored on it.
type Event struct {
	typ        string
	category   string
	actor      *uuid.UUID
	payload    map[string]any
	metadata   map[string]any
	occurredAt time.Time
}

// New builds an Event. The category is the part of typ before the first dot.
// Payload and metadata are copied so later mutation by the caller cannot
// reach the record.
func New(typ string, actor *uuid.UUID, payload, metadata map[string]any) Event {
	category := typ
	if i := strings.IndexByte(typ, '.'); i >= 0 {
		category = typ[:i]
	}
	return Event{
		typ:        typ,
		category:   category,
		actor:      actor,
		payload:    copyMap(payload),
		metadata:   copyMap(metadata),
		occurredAt: time.Now(),
	}
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (e Event) Type() string          { return e.typ }
func (e Event) Category() string      { return e.category }
func (e Event) Actor() *uuid.UUID     { return e.actor }
func (e Event) OccurredAt() time.Time { return e.occurredAt }

// Payload returns the named payload field.
func (e Event) Payload(key string) (any, bool) {
	v, ok := e.payload[key]
	return v, ok
}

// PayloadMap returns a copy of the full payload.
func (e Event) PayloadMap() map[string]any { return copyMap(e.payload) }

// Metadata returns the named request-context field (origin IP, user agent,
// correlation id and the like, supplied by the caller).
func (e Event) Metadata(key string) (any, bool) {
	v, ok := e.metadata[key]
	return v, ok
}

// MetadataMap returns a copy of the full metadata.
func (e Event) MetadataMap() map[string]any { return copyMap(e.metadata) }

// PayloadString reads a payload field as a string, empty if absent or not a
// string.
func (e Event) PayloadString(key string) string {
	s, _ := e.payload[key].(string)
	return s
}

// PayloadBool reads a payload field as a bool, false if absent.
func (e Event) PayloadBool(key string) bool {
	b, _ := e.payload[key].(bool)
	return b
}

// ChangedFields reads the "changed_fields" payload entry set by the lifecycle
// observer on mutation events.
func (e Event) ChangedFields() []string {
	switch v := e.payload["changed_fields"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, f := range v {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ActorID returns the actor's id, or "system" for system-originated events.
func (e Event) ActorID() string {
	if e.actor == nil {
		return "system"
	}
	return e.actor.String()
}

// EntityRef resolves the entity the event is about: the "<category>_id"
// payload field, falling back to "entity_id". The id is returned as a string
// regardless of the payload's numeric type.
func (e Event) EntityRef() (entityType, entityID string) {
	for _, key := range []string{e.category + "_id", "entity_id"} {
		if v, ok := e.payload[key]; ok {
			return e.category, stringifyID(v)
		}
	}
	return e.category, ""
}

func stringifyID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case uuid.UUID:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		return strconv.FormatInt(int64(id), 10)
	}
	return ""
}
