package events

import (
	"testing"

	"github.com/google/uuid"
)

func TestEventImmutability(t *testing.T) {
	payload := map[string]any{"equipment_id": 42, "status": "operational"}
	ev := New(EventEquipmentCreated, nil, payload, nil)

	// Mutating the caller's map must not reach the record
	payload["status"] = "out_of_service"
	if got := ev.PayloadString("status"); got != "operational" {
		t.Errorf("record saw caller mutation: %q", got)
	}

	// Mutating a returned copy must not either
	copied := ev.PayloadMap()
	copied["status"] = "decommissioned"
	if got := ev.PayloadString("status"); got != "operational" {
		t.Errorf("record saw copy mutation: %q", got)
	}
}

func TestEventCategory(t *testing.T) {
	tests := []struct {
		typ      string
		expected string
	}{
		{EventEquipmentCreated, CategoryEquipment},
		{EventMaintenanceCompleted, CategoryMaintenance},
		{EventUserLoggedIn, CategoryUser},
		{EventAdminDatabaseReset, CategoryAdministration},
		{"nodot", "nodot"},
	}
	for _, tt := range tests {
		if got := New(tt.typ, nil, nil, nil).Category(); got != tt.expected {
			t.Errorf("Category(%s) = %s, want %s", tt.typ, got, tt.expected)
		}
	}
}

func TestEventEntityRef(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name     string
		typ      string
		payload  map[string]any
		wantType string
		wantID   string
	}{
		{"int id", EventEquipmentDeleted, map[string]any{"equipment_id": 42}, "equipment", "42"},
		{"uuid id", EventMaintenanceScheduled, map[string]any{"maintenance_id": id}, "maintenance", id.String()},
		{"string id", EventContingencyCreated, map[string]any{"contingency_id": "CT20250001"}, "contingency", "CT20250001"},
		{"generic entity_id", EventFileProcessed, map[string]any{"entity_id": 7}, "file", "7"},
		{"no id", EventUserLoggedIn, nil, "user", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entityType, entityID := New(tt.typ, nil, tt.payload, nil).EntityRef()
			if entityType != tt.wantType || entityID != tt.wantID {
				t.Errorf("EntityRef() = (%s, %s), want (%s, %s)", entityType, entityID, tt.wantType, tt.wantID)
			}
		})
	}
}

func TestActorID(t *testing.T) {
	if got := New(EventFileProcessed, nil, nil, nil).ActorID(); got != "system" {
		t.Errorf("system event actor = %q, want system", got)
	}
	actor := uuid.New()
	if got := New(EventFileProcessed, &actor, nil, nil).ActorID(); got != actor.String() {
		t.Errorf("actor = %q, want %s", got, actor)
	}
}

func TestSeverityOrdering(t *testing.T) {
	if !(SeverityLow < SeverityNormal && SeverityNormal < SeverityHigh && SeverityHigh < SeverityCritical) {
		t.Fatal("severity order broken")
	}
	if SeverityCritical.Escalate() != SeverityCritical {
		t.Error("critical must cap escalation")
	}
	if SeverityNormal.Escalate() != SeverityHigh {
		t.Error("normal should escalate to high")
	}
}
