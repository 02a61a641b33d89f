package models

import (
	"time"

	"github.com/google/uuid"
)

// Equipment status constants
const (
	EquipmentStatusOperational    = "operational"
	EquipmentStatusInMaintenance  = "in_maintenance"
	EquipmentStatusOutOfService   = "out_of_service"
	EquipmentStatusDecommissioned = "decommissioned"
)

// Risk classes follow the usual biomedical classification; IIb and III
// equipment escalates event priority.
const (
	RiskClassI   = "I"
	RiskClassIIa = "IIa"
	RiskClassIIb = "IIb"
	RiskClassIII = "III"
)

type Equipment struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Brand     *string    `json:"brand,omitempty"`
	Model     *string    `json:"model,omitempty"`
	Serial    *string    `json:"serial,omitempty"`
	Status    string     `json:"status"`
	RiskClass string     `json:"risk_class"`
	ServiceID *uuid.UUID `json:"service_id,omitempty"`
	AreaID    *uuid.UUID `json:"area_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsHighRisk reports whether the equipment's class escalates event priority.
func (e Equipment) IsHighRisk() bool {
	return e.RiskClass == RiskClassIIb || e.RiskClass == RiskClassIII
}

func IsValidEquipmentStatus(s string) bool {
	switch s {
	case EquipmentStatusOperational, EquipmentStatusInMaintenance,
		EquipmentStatusOutOfService, EquipmentStatusDecommissioned:
		return true
	}
	return false
}
