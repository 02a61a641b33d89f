package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	ServiceID    *uuid.UUID `json:"service_id,omitempty"`
	AreaID       *uuid.UUID `json:"area_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
}

// InScope reports whether the user belongs to the given service or area.
func (u User) InScope(scopeID uuid.UUID) bool {
	if u.ServiceID != nil && *u.ServiceID == scopeID {
		return true
	}
	return u.AreaID != nil && *u.AreaID == scopeID
}
