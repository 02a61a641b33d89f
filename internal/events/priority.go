package events

import "time"

// criticalTypes always classify critical, regardless of payload.
var criticalTypes = map[string]bool{
	EventUserDeleted:         true,
	EventAdminConfigChanged:  true,
	EventAdminBulkDelete:     true,
	EventAdminDatabaseReset:  true,
	EventAdminBackupRestored: true,
}

// highTypes classify high unless a critical rule already matched.
var highTypes = map[string]bool{
	EventUserCreated:             true,
	EventUserPermissionsModified: true,
	EventAdminBulkUpdate:         true,
	EventContingencyCreated:      true,
}

// criticalFields lists the per-category fields whose change alone makes a
// mutation high priority.
var criticalFields = map[string][]string{
	CategoryEquipment:   {"status", "service_id", "area_id"},
	CategoryMaintenance: {"status", "scheduled_at"},
	CategoryCalibration: {"status", "scheduled_at"},
	CategoryContingency: {"status"},
	CategoryUser:        {"role", "is_active", "service_id"},
}

// dueKeys are the payload fields checked by the time-sensitivity rule.
var dueKeys = []string{"scheduled_at", "due_at", "scheduled_date", "due_date"}

// LoginPolicy reports whether a login event looks suspicious. Pluggable;
// the default checks only the off-hours window and an explicit flag.
type LoginPolicy func(ev Event) bool

// Classifier maps an event to a severity tier. It is total: any event
// classifies, defaulting to normal.
type Classifier struct {
	now   func() time.Time
	login LoginPolicy
}

// NewClassifier builds a classifier. now and login may be nil, falling back
// to time.Now and the default off-hours policy.
func NewClassifier(now func() time.Time, login LoginPolicy) *Classifier {
	if now == nil {
		now = time.Now
	}
	if login == nil {
		login = OffHoursLoginPolicy(6, 22)
	}
	return &Classifier{now: now, login: login}
}

// Classify applies the rules in precedence order, then the equipment-risk
// escalation on top of the base tier.
func (c *Classifier) Classify(ev Event) Severity {
	tier := c.base(ev)
	if referencesHighRiskEquipment(ev) {
		tier = tier.Escalate()
	}
	return tier
}

func (c *Classifier) base(ev Event) Severity {
	typ := ev.Type()
	if criticalTypes[typ] {
		return SeverityCritical
	}
	if highTypes[typ] {
		return SeverityHigh
	}
	if due, ok := dueTime(ev); ok && !due.After(c.now().Add(24*time.Hour)) {
		return SeverityHigh
	}
	if intersects(criticalFields[ev.Category()], ev.ChangedFields()) {
		return SeverityHigh
	}
	if typ == EventUserLoggedIn {
		if c.login(ev) {
			return SeverityHigh
		}
		return SeverityLow
	}
	return SeverityNormal
}

// OffHoursLoginPolicy flags logins outside [start, end) local hours, or ones
// the caller already marked suspicious. The hour comes from metadata when
// the request context carries it, otherwise from the event timestamp.
func OffHoursLoginPolicy(start, end int) LoginPolicy {
	return func(ev Event) bool {
		if v, ok := ev.Metadata("suspicious"); ok {
			if b, ok := v.(bool); ok && b {
				return true
			}
		}
		if v, ok := ev.Metadata("known_origin"); ok {
			if b, ok := v.(bool); ok && !b {
				return true
			}
		}
		hour := ev.OccurredAt().Hour()
		if v, ok := ev.Metadata("hour"); ok {
			switch h := v.(type) {
			case int:
				hour = h
			case float64:
				hour = int(h)
			}
		}
		return hour < start || hour >= end
	}
}

func referencesHighRiskEquipment(ev Event) bool {
	if ev.PayloadString("risk") == "high" {
		return true
	}
	return ev.PayloadBool("high_risk")
}

func dueTime(ev Event) (time.Time, bool) {
	for _, key := range dueKeys {
		v, ok := ev.Payload(key)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02"} {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed, true
				}
			}
		}
	}
	return time.Time{}, false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
