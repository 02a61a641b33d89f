package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dispatch outcomes recorded on audit entries.
const (
	OutcomeDelivered       = "delivered"
	OutcomePartiallyFailed = "partially_failed"
	OutcomeDispatchFailed  = "dispatch_failed"
)

// ActorSystem marks records with no acting user.
const ActorSystem = "system"

// Redacted replaces sensitive values before storage.
const Redacted = "[REDACTED]"

// Record is one append-only audit entry. Records are never mutated after
// Append.
type Record struct {
	ID            uuid.UUID      `json:"id"`
	EventType     string         `json:"event_type"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id,omitempty"`
	Actor         string         `json:"actor"`
	OldValues     map[string]any `json:"old_values,omitempty"`
	NewValues     map[string]any `json:"new_values,omitempty"`
	ChangedFields []string       `json:"changed_fields,omitempty"`
	Outcome       string         `json:"outcome"`
	Detail        map[string]any `json:"detail,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Sink is the append-only audit store. Appends must be atomic at record
// granularity; implementations sanitize every record themselves so no call
// path can store an unredacted value.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// DefaultSensitiveFields is the redaction set applied when none is
// configured.
var DefaultSensitiveFields = []string{
	"password", "token", "secret", "api_key", "authorization", "credential",
}

// Redactor replaces sensitive field values in audit records. Matching is
// case-insensitive on field-name substrings, so "password_hash" and
// "AccessToken" both redact.
type Redactor struct {
	fields []string
}

func NewRedactor(fields []string) *Redactor {
	if len(fields) == 0 {
		fields = DefaultSensitiveFields
	}
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}
	return &Redactor{fields: lowered}
}

// Sanitize returns a copy of rec with sensitive values replaced, including
// values nested in maps and slices.
func (r *Redactor) Sanitize(rec Record) Record {
	rec.OldValues = r.sanitizeMap(rec.OldValues)
	rec.NewValues = r.sanitizeMap(rec.NewValues)
	rec.Detail = r.sanitizeMap(rec.Detail)
	return rec
}

func (r *Redactor) sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, f := range r.fields {
		if strings.Contains(k, f) {
			return true
		}
	}
	return false
}

func (r *Redactor) sanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.sensitive(k) {
			out[k] = Redacted
			continue
		}
		out[k] = r.sanitizeValue(v)
	}
	return out
}

func (r *Redactor) sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return r.sanitizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.sanitizeValue(item)
		}
		return out
	}
	return v
}
