package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySink keeps audit records in memory. Used in tests and as a fallback
// sink when no database is wired.
type MemorySink struct {
	redactor *Redactor

	mu   sync.Mutex
	recs []Record
}

func NewMemorySink(redactor *Redactor) *MemorySink {
	if redactor == nil {
		redactor = NewRedactor(nil)
	}
	return &MemorySink{redactor: redactor}
}

func (s *MemorySink) Append(_ context.Context, rec Record) error {
	rec = s.redactor.Sanitize(rec)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

// Records returns a copy of everything appended so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.recs))
	copy(out, s.recs)
	return out
}

// ByEntity filters records for one entity, oldest first.
func (s *MemorySink) ByEntity(entityType, entityID string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.recs {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			out = append(out, rec)
		}
	}
	return out
}
