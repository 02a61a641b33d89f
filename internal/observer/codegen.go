package observer

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// CodeStore checks generated codes against the persisted set.
type CodeStore interface {
	CodeExists(ctx context.Context, entityType, code string) (bool, error)
}

// codePrefixes maps entity types to their inventory code prefix. Entity
// types without a prefix get no generated code.
var codePrefixes = map[string]string{
	"equipment":   "EQ",
	"maintenance": "MT",
	"calibration": "CB",
	"contingency": "CT",
	"training":    "TR",
}

// CodeGenerator produces unique entity codes in the form
// <PREFIX><YEAR><4 random digits>, regenerating on collision up to a bounded
// number of attempts.
type CodeGenerator struct {
	store      CodeStore
	maxRetries int
	now        func() time.Time
	digits     func() int
}

// NewCodeGenerator builds a generator. maxRetries <= 0 defaults to 10; now
// and digits are injectable for tests.
func NewCodeGenerator(store CodeStore, maxRetries int, now func() time.Time, digits func() int) *CodeGenerator {
	if maxRetries <= 0 {
		maxRetries = 10
	}
	if now == nil {
		now = time.Now
	}
	if digits == nil {
		digits = func() int { return rand.Intn(10000) }
	}
	return &CodeGenerator{store: store, maxRetries: maxRetries, now: now, digits: digits}
}

// Generate returns a fresh code for the entity type, or "" when the type
// has no code prefix.
func (g *CodeGenerator) Generate(ctx context.Context, entityType string) (string, error) {
	prefix, ok := codePrefixes[entityType]
	if !ok {
		return "", nil
	}

	year := g.now().Year()
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		code := fmt.Sprintf("%s%d%04d", prefix, year, g.digits())
		exists, err := g.store.CodeExists(ctx, entityType, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("code generation for %s exhausted %d attempts", entityType, g.maxRetries)
}
