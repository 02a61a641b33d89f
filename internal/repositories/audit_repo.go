package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medtrack/backend/internal/audit"
)

// AuditRepo is the Postgres audit sink. Every record is sanitized inside
// Append, so no call path can store an unredacted value.
type AuditRepo struct {
	pool     *pgxpool.Pool
	redactor *audit.Redactor
}

func NewAuditRepo(pool *pgxpool.Pool, redactor *audit.Redactor) *AuditRepo {
	if redactor == nil {
		redactor = audit.NewRedactor(nil)
	}
	return &AuditRepo{pool: pool, redactor: redactor}
}

func (r *AuditRepo) Append(ctx context.Context, rec audit.Record) error {
	rec = r.redactor.Sanitize(rec)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (event_type, entity_type, entity_id, actor, old_values, new_values, changed_fields, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.EventType, rec.EntityType, nullable(rec.EntityID), rec.Actor,
		rec.OldValues, rec.NewValues, rec.ChangedFields, rec.Outcome, rec.Detail, rec.CreatedAt)
	return err
}

func (r *AuditRepo) GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, entity_type, entity_id, actor, old_values, new_values, changed_fields, outcome, detail, created_at
		FROM audit_log WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, entityType, entityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *AuditRepo) GetByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, entity_type, entity_id, actor, old_values, new_values, changed_fields, outcome, detail, created_at
		FROM audit_log WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
}

func scanRecords(rows pgxRows) ([]audit.Record, error) {
	var recs []audit.Record
	for rows.Next() {
		var (
			rec      audit.Record
			entityID *string
		)
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.EntityType, &entityID, &rec.Actor,
			&rec.OldValues, &rec.NewValues, &rec.ChangedFields, &rec.Outcome, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if entityID != nil {
			rec.EntityID = *entityID
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
