package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medtrack/backend/internal/models"
)

// EquipmentRepo serves the observer's code-collision checks and pre-removal
// snapshots.
type EquipmentRepo struct {
	pool *pgxpool.Pool
}

func NewEquipmentRepo(pool *pgxpool.Pool) *EquipmentRepo {
	return &EquipmentRepo{pool: pool}
}

// codeTables maps entity types to the tables holding their codes.
var codeTables = map[string]string{
	"equipment":   "equipment",
	"maintenance": "maintenance_orders",
	"calibration": "calibrations",
	"contingency": "contingencies",
	"training":    "trainings",
}

func (r *EquipmentRepo) CodeExists(ctx context.Context, entityType, code string) (bool, error) {
	table, ok := codeTables[entityType]
	if !ok {
		return false, fmt.Errorf("unknown entity type %q", entityType)
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM "+table+" WHERE code = $1)", code,
	).Scan(&exists)
	return exists, err
}

// Snapshot returns the full field map of one entity row, marshalled through
// row_to_json so new columns never need repo changes.
func (r *EquipmentRepo) Snapshot(ctx context.Context, entityType, entityID string) (map[string]any, error) {
	table, ok := codeTables[entityType]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
	var raw []byte
	err := r.pool.QueryRow(ctx,
		"SELECT row_to_json(t) FROM "+table+" t WHERE id = $1", entityID,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *EquipmentRepo) Insert(ctx context.Context, e *models.Equipment) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO equipment (id, code, name, brand, model, serial, status, risk_class, service_id, area_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, e.ID, e.Code, e.Name, e.Brand, e.Model, e.Serial, e.Status, e.RiskClass, e.ServiceID, e.AreaID).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *EquipmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE equipment SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

func (r *EquipmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	return err
}

func (r *EquipmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Equipment, error) {
	var e models.Equipment
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, brand, model, serial, status, risk_class, service_id, area_id, created_at, updated_at
		FROM equipment WHERE id = $1
	`, id).Scan(&e.ID, &e.Code, &e.Name, &e.Brand, &e.Model, &e.Serial, &e.Status, &e.RiskClass,
		&e.ServiceID, &e.AreaID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
