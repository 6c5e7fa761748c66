// unit_repository.go implements UnitRepository for the school's branch office records.
package repositories

import (
	"context"
	"database/sql"

	"github.com/autoescola-ideal/sistema-interno/internal/db/models"
)

// UnitRepository handles unit database operations
type UnitRepository struct {
	db *sql.DB
}

// NewUnitRepository creates a new UnitRepository
func NewUnitRepository(db *sql.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// ListUnits retrieves all active units ordered by key
func (r *UnitRepository) ListUnits(ctx context.Context) ([]*models.Unit, error) {
	query := `
		SELECT key, name, active, created_at
		FROM units
		WHERE active = TRUE
		ORDER BY key
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := make([]*models.Unit, 0)
	for rows.Next() {
		unit := &models.Unit{}
		err := rows.Scan(&unit.Key, &unit.Name, &unit.Active, &unit.CreatedAt)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	return units, rows.Err()
}

// GetUnit retrieves a single unit by key
func (r *UnitRepository) GetUnit(ctx context.Context, key string) (*models.Unit, error) {
	query := `SELECT key, name, active, created_at FROM units WHERE key = $1`

	unit := &models.Unit{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(&unit.Key, &unit.Name, &unit.Active, &unit.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return unit, nil
}
