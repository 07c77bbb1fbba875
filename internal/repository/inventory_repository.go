package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

const unitColumns = `iu.id, iu.donation_id, iu.component_type, iu.collection_date, iu.expiry_date, iu.status, iu.updated_at`

// InventoryRepository persists inventory units. Units are never inserted without a completed donation.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository constructs the repository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a unit. The UNIQUE donation_id constraint backs the one-unit-per-donation rule.
func (r *InventoryRepository) Create(ctx context.Context, exec sqlx.ExtContext, unit *models.InventoryUnit) error {
	if unit == nil {
		return fmt.Errorf("inventory unit payload is nil")
	}
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	if unit.Status == "" {
		unit.Status = models.UnitStatusAvailable
	}
	if unit.UpdatedAt.IsZero() {
		unit.UpdatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO inventory_units (id, donation_id, component_type, collection_date, expiry_date, status, updated_at)
VALUES (:id, :donation_id, :component_type, :collection_date, :expiry_date, :status, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, unit); err != nil {
		return fmt.Errorf("insert inventory unit: %w", err)
	}
	return nil
}

// LockByDonation returns the unit created from the donation and holds its row lock.
func (r *InventoryRepository) LockByDonation(ctx context.Context, exec sqlx.ExtContext, donationID string) (*models.InventoryUnit, error) {
	const query = `SELECT ` + unitColumns + ` FROM inventory_units iu WHERE iu.donation_id = $1 FOR UPDATE`
	var unit models.InventoryUnit
	if err := sqlx.GetContext(ctx, r.exec(exec), &unit, query, donationID); err != nil {
		return nil, fmt.Errorf("lock unit by donation: %w", err)
	}
	return &unit, nil
}

// FindDetailByID returns a unit with the donor blood group.
func (r *InventoryRepository) FindDetailByID(ctx context.Context, id string) (*models.InventoryUnitDetail, error) {
	const query = `SELECT ` + unitColumns + `, dn.blood_group
FROM inventory_units iu
JOIN donations d ON d.id = iu.donation_id
JOIN donors dn ON dn.id = d.donor_id
WHERE iu.id = $1`
	var unit models.InventoryUnitDetail
	if err := r.db.GetContext(ctx, &unit, query, id); err != nil {
		return nil, fmt.Errorf("find inventory unit: %w", err)
	}
	return &unit, nil
}

// ListAvailable returns issuable units, oldest collection first.
func (r *InventoryRepository) ListAvailable(ctx context.Context, filter models.InventoryFilter, today time.Time) ([]models.InventoryUnitDetail, error) {
	query := `SELECT ` + unitColumns + `, dn.blood_group
FROM inventory_units iu
JOIN donations d ON d.id = iu.donation_id
JOIN donors dn ON dn.id = d.donor_id
WHERE iu.status = 'AVAILABLE' AND iu.expiry_date > $1`
	args := []interface{}{today}
	if filter.BloodGroup != "" {
		args = append(args, filter.BloodGroup)
		query += fmt.Sprintf(" AND dn.blood_group = $%d", len(args))
	}
	if filter.ComponentType != "" {
		args = append(args, filter.ComponentType)
		query += fmt.Sprintf(" AND iu.component_type = $%d", len(args))
	}
	query += "\nORDER BY iu.collection_date ASC, iu.id ASC"

	var units []models.InventoryUnitDetail
	if err := r.db.SelectContext(ctx, &units, query, args...); err != nil {
		return nil, fmt.Errorf("list available units: %w", err)
	}
	return units, nil
}

// LockOldestAvailable locks up to limit matching issuable units in FIFO order.
// Rows changed by a concurrent transaction are re-checked after the lock is granted,
// so the result may hold fewer rows than limit even when other units qualify.
func (r *InventoryRepository) LockOldestAvailable(ctx context.Context, exec sqlx.ExtContext, bloodGroup models.BloodGroup, componentType string, today time.Time, limit int) ([]models.InventoryUnit, error) {
	const query = `SELECT ` + unitColumns + `
FROM inventory_units iu
JOIN donations d ON d.id = iu.donation_id
JOIN donors dn ON dn.id = d.donor_id
WHERE iu.status = 'AVAILABLE'
	AND iu.expiry_date > $1
	AND dn.blood_group = $2
	AND iu.component_type = $3
ORDER BY iu.collection_date ASC, iu.id ASC
LIMIT $4
FOR UPDATE OF iu`
	var units []models.InventoryUnit
	if err := sqlx.SelectContext(ctx, r.exec(exec), &units, query, today, bloodGroup, componentType, limit); err != nil {
		return nil, fmt.Errorf("lock available units: %w", err)
	}
	return units, nil
}

// MarkIssued flips AVAILABLE units to ISSUED and returns how many rows changed.
func (r *InventoryRepository) MarkIssued(ctx context.Context, exec sqlx.ExtContext, ids []string, at time.Time) (int64, error) {
	const query = `UPDATE inventory_units SET status = 'ISSUED', updated_at = $2 WHERE id = ANY($1) AND status = 'AVAILABLE'`
	res, err := r.exec(exec).ExecContext(ctx, query, pq.Array(ids), at)
	if err != nil {
		return 0, fmt.Errorf("mark units issued: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark units issued rows: %w", err)
	}
	return affected, nil
}

// ExpireDue moves AVAILABLE units whose expiry date has been reached to EXPIRED.
func (r *InventoryRepository) ExpireDue(ctx context.Context, exec sqlx.ExtContext, today, at time.Time) ([]string, error) {
	const query = `UPDATE inventory_units SET status = 'EXPIRED', updated_at = $2
WHERE status = 'AVAILABLE' AND expiry_date <= $1
RETURNING id`
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, today, at); err != nil {
		return nil, fmt.Errorf("expire units: %w", err)
	}
	return ids, nil
}

// DeleteByDonation removes the unit owned by the donation.
func (r *InventoryRepository) DeleteByDonation(ctx context.Context, exec sqlx.ExtContext, donationID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM inventory_units WHERE donation_id = $1`, donationID); err != nil {
		return fmt.Errorf("delete inventory unit: %w", err)
	}
	return nil
}

// StockSummary aggregates issuable units per blood group and component.
func (r *InventoryRepository) StockSummary(ctx context.Context, today time.Time) ([]models.StockLevel, error) {
	const query = `SELECT dn.blood_group, iu.component_type, COUNT(*) AS units
FROM inventory_units iu
JOIN donations d ON d.id = iu.donation_id
JOIN donors dn ON dn.id = d.donor_id
WHERE iu.status = 'AVAILABLE' AND iu.expiry_date > $1
GROUP BY dn.blood_group, iu.component_type
ORDER BY dn.blood_group, iu.component_type`
	var levels []models.StockLevel
	if err := r.db.SelectContext(ctx, &levels, query, today); err != nil {
		return nil, fmt.Errorf("stock summary: %w", err)
	}
	return levels, nil
}

// CountExpiringBefore counts issuable units expiring on or before until.
func (r *InventoryRepository) CountExpiringBefore(ctx context.Context, today, until time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM inventory_units WHERE status = 'AVAILABLE' AND expiry_date > $1 AND expiry_date <= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, today, until); err != nil {
		return 0, fmt.Errorf("count expiring units: %w", err)
	}
	return count, nil
}
