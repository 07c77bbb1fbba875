package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

const centerColumns = `id, name, location, is_active, created_at`

// CenterRepository reads and maintains collection centers.
type CenterRepository struct {
	db *sqlx.DB
}

// NewCenterRepository constructs the repository.
func NewCenterRepository(db *sqlx.DB) *CenterRepository {
	return &CenterRepository{db: db}
}

func (r *CenterRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns centers ordered by name.
func (r *CenterRepository) List(ctx context.Context, activeOnly bool) ([]models.Center, error) {
	query := `SELECT ` + centerColumns + ` FROM blood_centers`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	var centers []models.Center
	if err := r.db.SelectContext(ctx, &centers, query); err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	return centers, nil
}

// FindByID returns a center by identifier.
func (r *CenterRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Center, error) {
	const query = `SELECT ` + centerColumns + ` FROM blood_centers WHERE id = $1`
	var center models.Center
	if err := sqlx.GetContext(ctx, r.exec(exec), &center, query, id); err != nil {
		return nil, fmt.Errorf("find center: %w", err)
	}
	return &center, nil
}

// Create inserts an active center.
func (r *CenterRepository) Create(ctx context.Context, center *models.Center) error {
	if center.ID == "" {
		center.ID = uuid.NewString()
	}
	if center.CreatedAt.IsZero() {
		center.CreatedAt = time.Now().UTC()
	}
	center.Active = true
	const query = `INSERT INTO blood_centers (id, name, location, is_active, created_at) VALUES (:id, :name, :location, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, center); err != nil {
		return fmt.Errorf("create center: %w", err)
	}
	return nil
}

// Delete removes the center row.
func (r *CenterRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM blood_centers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete center: %w", err)
	}
	return nil
}
