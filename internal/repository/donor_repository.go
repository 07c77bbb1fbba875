package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

const donorColumns = `id, full_name, blood_group, contact, sex, created_at, updated_at`

// DonorRepository persists donors keyed by their unique contact.
type DonorRepository struct {
	db *sqlx.DB
}

// NewDonorRepository constructs the repository.
func NewDonorRepository(db *sqlx.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

func (r *DonorRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert inserts the donor or, when the contact exists, refreshes the name only.
// The stored row is scanned back into donor, so blood group and sex reflect the original registration.
func (r *DonorRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, donor *models.Donor) error {
	if donor == nil {
		return fmt.Errorf("donor payload is nil")
	}
	if donor.ID == "" {
		donor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `
INSERT INTO donors (id, full_name, blood_group, contact, sex, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (contact) DO UPDATE SET full_name = EXCLUDED.full_name, updated_at = EXCLUDED.updated_at
RETURNING ` + donorColumns
	if err := sqlx.GetContext(ctx, r.exec(exec), donor, query, donor.ID, donor.FullName, donor.BloodGroup, donor.Contact, donor.Sex, now); err != nil {
		return fmt.Errorf("upsert donor: %w", err)
	}
	return nil
}

// LockByID loads the donor and holds a row lock until the transaction ends.
func (r *DonorRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Donor, error) {
	const query = `SELECT ` + donorColumns + ` FROM donors WHERE id = $1 FOR UPDATE`
	var donor models.Donor
	if err := sqlx.GetContext(ctx, r.exec(exec), &donor, query, id); err != nil {
		return nil, fmt.Errorf("lock donor: %w", err)
	}
	return &donor, nil
}

// FindByID returns a donor by identifier.
func (r *DonorRepository) FindByID(ctx context.Context, id string) (*models.Donor, error) {
	const query = `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`
	var donor models.Donor
	if err := r.db.GetContext(ctx, &donor, query, id); err != nil {
		return nil, fmt.Errorf("find donor: %w", err)
	}
	return &donor, nil
}

// List returns donors ordered by name with the total count.
func (r *DonorRepository) List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, int, error) {
	base := "FROM donors WHERE 1=1"
	var args []interface{}
	if filter.BloodGroup != "" {
		args = append(args, filter.BloodGroup)
		base += fmt.Sprintf(" AND blood_group = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(full_name) LIKE $%d OR LOWER(contact) LIKE $%d)", len(args), len(args))
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY full_name ASC, id ASC LIMIT %d OFFSET %d", donorColumns, base, limit, offset)
	var donors []models.Donor
	if err := r.db.SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list donors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count donors: %w", err)
	}
	return donors, total, nil
}

// HasIssuedUnits reports whether any unit drawn from the donor has been issued.
func (r *DonorRepository) HasIssuedUnits(ctx context.Context, exec sqlx.ExtContext, donorID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM inventory_units iu
	JOIN donations d ON d.id = iu.donation_id
	WHERE d.donor_id = $1 AND iu.status = 'ISSUED'
)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, donorID); err != nil {
		return false, fmt.Errorf("check issued units: %w", err)
	}
	return exists, nil
}

// Delete removes the donor together with its donations and their units.
func (r *DonorRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := r.exec(exec)
	steps := []struct {
		name  string
		query string
	}{
		{"units", `DELETE FROM inventory_units WHERE donation_id IN (SELECT id FROM donations WHERE donor_id = $1)`},
		{"donations", `DELETE FROM donations WHERE donor_id = $1`},
		{"donor", `DELETE FROM donors WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err := target.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("delete donor %s: %w", step.name, err)
		}
	}
	return nil
}
