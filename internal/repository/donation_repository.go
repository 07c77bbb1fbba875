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

const donationColumns = `id, donor_id, center_id, donation_type, donation_date, status, completed_at, created_at`

const donationDetailSelect = `
SELECT d.id, d.donor_id, d.center_id, d.donation_type, d.donation_date, d.status, d.completed_at, d.created_at,
	dn.full_name AS donor_name, dn.blood_group, c.name AS center_name
FROM donations d
JOIN donors dn ON dn.id = d.donor_id
JOIN blood_centers c ON c.id = d.center_id`

// DonationRepository persists donation events.
type DonationRepository struct {
	db *sqlx.DB
}

// NewDonationRepository constructs the repository.
func NewDonationRepository(db *sqlx.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a donation row.
func (r *DonationRepository) Create(ctx context.Context, exec sqlx.ExtContext, donation *models.Donation) error {
	if donation == nil {
		return fmt.Errorf("donation payload is nil")
	}
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}
	if donation.Status == "" {
		donation.Status = models.DonationStatusScheduled
	}
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO donations (id, donor_id, center_id, donation_type, donation_date, status, completed_at, created_at)
VALUES (:id, :donor_id, :center_id, :donation_type, :donation_date, :status, :completed_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, donation); err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// LockByID loads the donation with a row lock.
func (r *DonationRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Donation, error) {
	const query = `SELECT ` + donationColumns + ` FROM donations WHERE id = $1 FOR UPDATE`
	var donation models.Donation
	if err := sqlx.GetContext(ctx, r.exec(exec), &donation, query, id); err != nil {
		return nil, fmt.Errorf("lock donation: %w", err)
	}
	return &donation, nil
}

// FindDetailByID returns the donation joined with donor and center names.
func (r *DonationRepository) FindDetailByID(ctx context.Context, id string) (*models.DonationDetail, error) {
	query := donationDetailSelect + "\nWHERE d.id = $1"
	var detail models.DonationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}
	return &detail, nil
}

// LastCompletedDate returns the day blood was last drawn from the donor, or nil.
// The collection day is the completion day, which may be later than the booked date.
func (r *DonationRepository) LastCompletedDate(ctx context.Context, exec sqlx.ExtContext, donorID string) (*time.Time, error) {
	const query = `SELECT MAX(COALESCE((completed_at AT TIME ZONE 'UTC')::date, donation_date)) FROM donations WHERE donor_id = $1 AND status = 'COMPLETED'`
	var last *time.Time
	if err := sqlx.GetContext(ctx, r.exec(exec), &last, query, donorID); err != nil {
		return nil, fmt.Errorf("last completed donation: %w", err)
	}
	return last, nil
}

// ScheduledDates lists the booked dates of the donor's open donations.
func (r *DonationRepository) ScheduledDates(ctx context.Context, exec sqlx.ExtContext, donorID string) ([]time.Time, error) {
	const query = `SELECT donation_date FROM donations WHERE donor_id = $1 AND status = 'SCHEDULED' ORDER BY donation_date`
	var dates []time.Time
	if err := sqlx.SelectContext(ctx, r.exec(exec), &dates, query, donorID); err != nil {
		return nil, fmt.Errorf("scheduled donations: %w", err)
	}
	return dates, nil
}

// UpdateStatus moves the donation to status, stamping completed_at when provided.
func (r *DonationRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.DonationStatus, completedAt *time.Time) error {
	const query = `UPDATE donations SET status = $2, completed_at = COALESCE($3, completed_at) WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, status, completedAt); err != nil {
		return fmt.Errorf("update donation status: %w", err)
	}
	return nil
}

// List returns donation details filtered by status, donor, center or date.
func (r *DonationRepository) List(ctx context.Context, filter models.DonationFilter) ([]models.DonationDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", len(args)))
	}
	if filter.DonorID != "" {
		args = append(args, filter.DonorID)
		conditions = append(conditions, fmt.Sprintf("d.donor_id = $%d", len(args)))
	}
	if filter.CenterID != "" {
		args = append(args, filter.CenterID)
		conditions = append(conditions, fmt.Sprintf("d.center_id = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conditions = append(conditions, fmt.Sprintf("d.donation_date = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "\nWHERE " + strings.Join(conditions, " AND ")
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s\nORDER BY d.donation_date DESC, d.created_at DESC LIMIT %d OFFSET %d", donationDetailSelect, where, limit, offset)
	var items []models.DonationDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list donations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM donations d"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count donations: %w", err)
	}
	return items, total, nil
}

// CountByCenter counts donations referencing the center.
func (r *DonationRepository) CountByCenter(ctx context.Context, exec sqlx.ExtContext, centerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM donations WHERE center_id = $1`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, centerID); err != nil {
		return 0, fmt.Errorf("count donations by center: %w", err)
	}
	return count, nil
}

// CountScheduledOn counts donations still scheduled for the given day.
func (r *DonationRepository) CountScheduledOn(ctx context.Context, day time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM donations WHERE status = 'SCHEDULED' AND donation_date = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, day); err != nil {
		return 0, fmt.Errorf("count scheduled donations: %w", err)
	}
	return count, nil
}

// Delete removes the donation row.
func (r *DonationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM donations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	return nil
}
