package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

const requestColumns = `id, requester_name, blood_group, component_type, quantity, status, created_at, updated_at`

// RequestRepository persists blood requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a request row.
func (r *RequestRepository) Create(ctx context.Context, exec sqlx.ExtContext, req *models.BloodRequest) error {
	if req == nil {
		return fmt.Errorf("request payload is nil")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	const query = `
INSERT INTO blood_requests (id, requester_name, blood_group, component_type, quantity, status, created_at, updated_at)
VALUES (:id, :requester_name, :blood_group, :component_type, :quantity, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, req); err != nil {
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

// LockByID loads the request with a row lock.
func (r *RequestRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.BloodRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1 FOR UPDATE`
	var req models.BloodRequest
	if err := sqlx.GetContext(ctx, r.exec(exec), &req, query, id); err != nil {
		return nil, fmt.Errorf("lock blood request: %w", err)
	}
	return &req, nil
}

// FindByID returns a request by identifier.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1`
	var req models.BloodRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, fmt.Errorf("find blood request: %w", err)
	}
	return &req, nil
}

// List returns requests. Pending requests are served oldest first, everything else newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, int, error) {
	base := "FROM blood_requests"
	var args []interface{}
	order := "created_at DESC, id DESC"
	if filter.Status != "" {
		args = append(args, filter.Status)
		base += " WHERE status = $1"
		if filter.Status == models.RequestStatusPending {
			order = "created_at ASC, id ASC"
		}
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", requestColumns, base, order, limit, offset)
	var items []models.BloodRequest
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list blood requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count blood requests: %w", err)
	}
	return items, total, nil
}

// UpdateStatus sets the request status.
func (r *RequestRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RequestStatus, at time.Time) error {
	const query = `UPDATE blood_requests SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, status, at); err != nil {
		return fmt.Errorf("update blood request status: %w", err)
	}
	return nil
}

// CountByStatus counts requests in the given status.
func (r *RequestRepository) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM blood_requests WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count blood requests: %w", err)
	}
	return count, nil
}
