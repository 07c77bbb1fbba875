package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

// IssueRepository persists issue records linking units to requests.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository constructs the repository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts an issue. inventory_unit_id is UNIQUE, so a unit can be issued at most once.
func (r *IssueRepository) Create(ctx context.Context, exec sqlx.ExtContext, issue *models.BloodIssue) error {
	if issue == nil {
		return fmt.Errorf("issue payload is nil")
	}
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.IssueDate.IsZero() {
		issue.IssueDate = time.Now().UTC()
	}
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT INTO blood_issues (id, inventory_unit_id, request_id, issue_date) VALUES (:id, :inventory_unit_id, :request_id, :issue_date)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, issue); err != nil {
		return fmt.Errorf("insert blood issue: %w", err)
	}
	return nil
}

// ListByRequest returns the issues recorded for the request.
func (r *IssueRepository) ListByRequest(ctx context.Context, requestID string) ([]models.BloodIssue, error) {
	const query = `SELECT id, inventory_unit_id, request_id, issue_date FROM blood_issues WHERE request_id = $1 ORDER BY issue_date ASC, id ASC`
	var issues []models.BloodIssue
	if err := r.db.SelectContext(ctx, &issues, query, requestID); err != nil {
		return nil, fmt.Errorf("list blood issues: %w", err)
	}
	return issues, nil
}
