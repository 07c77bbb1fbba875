package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

// AuditRepository appends to and reads the inventory audit log. Rows are never updated.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record inserts an entry using exec, typically the caller's transaction.
func (r *AuditRepository) Record(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLogEntry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT INTO inventory_audit_log (id, subject_type, subject_id, action, detail, created_at) VALUES (:id, :subject_type, :subject_id, :action, :detail, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	const query = `SELECT id, subject_type, subject_id, action, detail, created_at FROM inventory_audit_log ORDER BY created_at DESC, id DESC LIMIT $1`
	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
