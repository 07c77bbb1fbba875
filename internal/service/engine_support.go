package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/database"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/events"
)

const dashboardCachePattern = "dash:inventory*"

type transactor interface {
	WithinTx(ctx context.Context, fn database.TxFunc) error
}

type auditRecorder interface {
	Record(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLogEntry) error
}

// storeError converts a repository failure into a typed error. Typed errors pass through.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch database.Classify(err) {
	case database.FailureConflict:
		return appErrors.Wrap(err, appErrors.ErrTransactionConflict.Code, appErrors.ErrTransactionConflict.Status, appErrors.ErrTransactionConflict.Message)
	case database.FailureUnavailable:
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	case database.FailureForeignKey:
		return appErrors.Wrap(err, appErrors.ErrHasDependentRecords.Code, appErrors.ErrHasDependentRecords.Status, appErrors.ErrHasDependentRecords.Message)
	case database.FailureUniqueViolation:
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// withinTx runs fn in a transaction and classifies begin and commit failures like any other store error.
func withinTx(ctx context.Context, tx transactor, message string, fn database.TxFunc) error {
	return storeError(tx.WithinTx(ctx, fn), message)
}

// lookupError maps sql.ErrNoRows to NotFound and everything else through storeError.
func lookupError(err error, notFound, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return storeError(err, message)
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func auditEntry(subjectType, subjectID, action, detail string, at time.Time) *models.AuditLogEntry {
	return &models.AuditLogEntry{SubjectType: subjectType, SubjectID: subjectID, Action: action, Detail: detail, CreatedAt: at}
}

// afterCommit runs the best-effort side effects of a committed transaction.
type afterCommit struct {
	publisher events.Publisher
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

func (a afterCommit) publish(ctx context.Context, evts ...events.Event) {
	if a.publisher == nil || len(evts) == 0 {
		return
	}
	if err := a.publisher.Publish(ctx, evts...); err != nil {
		a.logger.Warn("publish inventory events", zap.Int("count", len(evts)), zap.Error(err))
	}
}

func (a afterCommit) invalidateDashboard(ctx context.Context) {
	if err := a.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		a.logger.Warn("invalidate dashboard cache", zap.Error(err))
	}
}

func (a afterCommit) conflict(operation string, err error) {
	if appErrors.Is(err, appErrors.ErrTransactionConflict) {
		a.metrics.RecordTxConflict(operation)
	}
}
