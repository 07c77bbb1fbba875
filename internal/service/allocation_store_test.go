package service

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/internal/repository"
	"github.com/noah-isme/bloodbank-api/pkg/database"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

var (
	lockRequestSQL = regexp.QuoteMeta(`FROM blood_requests WHERE id = $1 FOR UPDATE`)
	lockUnitsSQL   = regexp.QuoteMeta(`FOR UPDATE OF iu`)
	markIssuedSQL  = regexp.QuoteMeta(`UPDATE inventory_units SET status = 'ISSUED'`)
	insertIssueSQL = regexp.QuoteMeta(`INSERT INTO blood_issues`)
	insertAuditSQL = regexp.QuoteMeta(`INSERT INTO inventory_audit_log`)
	updateReqSQL   = regexp.QuoteMeta(`UPDATE blood_requests SET status = $2`)
)

type sqlAllocation struct {
	service *AllocationService
	metrics *MetricsService
	mock    sqlmock.Sqlmock
}

func newSQLAllocation(t *testing.T) *sqlAllocation {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "sqlmock")

	metrics := NewMetricsService()
	svc := NewAllocationService(AllocationServiceParams{
		Tx:       database.NewTransactor(db, time.Second),
		Requests: repository.NewRequestRepository(db),
		Units:    repository.NewInventoryRepository(db),
		Issues:   repository.NewIssueRepository(db),
		Audit:    repository.NewAuditRepository(db),
		Metrics:  metrics,
	})
	svc.now = func() time.Time { return day0 }
	return &sqlAllocation{service: svc, metrics: metrics, mock: mock}
}

func pendingRequestRows(quantity int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "requester_name", "blood_group", "component_type", "quantity", "status", "created_at", "updated_at"}).
		AddRow("req-1", "General Hospital", "O+", models.ComponentWholeBlood, quantity, "PENDING", day0, day0)
}

func unitRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "donation_id", "component_type", "collection_date", "expiry_date", "status", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "don-"+id, models.ComponentWholeBlood, day0, day0.AddDate(0, 0, 42), "AVAILABLE", day0)
	}
	return rows
}

func (a *sqlAllocation) expectIssue(unitIDs ...string) {
	a.mock.ExpectExec(markIssuedSQL).WillReturnResult(sqlmock.NewResult(0, int64(len(unitIDs))))
	for range unitIDs {
		a.mock.ExpectExec(insertIssueSQL).WillReturnResult(sqlmock.NewResult(1, 1))
		a.mock.ExpectExec(insertAuditSQL).WillReturnResult(sqlmock.NewResult(1, 1))
	}
	a.mock.ExpectExec(updateReqSQL).WithArgs("req-1", string(models.RequestStatusFulfilled), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestFulfillBeginFailureReportsStoreUnavailable(t *testing.T) {
	a := newSQLAllocation(t)
	a.mock.ExpectBegin().WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})

	_, err := a.service.Fulfill(context.Background(), "req-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStoreUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, appErrors.FromError(err).Status)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestFulfillCommitSerializationFailureReportsConflict(t *testing.T) {
	a := newSQLAllocation(t)
	a.mock.ExpectBegin()
	a.mock.ExpectQuery(lockRequestSQL).WithArgs("req-1").WillReturnRows(pendingRequestRows(1))
	a.mock.ExpectQuery(lockUnitsSQL).WillReturnRows(unitRows("u-1"))
	a.expectIssue("u-1")
	a.mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})

	_, err := a.service.Fulfill(context.Background(), "req-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTransactionConflict))
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.Equal(t, uint64(1), a.metrics.Snapshot().TransactionConflicts)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestFulfillRequeriesShortLockResult(t *testing.T) {
	a := newSQLAllocation(t)
	a.mock.ExpectBegin()
	a.mock.ExpectQuery(lockRequestSQL).WithArgs("req-1").WillReturnRows(pendingRequestRows(2))
	a.mock.ExpectQuery(lockUnitsSQL).WillReturnRows(unitRows("u-1"))
	a.mock.ExpectQuery(lockUnitsSQL).WillReturnRows(unitRows("u-1", "u-2"))
	a.expectIssue("u-1", "u-2")
	a.mock.ExpectCommit()

	result, err := a.service.Fulfill(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, "u-1", result.Issues[0].InventoryUnitID)
	assert.Equal(t, "u-2", result.Issues[1].InventoryUnitID)
	assert.Equal(t, models.RequestStatusFulfilled, result.Request.Status)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestFulfillShortAfterRequeryReportsNoStock(t *testing.T) {
	a := newSQLAllocation(t)
	a.mock.ExpectBegin()
	a.mock.ExpectQuery(lockRequestSQL).WithArgs("req-1").WillReturnRows(pendingRequestRows(2))
	a.mock.ExpectQuery(lockUnitsSQL).WillReturnRows(unitRows("u-1"))
	a.mock.ExpectQuery(lockUnitsSQL).WillReturnRows(unitRows("u-1"))
	a.mock.ExpectRollback()

	_, err := a.service.Fulfill(context.Background(), "req-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNoMatchingStock))
	assert.NoError(t, a.mock.ExpectationsWereMet())
}

func TestFulfillIssuedCountMismatchReportsConflict(t *testing.T) {
	a := newSQLAllocation(t)
	a.mock.ExpectBegin()
	a.mock.ExpectQuery(lockRequestSQL).WithArgs("req-1").WillReturnRows(pendingRequestRows(2))
	a.mock.ExpectQuery(lockUnitsSQL).WillReturnRows(unitRows("u-1", "u-2"))
	a.mock.ExpectExec(markIssuedSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	a.mock.ExpectRollback()

	_, err := a.service.Fulfill(context.Background(), "req-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrTransactionConflict))
	assert.Equal(t, uint64(1), a.metrics.Snapshot().TransactionConflicts)
	assert.NoError(t, a.mock.ExpectationsWereMet())
}
