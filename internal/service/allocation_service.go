package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/events"
)

type requestStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, req *models.BloodRequest) error
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.BloodRequest, error)
	FindByID(ctx context.Context, id string) (*models.BloodRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, int, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RequestStatus, at time.Time) error
}

type allocationUnitStore interface {
	LockOldestAvailable(ctx context.Context, exec sqlx.ExtContext, bloodGroup models.BloodGroup, componentType string, today time.Time, limit int) ([]models.InventoryUnit, error)
	MarkIssued(ctx context.Context, exec sqlx.ExtContext, ids []string, at time.Time) (int64, error)
}

type issueStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, issue *models.BloodIssue) error
	ListByRequest(ctx context.Context, requestID string) ([]models.BloodIssue, error)
}

// AllocationServiceParams groups constructor dependencies.
type AllocationServiceParams struct {
	Tx        transactor
	Requests  requestStore
	Units     allocationUnitStore
	Issues    issueStore
	Audit     auditRecorder
	ShelfLife ShelfLife
	Publisher events.Publisher
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// AllocationService accepts blood requests and fulfils them from the oldest matching stock.
type AllocationService struct {
	tx        transactor
	requests  requestStore
	units     allocationUnitStore
	issues    issueStore
	audit     auditRecorder
	shelfLife ShelfLife
	validator *validator.Validate
	logger    *zap.Logger
	after     afterCommit
	now       func() time.Time
}

// NewAllocationService constructs the service.
func NewAllocationService(params AllocationServiceParams) *AllocationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	shelfLife := params.ShelfLife
	if len(shelfLife) == 0 {
		shelfLife = DefaultShelfLife()
	}
	return &AllocationService{
		tx:        params.Tx,
		requests:  params.Requests,
		units:     params.Units,
		issues:    params.Issues,
		audit:     params.Audit,
		shelfLife: shelfLife,
		validator: validate,
		logger:    logger,
		after:     afterCommit{publisher: params.Publisher, cache: params.Cache, metrics: params.Metrics, logger: logger},
		now:       time.Now,
	}
}

// Submit records a new PENDING request.
func (s *AllocationService) Submit(ctx context.Context, req dto.SubmitRequestRequest) (*models.BloodRequest, error) {
	req.RequesterName = strings.TrimSpace(req.RequesterName)
	req.ComponentType = strings.TrimSpace(req.ComponentType)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if !s.shelfLife.Supports(req.ComponentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown component type %q", req.ComponentType))
	}

	now := s.now().UTC()
	request := &models.BloodRequest{
		ID:            uuid.NewString(),
		RequesterName: req.RequesterName,
		BloodGroup:    req.BloodGroup,
		ComponentType: req.ComponentType,
		Quantity:      req.Quantity,
		Status:        models.RequestStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.requests.Create(ctx, nil, request); err != nil {
		return nil, storeError(err, "failed to submit request")
	}
	s.after.invalidateDashboard(ctx)
	s.logger.Info("blood request submitted", zap.String("request_id", request.ID), zap.String("blood_group", string(request.BloodGroup)), zap.Int("quantity", request.Quantity))
	return request, nil
}

// Fulfill issues the oldest matching available units to a pending request in one transaction.
// Allocation is all-or-nothing: a request for N units either receives N units or nothing.
func (s *AllocationService) Fulfill(ctx context.Context, id string) (*models.FulfillmentResult, error) {
	var result models.FulfillmentResult
	err := withinTx(ctx, s.tx, "failed to fulfil request", func(ctx context.Context, exec sqlx.ExtContext) error {
		request, err := s.requests.LockByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "request not found", "failed to lock request")
		}
		if request.Status != models.RequestStatusPending {
			return appErrors.Clone(appErrors.ErrRequestNotPending, fmt.Sprintf("request is already %s", strings.ToLower(string(request.Status))))
		}

		now := s.now().UTC()
		today := dateOnly(now)
		units, err := s.units.LockOldestAvailable(ctx, exec, request.BloodGroup, request.ComponentType, today, request.Quantity)
		if err != nil {
			return storeError(err, "failed to lock inventory")
		}
		if len(units) < request.Quantity {
			// Candidates issued by a concurrent transaction drop out after the lock wait; a fresh statement sees the rest.
			units, err = s.units.LockOldestAvailable(ctx, exec, request.BloodGroup, request.ComponentType, today, request.Quantity)
			if err != nil {
				return storeError(err, "failed to lock inventory")
			}
		}
		if len(units) < request.Quantity {
			return appErrors.Clone(appErrors.ErrNoMatchingStock,
				fmt.Sprintf("need %d %s %s unit(s), %d available", request.Quantity, request.BloodGroup, request.ComponentType, len(units)))
		}

		ids := make([]string, len(units))
		for i, unit := range units {
			ids[i] = unit.ID
		}
		affected, err := s.units.MarkIssued(ctx, exec, ids, now)
		if err != nil {
			return storeError(err, "failed to issue inventory units")
		}
		if int(affected) != len(ids) {
			return appErrors.Clone(appErrors.ErrTransactionConflict, "inventory changed during allocation, retry the operation")
		}

		issues := make([]models.BloodIssue, 0, len(units))
		for _, unit := range units {
			issue := models.BloodIssue{ID: uuid.NewString(), InventoryUnitID: unit.ID, RequestID: request.ID, IssueDate: now}
			if err := s.issues.Create(ctx, exec, &issue); err != nil {
				return storeError(err, "failed to record issue")
			}
			detail := fmt.Sprintf("request=%s issue=%s", request.ID, issue.ID)
			if err := s.audit.Record(ctx, exec, auditEntry(models.AuditSubjectUnit, unit.ID, models.AuditActionUnitIssued, detail, now)); err != nil {
				return storeError(err, "failed to record audit entry")
			}
			issues = append(issues, issue)
		}

		if err := s.requests.UpdateStatus(ctx, exec, request.ID, models.RequestStatusFulfilled, now); err != nil {
			return storeError(err, "failed to fulfil request")
		}
		request.Status = models.RequestStatusFulfilled
		request.UpdatedAt = now
		result = models.FulfillmentResult{Request: *request, Issues: issues}
		return nil
	})
	if err != nil {
		s.after.metrics.RecordAllocation(allocationOutcome(err), 0)
		s.after.conflict("fulfill_request", err)
		return nil, err
	}

	s.after.metrics.RecordAllocation(AllocationFulfilled, len(result.Issues))
	s.after.invalidateDashboard(ctx)
	s.after.publish(ctx, fulfillmentEvents(result)...)
	s.logger.Info("blood request fulfilled", zap.String("request_id", id), zap.Int("units", len(result.Issues)))
	return &result, nil
}

// Cancel withdraws a pending request.
func (s *AllocationService) Cancel(ctx context.Context, id string) (*models.BloodRequest, error) {
	var request *models.BloodRequest
	err := withinTx(ctx, s.tx, "failed to cancel request", func(ctx context.Context, exec sqlx.ExtContext) error {
		locked, err := s.requests.LockByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "request not found", "failed to lock request")
		}
		if locked.Status != models.RequestStatusPending {
			return appErrors.Clone(appErrors.ErrRequestNotPending, fmt.Sprintf("request is already %s", strings.ToLower(string(locked.Status))))
		}
		now := s.now().UTC()
		if err := s.requests.UpdateStatus(ctx, exec, locked.ID, models.RequestStatusCancelled, now); err != nil {
			return storeError(err, "failed to cancel request")
		}
		if err := s.audit.Record(ctx, exec, auditEntry(models.AuditSubjectRequest, locked.ID, models.AuditActionRequestCancelled, "", now)); err != nil {
			return storeError(err, "failed to record audit entry")
		}
		locked.Status = models.RequestStatusCancelled
		locked.UpdatedAt = now
		request = locked
		return nil
	})
	if err != nil {
		s.after.conflict("cancel_request", err)
		return nil, err
	}
	s.after.invalidateDashboard(ctx)
	s.logger.Info("blood request cancelled", zap.String("request_id", id))
	return request, nil
}

// Get returns a request with the issues recorded for it.
func (s *AllocationService) Get(ctx context.Context, id string) (*models.FulfillmentResult, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "request not found", "failed to load request")
	}
	issues, err := s.issues.ListByRequest(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load issues")
	}
	return &models.FulfillmentResult{Request: *request, Issues: issues}, nil
}

// List returns requests; pending requests come oldest first.
func (s *AllocationService) List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list requests")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func allocationOutcome(err error) string {
	switch {
	case appErrors.Is(err, appErrors.ErrNoMatchingStock):
		return AllocationNoStock
	case appErrors.Is(err, appErrors.ErrRequestNotPending):
		return AllocationNotPending
	case appErrors.Is(err, appErrors.ErrTransactionConflict):
		return AllocationConflict
	}
	return AllocationError
}

func fulfillmentEvents(result models.FulfillmentResult) []events.Event {
	evts := make([]events.Event, 0, len(result.Issues)+1)
	unitIDs := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		unitIDs = append(unitIDs, issue.InventoryUnitID)
		evts = append(evts, events.Event{
			ID:         uuid.NewString(),
			Type:       events.TypeUnitIssued,
			SubjectID:  issue.InventoryUnitID,
			OccurredAt: issue.IssueDate,
			Data:       map[string]interface{}{"request_id": issue.RequestID, "issue_id": issue.ID},
		})
	}
	return append(evts, events.Event{
		ID:         uuid.NewString(),
		Type:       events.TypeRequestFulfilled,
		SubjectID:  result.Request.ID,
		OccurredAt: result.Request.UpdatedAt,
		Data: map[string]interface{}{
			"blood_group":    string(result.Request.BloodGroup),
			"component_type": result.Request.ComponentType,
			"unit_ids":       unitIDs,
		},
	})
}
