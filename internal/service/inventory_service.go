package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/events"
)

type inventoryStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.InventoryUnitDetail, error)
	ListAvailable(ctx context.Context, filter models.InventoryFilter, today time.Time) ([]models.InventoryUnitDetail, error)
	ExpireDue(ctx context.Context, exec sqlx.ExtContext, today, at time.Time) ([]string, error)
}

// InventoryServiceParams groups constructor dependencies.
type InventoryServiceParams struct {
	Tx        transactor
	Units     inventoryStore
	Audit     auditRecorder
	Publisher events.Publisher
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// InventoryService exposes issuable stock and retires expired units.
type InventoryService struct {
	tx     transactor
	units  inventoryStore
	audit  auditRecorder
	logger *zap.Logger
	after  afterCommit
	now    func() time.Time
}

// NewInventoryService constructs the service.
func NewInventoryService(params InventoryServiceParams) *InventoryService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		tx:     params.Tx,
		units:  params.Units,
		audit:  params.Audit,
		logger: logger,
		after:  afterCommit{publisher: params.Publisher, cache: params.Cache, metrics: params.Metrics, logger: logger},
		now:    time.Now,
	}
}

// ListAvailable returns units that can still be issued, oldest collection first.
func (s *InventoryService) ListAvailable(ctx context.Context, filter models.InventoryFilter) ([]models.InventoryUnitDetail, error) {
	filter.ComponentType = strings.TrimSpace(filter.ComponentType)
	if filter.BloodGroup != "" && !validBloodGroup(filter.BloodGroup) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown blood group %q", filter.BloodGroup))
	}
	units, err := s.units.ListAvailable(ctx, filter, dateOnly(s.now()))
	if err != nil {
		return nil, storeError(err, "failed to list inventory")
	}
	return units, nil
}

// Get returns a unit in any status.
func (s *InventoryService) Get(ctx context.Context, id string) (*models.InventoryUnitDetail, error) {
	unit, err := s.units.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "inventory unit not found", "failed to load inventory unit")
	}
	return unit, nil
}

// Sweep expires every AVAILABLE unit whose expiry date is today or earlier. Running it twice is harmless.
func (s *InventoryService) Sweep(ctx context.Context) (*dto.SweepResult, error) {
	start := time.Now()
	now := s.now().UTC()
	today := dateOnly(now)

	var expired []string
	err := withinTx(ctx, s.tx, "failed to sweep expired units", func(ctx context.Context, exec sqlx.ExtContext) error {
		ids, err := s.units.ExpireDue(ctx, exec, today, now)
		if err != nil {
			return storeError(err, "failed to expire inventory")
		}
		for _, id := range ids {
			detail := fmt.Sprintf("expired on %s", today.Format(dto.DateLayout))
			if err := s.audit.Record(ctx, exec, auditEntry(models.AuditSubjectUnit, id, models.AuditActionUnitExpired, detail, now)); err != nil {
				return storeError(err, "failed to record audit entry")
			}
		}
		expired = ids
		return nil
	})
	if err != nil {
		s.after.conflict("expiry_sweep", err)
		return nil, err
	}

	s.after.metrics.ObserveSweep(len(expired), time.Since(start))
	if len(expired) > 0 {
		s.after.invalidateDashboard(ctx)
		evts := make([]events.Event, 0, len(expired))
		for _, id := range expired {
			evts = append(evts, events.Event{ID: uuid.NewString(), Type: events.TypeUnitExpired, SubjectID: id, OccurredAt: now})
		}
		s.after.publish(ctx, evts...)
		s.logger.Info("inventory units expired", zap.Int("count", len(expired)))
	}
	if expired == nil {
		expired = []string{}
	}
	return &dto.SweepResult{Expired: len(expired), UnitIDs: expired, RanAt: now}, nil
}

func validBloodGroup(group models.BloodGroup) bool {
	for _, candidate := range models.BloodGroups {
		if candidate == group {
			return true
		}
	}
	return false
}
