package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
)

type stockReader interface {
	StockSummary(ctx context.Context, today time.Time) ([]models.StockLevel, error)
	CountExpiringBefore(ctx context.Context, today, until time.Time) (int, error)
}

type pendingCounter interface {
	CountByStatus(ctx context.Context, status models.RequestStatus) (int, error)
}

type scheduleCounter interface {
	CountScheduledOn(ctx context.Context, day time.Time) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL           time.Duration
	ExpiringSoonWindow time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Stock     stockReader
	Requests  pendingCounter
	Donations scheduleCounter
	Cache     *CacheService
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// DashboardService derives stock and demand figures on read. Nothing here is stored.
type DashboardService struct {
	stock     stockReader
	requests  pendingCounter
	donations scheduleCounter
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.ExpiringSoonWindow <= 0 {
		cfg.ExpiringSoonWindow = 72 * time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		stock:     params.Stock,
		requests:  params.Requests,
		donations: params.Donations,
		cache:     params.Cache,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Inventory returns the inventory dashboard and reports whether it came from cache.
func (s *DashboardService) Inventory(ctx context.Context) (*dto.InventoryDashboard, bool, error) {
	today := dateOnly(s.now())
	cacheKey := fmt.Sprintf("dash:inventory:%s", today.Format(dto.DateLayout))

	var cached dto.InventoryDashboard
	hit, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", cacheKey), zap.Error(err))
	}
	if hit {
		return &cached, true, nil
	}

	summary, err := s.compose(ctx, today)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context, today time.Time) (*dto.InventoryDashboard, error) {
	levels, err := s.stock.StockSummary(ctx, today)
	if err != nil {
		return nil, storeError(err, "failed to load stock summary")
	}
	pending, err := s.requests.CountByStatus(ctx, models.RequestStatusPending)
	if err != nil {
		return nil, storeError(err, "failed to count pending requests")
	}
	scheduled, err := s.donations.CountScheduledOn(ctx, today)
	if err != nil {
		return nil, storeError(err, "failed to count scheduled donations")
	}
	windowDays := int(s.cfg.ExpiringSoonWindow / (24 * time.Hour))
	expiring, err := s.stock.CountExpiringBefore(ctx, today, today.AddDate(0, 0, windowDays))
	if err != nil {
		return nil, storeError(err, "failed to count expiring units")
	}

	byGroup := make(map[models.BloodGroup]int, len(models.BloodGroups))
	for _, level := range levels {
		byGroup[level.BloodGroup] += level.Units
	}
	stock := make([]dto.GroupStock, 0, len(models.BloodGroups))
	for _, group := range models.BloodGroups {
		stock = append(stock, dto.GroupStock{BloodGroup: group, Units: byGroup[group]})
	}
	if levels == nil {
		levels = []models.StockLevel{}
	}

	return &dto.InventoryDashboard{
		PendingRequests: pending,
		ScheduledToday:  scheduled,
		ExpiringSoon:    expiring,
		Stock:           stock,
		StockDetail:     levels,
		GeneratedAt:     s.now().UTC(),
	}, nil
}
