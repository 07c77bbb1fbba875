package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type donorStore interface {
	FindByID(ctx context.Context, id string) (*models.Donor, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Donor, error)
	List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, int, error)
	HasIssuedUnits(ctx context.Context, exec sqlx.ExtContext, donorID string) (bool, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type donationHistory interface {
	LastCompletedDate(ctx context.Context, exec sqlx.ExtContext, donorID string) (*time.Time, error)
}

// DonorService reads donors, reports eligibility and removes donors without issued stock.
type DonorService struct {
	tx      transactor
	donors  donorStore
	history donationHistory
	audit   auditRecorder
	policy  *EligibilityPolicy
	logger  *zap.Logger
	after   afterCommit
	now     func() time.Time
}

// NewDonorService constructs the service.
func NewDonorService(tx transactor, donors donorStore, history donationHistory, audit auditRecorder, policy *EligibilityPolicy, cache *CacheService, logger *zap.Logger) *DonorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = NewEligibilityPolicy(nil)
	}
	return &DonorService{
		tx:      tx,
		donors:  donors,
		history: history,
		audit:   audit,
		policy:  policy,
		logger:  logger,
		after:   afterCommit{cache: cache, logger: logger},
		now:     time.Now,
	}
}

// List returns donors matching the filter.
func (s *DonorService) List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	donors, total, err := s.donors.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list donors")
	}
	return donors, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a donor by id.
func (s *DonorService) Get(ctx context.Context, id string) (*models.Donor, error) {
	donor, err := s.donors.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "donor not found", "failed to load donor")
	}
	return donor, nil
}

// Eligibility evaluates the re-donation gate as of the given day without locking.
func (s *DonorService) Eligibility(ctx context.Context, id string, asOf time.Time) (*models.Eligibility, error) {
	donor, err := s.donors.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "donor not found", "failed to load donor")
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	last, err := s.history.LastCompletedDate(ctx, nil, donor.ID)
	if err != nil {
		return nil, storeError(err, "failed to load donation history")
	}
	result := s.policy.Evaluate(donor.Sex, last, asOf)
	result.DonorID = donor.ID
	return &result, nil
}

// Delete removes the donor with its donations and units unless any unit was issued.
func (s *DonorService) Delete(ctx context.Context, id string) error {
	err := withinTx(ctx, s.tx, "failed to delete donor", func(ctx context.Context, exec sqlx.ExtContext) error {
		donor, err := s.donors.LockByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "donor not found", "failed to lock donor")
		}
		issued, err := s.donors.HasIssuedUnits(ctx, exec, donor.ID)
		if err != nil {
			return storeError(err, "failed to check issued units")
		}
		if issued {
			return appErrors.Clone(appErrors.ErrHasIssuedDependents, "donor has issued inventory units")
		}
		if err := s.donors.Delete(ctx, exec, donor.ID); err != nil {
			return storeError(err, "failed to delete donor")
		}
		if err := s.audit.Record(ctx, exec, auditEntry(models.AuditSubjectDonor, donor.ID, models.AuditActionDonorDeleted, "", s.now().UTC())); err != nil {
			return storeError(err, "failed to record audit entry")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.after.invalidateDashboard(ctx)
	s.logger.Info("donor deleted", zap.String("donor_id", id))
	return nil
}
