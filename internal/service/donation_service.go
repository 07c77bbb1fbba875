package service

import (
	"context"
	"database/sql"
	"errors"
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

type donationDonorStore interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, donor *models.Donor) error
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Donor, error)
}

type donationStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, donation *models.Donation) error
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Donation, error)
	FindDetailByID(ctx context.Context, id string) (*models.DonationDetail, error)
	LastCompletedDate(ctx context.Context, exec sqlx.ExtContext, donorID string) (*time.Time, error)
	ScheduledDates(ctx context.Context, exec sqlx.ExtContext, donorID string) ([]time.Time, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.DonationStatus, completedAt *time.Time) error
	List(ctx context.Context, filter models.DonationFilter) ([]models.DonationDetail, int, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type donationUnitStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, unit *models.InventoryUnit) error
	LockByDonation(ctx context.Context, exec sqlx.ExtContext, donationID string) (*models.InventoryUnit, error)
	DeleteByDonation(ctx context.Context, exec sqlx.ExtContext, donationID string) error
}

type centerLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Center, error)
}

// DonationServiceParams groups constructor dependencies.
type DonationServiceParams struct {
	Tx          transactor
	Donors      donationDonorStore
	Donations   donationStore
	Units       donationUnitStore
	Centers     centerLookup
	Audit       auditRecorder
	Eligibility *EligibilityPolicy
	ShelfLife   ShelfLife
	Publisher   events.Publisher
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// DonationService drives donations from SCHEDULED to a terminal state.
// Completing a donation creates exactly one inventory unit in the same transaction.
type DonationService struct {
	tx          transactor
	donors      donationDonorStore
	donations   donationStore
	units       donationUnitStore
	centers     centerLookup
	audit       auditRecorder
	eligibility *EligibilityPolicy
	shelfLife   ShelfLife
	validator   *validator.Validate
	logger      *zap.Logger
	after       afterCommit
	now         func() time.Time
}

// NewDonationService constructs the service.
func NewDonationService(params DonationServiceParams) *DonationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	policy := params.Eligibility
	if policy == nil {
		policy = NewEligibilityPolicy(nil)
	}
	shelfLife := params.ShelfLife
	if len(shelfLife) == 0 {
		shelfLife = DefaultShelfLife()
	}
	return &DonationService{
		tx:          params.Tx,
		donors:      params.Donors,
		donations:   params.Donations,
		units:       params.Units,
		centers:     params.Centers,
		audit:       params.Audit,
		eligibility: policy,
		shelfLife:   shelfLife,
		validator:   validate,
		logger:      logger,
		after:       afterCommit{publisher: params.Publisher, cache: params.Cache, metrics: params.Metrics, logger: logger},
		now:         time.Now,
	}
}

// Schedule registers or re-uses the donor by contact and books a donation after the eligibility gate passes.
func (s *DonationService) Schedule(ctx context.Context, req dto.ScheduleDonationRequest) (*dto.ScheduleDonationResponse, error) {
	req.Donor.FullName = strings.TrimSpace(req.Donor.FullName)
	req.Donor.Contact = strings.TrimSpace(req.Donor.Contact)
	req.DonationType = strings.TrimSpace(req.DonationType)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid donation payload")
	}
	if req.DonationDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "donation_date is required")
	}
	date := dateOnly(req.DonationDate.Time)
	if date.Before(dateOnly(s.now())) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "donation_date cannot be in the past")
	}
	if req.DonationType == "" {
		req.DonationType = models.DefaultDonationType
	}

	var donation models.Donation
	var donor models.Donor
	err := withinTx(ctx, s.tx, "failed to schedule donation", func(ctx context.Context, exec sqlx.ExtContext) error {
		center, err := s.centers.FindByID(ctx, exec, req.CenterID)
		if err != nil {
			return lookupError(err, "center not found", "failed to load center")
		}
		if !center.Active {
			return appErrors.Clone(appErrors.ErrValidation, "center is not accepting donations")
		}

		donor = models.Donor{
			FullName:   req.Donor.FullName,
			BloodGroup: req.Donor.BloodGroup,
			Contact:    req.Donor.Contact,
			Sex:        req.Donor.Sex,
		}
		if err := s.donors.Upsert(ctx, exec, &donor); err != nil {
			return storeError(err, "failed to register donor")
		}
		if donor.BloodGroup != req.Donor.BloodGroup {
			s.logger.Warn("donor blood group differs from registration, keeping stored value",
				zap.String("donor_id", donor.ID),
				zap.String("stored", string(donor.BloodGroup)),
				zap.String("submitted", string(req.Donor.BloodGroup)))
		}

		locked, err := s.donors.LockByID(ctx, exec, donor.ID)
		if err != nil {
			return storeError(err, "failed to lock donor")
		}
		last, err := s.donations.LastCompletedDate(ctx, exec, locked.ID)
		if err != nil {
			return storeError(err, "failed to load donation history")
		}
		if result := s.eligibility.Evaluate(locked.Sex, last, date); !result.Eligible {
			return appErrors.Clone(appErrors.ErrIneligibleDonor,
				fmt.Sprintf("donor is not eligible to donate until %s", result.NextEligibleDate.Format(dto.DateLayout)))
		}
		booked, err := s.donations.ScheduledDates(ctx, exec, locked.ID)
		if err != nil {
			return storeError(err, "failed to load scheduled donations")
		}
		if clash := s.bookingClash(locked.Sex, booked, date); clash != nil {
			return appErrors.Clone(appErrors.ErrIneligibleDonor,
				fmt.Sprintf("donor already has a donation booked on %s", clash.Format(dto.DateLayout)))
		}

		donation = models.Donation{
			ID:           uuid.NewString(),
			DonorID:      locked.ID,
			CenterID:     center.ID,
			DonationType: req.DonationType,
			DonationDate: date,
			Status:       models.DonationStatusScheduled,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.donations.Create(ctx, exec, &donation); err != nil {
			return storeError(err, "failed to schedule donation")
		}
		detail := fmt.Sprintf("donor=%s center=%s date=%s", locked.ID, center.ID, date.Format(dto.DateLayout))
		if err := s.audit.Record(ctx, exec, auditEntry(models.AuditSubjectDonation, donation.ID, models.AuditActionDonationScheduled, detail, donation.CreatedAt)); err != nil {
			return storeError(err, "failed to record audit entry")
		}
		return nil
	})
	if err != nil {
		s.after.conflict("schedule_donation", err)
		return nil, err
	}

	s.after.invalidateDashboard(ctx)
	s.logger.Info("donation scheduled", zap.String("donation_id", donation.ID), zap.String("donor_id", donor.ID))
	return &dto.ScheduleDonationResponse{
		DonationID: donation.ID,
		DonorID:    donor.ID,
		Status:     string(donation.Status),
		Date:       donation.DonationDate,
	}, nil
}

// Complete marks a scheduled donation as collected and stocks exactly one unit of componentType.
func (s *DonationService) Complete(ctx context.Context, id string, req dto.CompleteDonationRequest) (*dto.CompleteDonationResponse, error) {
	component := strings.TrimSpace(req.ComponentType)
	if component == "" {
		component = models.ComponentWholeBlood
	}
	if !s.shelfLife.Supports(component) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown component type %q", component))
	}

	existing, err := s.donations.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "donation not found", "failed to load donation")
	}

	var unit models.InventoryUnit
	err = withinTx(ctx, s.tx, "failed to complete donation", func(ctx context.Context, exec sqlx.ExtContext) error {
		// Donor before donation, matching the lock order of Schedule and donor deletion.
		donor, err := s.donors.LockByID(ctx, exec, existing.DonorID)
		if err != nil {
			return lookupError(err, "donor not found", "failed to lock donor")
		}
		donation, err := s.donations.LockByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "donation not found", "failed to lock donation")
		}
		if donation.Status != models.DonationStatusScheduled {
			return appErrors.Clone(appErrors.ErrAlreadyProcessed, fmt.Sprintf("donation is already %s", strings.ToLower(string(donation.Status))))
		}

		now := s.now().UTC()
		last, err := s.donations.LastCompletedDate(ctx, exec, donor.ID)
		if err != nil {
			return storeError(err, "failed to load donation history")
		}
		if result := s.eligibility.Evaluate(donor.Sex, last, dateOnly(now)); !result.Eligible {
			return appErrors.Clone(appErrors.ErrIneligibleDonor,
				fmt.Sprintf("donor is not eligible to donate until %s", result.NextEligibleDate.Format(dto.DateLayout)))
		}
		expiry, err := s.shelfLife.ExpiryDate(component, now)
		if err != nil {
			return err
		}
		if err := s.donations.UpdateStatus(ctx, exec, donation.ID, models.DonationStatusCompleted, &now); err != nil {
			return storeError(err, "failed to complete donation")
		}
		unit = models.InventoryUnit{
			ID:             uuid.NewString(),
			DonationID:     donation.ID,
			ComponentType:  component,
			CollectionDate: dateOnly(now),
			ExpiryDate:     expiry,
			Status:         models.UnitStatusAvailable,
			UpdatedAt:      now,
		}
		if err := s.units.Create(ctx, exec, &unit); err != nil {
			return storeError(err, "failed to stock inventory unit")
		}
		detail := fmt.Sprintf("unit=%s component=%s expiry=%s", unit.ID, component, expiry.Format(dto.DateLayout))
		if err := s.audit.Record(ctx, exec, auditEntry(models.AuditSubjectDonation, donation.ID, models.AuditActionDonationCompleted, detail, now)); err != nil {
			return storeError(err, "failed to record audit entry")
		}
		return nil
	})
	if err != nil {
		s.after.conflict("complete_donation", err)
		return nil, err
	}

	s.after.metrics.RecordDonationCompleted()
	s.after.invalidateDashboard(ctx)
	s.after.publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.TypeDonationCompleted,
		SubjectID:  id,
		OccurredAt: unit.UpdatedAt,
		Data: map[string]interface{}{
			"inventory_unit_id": unit.ID,
			"component_type":    unit.ComponentType,
			"expiry_date":       unit.ExpiryDate.Format(dto.DateLayout),
		},
	})
	s.logger.Info("donation completed", zap.String("donation_id", id), zap.String("unit_id", unit.ID))
	return &dto.CompleteDonationResponse{
		DonationID:      id,
		InventoryUnitID: unit.ID,
		ComponentType:   unit.ComponentType,
		ExpiryDate:      unit.ExpiryDate,
	}, nil
}

// Cancel withdraws a donation that has not been collected.
func (s *DonationService) Cancel(ctx context.Context, id string) error {
	err := withinTx(ctx, s.tx, "failed to cancel donation", func(ctx context.Context, exec sqlx.ExtContext) error {
		donation, err := s.donations.LockByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "donation not found", "failed to lock donation")
		}
		if donation.Status != models.DonationStatusScheduled {
			return appErrors.Clone(appErrors.ErrAlreadyProcessed, fmt.Sprintf("donation is already %s", strings.ToLower(string(donation.Status))))
		}
		if err := s.donations.UpdateStatus(ctx, exec, donation.ID, models.DonationStatusCancelled, nil); err != nil {
			return storeError(err, "failed to cancel donation")
		}
		return s.record(ctx, exec, models.AuditSubjectDonation, donation.ID, models.AuditActionDonationCancelled, "")
	})
	if err != nil {
		s.after.conflict("cancel_donation", err)
		return err
	}
	s.after.invalidateDashboard(ctx)
	s.logger.Info("donation cancelled", zap.String("donation_id", id))
	return nil
}

// Delete removes a donation and its unit. Donations whose unit was issued cannot be removed.
func (s *DonationService) Delete(ctx context.Context, id string) error {
	err := withinTx(ctx, s.tx, "failed to delete donation", func(ctx context.Context, exec sqlx.ExtContext) error {
		donation, err := s.donations.LockByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "donation not found", "failed to lock donation")
		}
		unit, err := s.units.LockByDonation(ctx, exec, donation.ID)
		switch {
		case err == nil:
			if unit.Status == models.UnitStatusIssued {
				return appErrors.Clone(appErrors.ErrHasIssuedDependents, "donation unit has already been issued")
			}
			if err := s.units.DeleteByDonation(ctx, exec, donation.ID); err != nil {
				return storeError(err, "failed to delete inventory unit")
			}
		case errors.Is(err, sql.ErrNoRows):
		default:
			return storeError(err, "failed to lock inventory unit")
		}
		if err := s.donations.Delete(ctx, exec, donation.ID); err != nil {
			return storeError(err, "failed to delete donation")
		}
		return s.record(ctx, exec, models.AuditSubjectDonation, donation.ID, models.AuditActionDonationDeleted, "")
	})
	if err != nil {
		s.after.conflict("delete_donation", err)
		return err
	}
	s.after.invalidateDashboard(ctx)
	s.logger.Info("donation deleted", zap.String("donation_id", id))
	return nil
}

// Get returns a donation with donor and center names.
func (s *DonationService) Get(ctx context.Context, id string) (*models.DonationDetail, error) {
	detail, err := s.donations.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "donation not found", "failed to load donation")
	}
	return detail, nil
}

// List returns donations matching the filter.
func (s *DonationService) List(ctx context.Context, filter models.DonationFilter) ([]models.DonationDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.donations.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list donations")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// bookingClash returns an open booking that lies within the cooldown of date, in either direction.
func (s *DonationService) bookingClash(sex models.Sex, booked []time.Time, date time.Time) *time.Time {
	cooldown := s.eligibility.CooldownDays(sex)
	for _, other := range booked {
		other = dateOnly(other)
		earlier, later := other, date
		if date.Before(other) {
			earlier, later = date, other
		}
		if later.Before(earlier.AddDate(0, 0, cooldown)) {
			return &other
		}
	}
	return nil
}

func (s *DonationService) record(ctx context.Context, exec sqlx.ExtContext, subjectType, subjectID, action, detail string) error {
	if err := s.audit.Record(ctx, exec, auditEntry(subjectType, subjectID, action, detail, s.now().UTC())); err != nil {
		return storeError(err, "failed to record audit entry")
	}
	return nil
}
