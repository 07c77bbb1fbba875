package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
)

type centerStore interface {
	List(ctx context.Context, activeOnly bool) ([]models.Center, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Center, error)
	Create(ctx context.Context, center *models.Center) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type centerDonationCounter interface {
	CountByCenter(ctx context.Context, exec sqlx.ExtContext, centerID string) (int, error)
}

// CenterService maintains the collection center directory.
type CenterService struct {
	tx        transactor
	centers   centerStore
	donations centerDonationCounter
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCenterService constructs the service.
func NewCenterService(tx transactor, centers centerStore, donations centerDonationCounter, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CenterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CenterService{tx: tx, centers: centers, donations: donations, audit: audit, validator: validate, logger: logger}
}

// List returns centers; activeOnly hides closed ones.
func (s *CenterService) List(ctx context.Context, activeOnly bool) ([]models.Center, error) {
	centers, err := s.centers.List(ctx, activeOnly)
	if err != nil {
		return nil, storeError(err, "failed to list centers")
	}
	return centers, nil
}

// Create adds an active center.
func (s *CenterService) Create(ctx context.Context, req dto.CreateCenterRequest) (*models.Center, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid center payload")
	}
	center := &models.Center{Name: req.Name, Location: req.Location}
	if err := s.centers.Create(ctx, center); err != nil {
		return nil, storeError(err, "failed to create center")
	}
	s.logger.Info("center created", zap.String("center_id", center.ID))
	return center, nil
}

// Delete removes a center no donation refers to.
func (s *CenterService) Delete(ctx context.Context, id string) error {
	err := withinTx(ctx, s.tx, "failed to delete center", func(ctx context.Context, exec sqlx.ExtContext) error {
		center, err := s.centers.FindByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "center not found", "failed to load center")
		}
		count, err := s.donations.CountByCenter(ctx, exec, center.ID)
		if err != nil {
			return storeError(err, "failed to count donations")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrHasDependentRecords, "center has donations on record")
		}
		if err := s.centers.Delete(ctx, exec, center.ID); err != nil {
			return storeError(err, "failed to delete center")
		}
		return s.audit.Record(ctx, exec, auditEntry(models.AuditSubjectCenter, center.ID, models.AuditActionCenterDeleted, center.Name, time.Now().UTC()))
	})
	if err != nil {
		return storeError(err, "failed to delete center")
	}
	s.logger.Info("center deleted", zap.String("center_id", id))
	return nil
}
