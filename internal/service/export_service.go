package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/export"
)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type availableStockLister interface {
	ListAvailable(ctx context.Context, filter models.InventoryFilter) ([]models.InventoryUnitDetail, error)
}

type recentAuditLister interface {
	Recent(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders inventory and audit listings as CSV, PDF or XLSX.
type ExportService struct {
	inventory availableStockLister
	audit     recentAuditLister
	renderers map[export.Format]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(inventory availableStockLister, audit recentAuditLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		inventory: inventory,
		audit:     audit,
		renderers: map[export.Format]renderer{
			export.FormatCSV:  export.NewCSVExporter(),
			export.FormatPDF:  export.NewPDFExporter(),
			export.FormatXLSX: export.NewXLSXExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ParseFormat validates a format name; empty means CSV.
func ParseFormat(raw string) (export.Format, error) {
	format := export.Format(strings.ToLower(strings.TrimSpace(raw)))
	switch format {
	case "":
		return export.FormatCSV, nil
	case export.FormatCSV, export.FormatPDF, export.FormatXLSX:
		return format, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
}

// Inventory exports the currently issuable stock.
func (s *ExportService) Inventory(ctx context.Context, filter models.InventoryFilter, format export.Format) (*ExportFile, error) {
	units, err := s.inventory.ListAvailable(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Title:   "Available Inventory",
		Headers: []string{"Unit ID", "Blood Group", "Component", "Collected", "Expires"},
	}
	for _, unit := range units {
		data.Rows = append(data.Rows, map[string]string{
			"Unit ID":     unit.ID,
			"Blood Group": string(unit.BloodGroup),
			"Component":   unit.ComponentType,
			"Collected":   unit.CollectionDate.UTC().Format(time.RFC3339),
			"Expires":     unit.ExpiryDate.Format(dto.DateLayout),
		})
	}
	return s.render("inventory", data, format)
}

// Audit exports the most recent audit entries.
func (s *ExportService) Audit(ctx context.Context, limit int, format export.Format) (*ExportFile, error) {
	entries, err := s.audit.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Title:   "Inventory Audit Log",
		Headers: []string{"Timestamp", "Subject", "Subject ID", "Action", "Detail"},
	}
	for _, entry := range entries {
		data.Rows = append(data.Rows, map[string]string{
			"Timestamp":  entry.CreatedAt.UTC().Format(time.RFC3339),
			"Subject":    entry.SubjectType,
			"Subject ID": entry.SubjectID,
			"Action":     entry.Action,
			"Detail":     entry.Detail,
		})
	}
	return s.render("audit", data, format)
}

func (s *ExportService) render(name string, data export.Dataset, format export.Format) (*ExportFile, error) {
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	payload, err := r.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s_%s.%s", name, s.now().UTC().Format("20060102_150405"), format)
	s.logger.Debug("export rendered", zap.String("file", filename), zap.Int("rows", len(data.Rows)), zap.Int("bytes", len(payload)))
	return &ExportFile{Filename: filename, ContentType: format.ContentType(), Payload: payload}, nil
}
