package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/internal/service"
	"github.com/noah-isme/bloodbank-api/pkg/export"
)

type exportServiceStub struct {
	format export.Format
	filter models.InventoryFilter
	limit  int
}

func (s *exportServiceStub) Inventory(ctx context.Context, filter models.InventoryFilter, format export.Format) (*service.ExportFile, error) {
	s.format, s.filter = format, filter
	return &service.ExportFile{Filename: "inventory." + string(format), ContentType: format.ContentType(), Payload: []byte("id,blood_group\n")}, nil
}

func (s *exportServiceStub) Audit(ctx context.Context, limit int, format export.Format) (*service.ExportFile, error) {
	s.format, s.limit = format, limit
	return &service.ExportFile{Filename: "audit." + string(format), ContentType: format.ContentType(), Payload: []byte("%PDF-1.3")}, nil
}

func exportRouter(stub *exportServiceStub) *gin.Engine {
	h := NewExportHandler(stub)
	r := newRouter(staffClaims())
	r.GET("/exports/inventory", h.Inventory)
	r.GET("/exports/audit", h.Audit)
	return r
}

func TestExportHandlerInventoryDefaultsToCSV(t *testing.T) {
	stub := &exportServiceStub{}
	w := perform(exportRouter(stub), http.MethodGet, "/exports/inventory?bloodGroup=A-", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV, stub.format)
	assert.Equal(t, models.BloodGroup("A-"), stub.filter.BloodGroup)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="inventory.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,blood_group\n", w.Body.String())
}

func TestExportHandlerAuditPDF(t *testing.T) {
	stub := &exportServiceStub{}
	w := perform(exportRouter(stub), http.MethodGet, "/exports/audit?format=PDF&limit=25", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatPDF, stub.format)
	assert.Equal(t, 25, stub.limit)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestExportHandlerRejectsUnknownFormat(t *testing.T) {
	stub := &exportServiceStub{}
	w := perform(exportRouter(stub), http.MethodGet, "/exports/inventory?format=docx", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, stub.format)
}
