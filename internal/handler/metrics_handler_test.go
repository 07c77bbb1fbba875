package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/internal/service"
)

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(ctx context.Context) error {
	return p.err
}

func TestMetricsHandlerProbes(t *testing.T) {
	metrics := service.NewMetricsService()
	h := NewMetricsHandler(metrics, pingerStub{})
	r := newRouter(nil)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ready", nil).Code)

	down := NewMetricsHandler(metrics, pingerStub{err: errors.New("connection refused")})
	r2 := newRouter(nil)
	r2.GET("/ready", down.Ready)
	w := perform(r2, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", decode(t, w).Error.Code)
}

func TestMetricsHandlerSummaryAndPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordDonationCompleted()
	metrics.RecordAllocation(service.AllocationFulfilled, 2)
	metrics.ObserveHTTPRequest(http.MethodGet, "/inventory", http.StatusOK, 5*time.Millisecond)

	h := NewMetricsHandler(metrics, nil)
	r := newRouter(staffClaims())
	r.GET("/metrics", h.Prometheus)
	r.GET("/metrics/summary", h.Summary)

	w := perform(r, http.MethodGet, "/metrics/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot models.SystemMetrics
	decodeData(t, w, &snapshot)
	assert.Equal(t, uint64(1), snapshot.DonationsCompleted)
	assert.Equal(t, uint64(2), snapshot.UnitsIssued)
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)

	w = perform(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bloodbank_allocations_total{outcome="fulfilled"} 1`)
	assert.Contains(t, w.Body.String(), "bloodbank_units_issued_total 2")
}
