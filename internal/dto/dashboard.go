package dto

import (
	"time"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

// GroupStock is the available unit count for one blood group.
type GroupStock struct {
	BloodGroup models.BloodGroup `json:"blood_group"`
	Units      int               `json:"units"`
}

// InventoryDashboard aggregates current stock and demand, derived on read.
type InventoryDashboard struct {
	PendingRequests int                 `json:"pending_requests"`
	ScheduledToday  int                 `json:"scheduled_today"`
	ExpiringSoon    int                 `json:"expiring_soon"`
	Stock           []GroupStock        `json:"stock"`
	StockDetail     []models.StockLevel `json:"stock_detail"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

// SweepResult reports an expiry sweep run.
type SweepResult struct {
	Expired int       `json:"expired"`
	UnitIDs []string  `json:"unit_ids"`
	RanAt   time.Time `json:"ran_at"`
}
