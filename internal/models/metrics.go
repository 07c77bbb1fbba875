package models

import "time"

// SystemMetrics is a lightweight snapshot of process and engine counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DonationsCompleted       uint64    `json:"donations_completed"`
	UnitsIssued              uint64    `json:"units_issued"`
	UnitsExpired             uint64    `json:"units_expired"`
	TransactionConflicts     uint64    `json:"transaction_conflicts"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
