package models

import "time"

// SystemMetrics is a lightweight snapshot of service health figures.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SchedulesGenerated       uint64    `json:"schedules_generated"`
	PartialSchedules         uint64    `json:"partial_schedules"`
	SolverFallbacks          uint64    `json:"solver_fallbacks"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
