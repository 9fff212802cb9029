package dto

import "time"

// SystemMetrics is the process-level snapshot exposed to administrators.
type SystemMetrics struct {
	CacheHitRatio              float64   `json:"cache_hit_ratio"`
	CacheHits                  uint64    `json:"cache_hits"`
	CacheMisses                uint64    `json:"cache_misses"`
	RequestsTotal              uint64    `json:"requests_total"`
	AverageRequestDurationMs   float64   `json:"avg_request_duration_ms"`
	StoreReadCount             uint64    `json:"store_read_count"`
	AverageStoreReadDurationMs float64   `json:"avg_store_read_duration_ms"`
	ComputationsTotal          uint64    `json:"computations_total"`
	Goroutines                 int       `json:"goroutines"`
	GeneratedAt                time.Time `json:"generated_at"`
}

// CachePurgeResult reports how many cached analytics entries were dropped.
type CachePurgeResult struct {
	Removed int `json:"removed"`
}
