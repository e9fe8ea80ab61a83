package models

import "time"

// SystemMetrics summarises process counters for the admin dashboard.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	WebhooksReceived         uint64    `json:"webhooks_received"`
	EnrollmentsCommitted     uint64    `json:"enrollments_committed"`
	InvitesSent              uint64    `json:"invites_sent"`
	InvitesFailed            uint64    `json:"invites_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
