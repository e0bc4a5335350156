package types

import "time"

// HealthStatus represents the overall health state.
type HealthStatus int

const (
	// HealthStatusHealthy indicates the refresher is active and fresh.
	HealthStatusHealthy HealthStatus = iota + 1
	// HealthStatusDegraded indicates partial function (e.g. stale parse,
	// snapshot store down, not yet active).
	HealthStatusDegraded
	// HealthStatusUnhealthy indicates the refresher is stopped or cannot
	// refresh at all.
	HealthStatusUnhealthy
)

// String returns the string representation of health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthReport contains overall refresher health information. Unlike the
// value getters it is valid in every phase.
type HealthReport struct {
	Timestamp time.Time
	Profile   string
	Phase     Phase
	Status    HealthStatus
	Raw       TierHealth
	Parsed    TierHealth
	History   HistoryHealth
	Snapshot  SnapshotHealth
}

// TierHealth describes one cache tier.
type TierHealth struct {
	Populated bool
	Version   string
	FreshAt   time.Time
	Age       time.Duration
	Stale     bool
	LastError string
}

// HistoryHealth describes the version history archive.
type HistoryHealth struct {
	Enabled   bool
	Entries   int
	Evictions int64
}

// SnapshotHealth describes the snapshot store.
//
//nolint:govet // Metrics struct - logical grouping prioritized for readability
type SnapshotHealth struct {
	Enabled       bool
	Available     bool
	PendingWrites int
	DroppedWrites int64
}

// MetricsSnapshot contains a point-in-time view of refresh metrics.
//
//nolint:govet // Metrics struct with many counters - grouping by category improves readability
type MetricsSnapshot struct {
	Timestamp time.Time
	// Cycle counters
	FetchSuccesses   int64
	FetchFailures    int64
	ChangedFetches   int64
	UnchangedFetches int64
	ParseFailures    int64
	SessionStarts    int64
	SessionFailures  int64

	// Latency metrics (milliseconds)
	AvgLatencyMs float64
	P50LatencyMs float64
	P95LatencyMs float64
	P99LatencyMs float64
}

// FetchSuccessRatio calculates the fraction of fetch attempts that succeeded.
func (s *MetricsSnapshot) FetchSuccessRatio() float64 {
	total := s.FetchSuccesses + s.FetchFailures
	if total == 0 {
		return 0
	}
	return float64(s.FetchSuccesses) / float64(total)
}

// ChangeRatio calculates the fraction of successful fetches that carried a
// new payload.
func (s *MetricsSnapshot) ChangeRatio() float64 {
	if s.FetchSuccesses == 0 {
		return 0
	}
	return float64(s.ChangedFetches) / float64(s.FetchSuccesses)
}

// SessionSuccessRatio calculates the fraction of session starts that succeeded.
func (s *MetricsSnapshot) SessionSuccessRatio() float64 {
	total := s.SessionStarts + s.SessionFailures
	if total == 0 {
		return 0
	}
	return float64(s.SessionStarts) / float64(total)
}

// PublisherHealthMetrics is the staleness view pushed to monitoring systems
// by the background publisher.
type PublisherHealthMetrics struct {
	RawStalenessSeconds    float64
	ParsedStalenessSeconds float64
	CycleCount             int64
	FetchFailureCount      int64
	ParseFailureCount      int64
	HistoryEntries         int64
	SnapshotConnected      bool
	Active                 bool
}
