package confresh

import (
	"github.com/avermeer/confresh/internal/types"
)

// Re-export health types from internal/types.
type (
	// HealthStatus represents the overall health state.
	HealthStatus = types.HealthStatus

	// HealthReport contains overall refresher health information. Unlike
	// the value getters it is valid in every phase.
	HealthReport = types.HealthReport

	// TierHealth describes one cache tier.
	TierHealth = types.TierHealth

	// HistoryHealth describes the version history archive.
	HistoryHealth = types.HistoryHealth

	// SnapshotHealth describes the snapshot store.
	SnapshotHealth = types.SnapshotHealth

	// MetricsSnapshot contains a point-in-time view of refresh metrics.
	MetricsSnapshot = types.MetricsSnapshot
)

// Re-export health status constants.
const (
	HealthStatusHealthy   = types.HealthStatusHealthy
	HealthStatusDegraded  = types.HealthStatusDegraded
	HealthStatusUnhealthy = types.HealthStatusUnhealthy
)
