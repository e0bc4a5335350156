package confresh

import (
	"context"

	"github.com/avermeer/confresh/internal/types"
)

// Refresher keeps one configuration profile continuously refreshed from a
// remote source. Start resolves after the first fetch attempt; a failed
// first attempt is reported in the outcome, not the error.
type Refresher interface {
	Start(ctx context.Context) (StartOutcome, error)
	Stop()
	RawValue() (RawEntry, error)
	ParsedValue() (ParsedEntry, error)
	History(label string) ([]byte, error)
	Phase() Phase
	Health() *HealthReport
	Profile() string
	Close() error
}

// Publisher sends metrics to an external monitoring system.
type Publisher = types.Publisher

// PublisherHealthMetrics is the staleness view pushed to monitoring systems
// by the background publisher.
type PublisherHealthMetrics = types.PublisherHealthMetrics
