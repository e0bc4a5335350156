package types

import (
	"context"
	"time"
)

// Source is the remote configuration service a refresher polls. StartSession
// exchanges session parameters for an initial continuation token; FetchLatest
// polls with the current token and may rotate it via FetchResult.NextToken.
type Source interface {
	StartSession(ctx context.Context, params SessionParams) (string, error)
	FetchLatest(ctx context.Context, token string) (FetchResult, error)
}

// SourceFuncs adapts plain functions to the Source interface. Nil funcs
// report a zero result, which keeps test wiring terse.
type SourceFuncs struct {
	StartSessionFunc func(ctx context.Context, params SessionParams) (string, error)
	FetchLatestFunc  func(ctx context.Context, token string) (FetchResult, error)
}

func (s SourceFuncs) StartSession(ctx context.Context, params SessionParams) (string, error) {
	if s.StartSessionFunc == nil {
		return "", nil
	}
	return s.StartSessionFunc(ctx, params)
}

func (s SourceFuncs) FetchLatest(ctx context.Context, token string) (FetchResult, error) {
	if s.FetchLatestFunc == nil {
		return FetchResult{}, nil
	}
	return s.FetchLatestFunc(ctx, token)
}

// ParseFunc derives the parsed object tier from a raw payload.
type ParseFunc func(raw string) (any, error)

// HistoryArchive keeps recently seen payloads addressable by version label.
type HistoryArchive interface {
	Record(label string, payload []byte) error
	Lookup(label string) ([]byte, error)
	Len() int
	Stats() HistoryStats
	Close() error
}

// SnapshotStore persists the last successful fetch per profile so a restart
// can serve last-known-good data before the first poll completes.
type SnapshotStore interface {
	Save(ctx context.Context, profile string, snap Snapshot) error
	Load(ctx context.Context, profile string) (Snapshot, error)
	IsAvailable() bool
	PendingWrites() int
	DroppedWrites() int64
	Close() error
}

// MetricsRecorder defines the interface for recording refresh metrics.
type MetricsRecorder interface {
	RecordSessionStart(profile string, latency time.Duration, err error)
	RecordFetch(profile string, changed bool, latency time.Duration)
	RecordFetchError(profile string, latency time.Duration, err error)
	RecordParseError(profile string, err error)
	RecordPhaseChange(profile string, from, to Phase)
}

// Publisher sends metrics to an external monitoring system.
type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text string, alertType string, tags ...string)
	PublishHealthMetrics(metrics *PublisherHealthMetrics)
	Close() error
}

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
