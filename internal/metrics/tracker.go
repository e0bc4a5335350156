// Package metrics provides refresh cycle metrics collection and publishing.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avermeer/confresh/internal/types"
)

const (
	defaultLatencyBufferSize = 10000
)

type Tracker struct {
	sessionStarts   atomic.Int64
	sessionFailures atomic.Int64

	fetchSuccesses   atomic.Int64
	fetchFailures    atomic.Int64
	changedFetches   atomic.Int64
	unchangedFetches atomic.Int64

	parseFailures atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int

	phaseChanges atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
}

func (t *Tracker) RecordSessionStart(profile string, latency time.Duration, err error) {
	if err != nil {
		t.sessionFailures.Add(1)
	} else {
		t.sessionStarts.Add(1)
	}
	t.recordLatency(latency)
}

func (t *Tracker) RecordFetch(profile string, changed bool, latency time.Duration) {
	t.fetchSuccesses.Add(1)
	if changed {
		t.changedFetches.Add(1)
	} else {
		t.unchangedFetches.Add(1)
	}
	t.recordLatency(latency)
}

// RecordFetchError records a failed fetch attempt.
func (t *Tracker) RecordFetchError(profile string, latency time.Duration, err error) {
	t.fetchFailures.Add(1)
	t.recordLatency(latency)
}

// RecordParseError records a payload that could not be parsed.
func (t *Tracker) RecordParseError(profile string, err error) {
	t.parseFailures.Add(1)
}

// RecordPhaseChange records lifecycle phase transitions.
func (t *Tracker) RecordPhaseChange(profile string, from, to types.Phase) {
	t.phaseChanges.Add(1)
}

// recordLatency adds a latency measurement using a circular buffer.
// This is O(1) time complexity with no memory allocations.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns current metrics snapshot.
func (t *Tracker) Snapshot() types.MetricsSnapshot {
	// Use RLock for reading - allows concurrent snapshots
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	// Copy from circular buffer in correct order
	if count > 0 {
		if count < len(t.latencyBuffer) {
			// Buffer not full yet - data starts at 0
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			// Buffer is full - oldest data starts at latencyIndex
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	snapshot := types.MetricsSnapshot{
		Timestamp:        time.Now(),
		SessionStarts:    t.sessionStarts.Load(),
		SessionFailures:  t.sessionFailures.Load(),
		FetchSuccesses:   t.fetchSuccesses.Load(),
		FetchFailures:    t.fetchFailures.Load(),
		ChangedFetches:   t.changedFetches.Load(),
		UnchangedFetches: t.unchangedFetches.Load(),
		ParseFailures:    t.parseFailures.Load(),
	}

	// Calculate latency percentiles
	if len(latencyCopy) > 0 {
		snapshot.AvgLatencyMs = float64(avgDuration(latencyCopy).Milliseconds())
		snapshot.P50LatencyMs = float64(percentile(latencyCopy, 50).Milliseconds())
		snapshot.P95LatencyMs = float64(percentile(latencyCopy, 95).Milliseconds())
		snapshot.P99LatencyMs = float64(percentile(latencyCopy, 99).Milliseconds())
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	t.sessionStarts.Store(0)
	t.sessionFailures.Store(0)
	t.fetchSuccesses.Store(0)
	t.fetchFailures.Store(0)
	t.changedFetches.Store(0)
	t.unchangedFetches.Store(0)
	t.parseFailures.Store(0)
	t.phaseChanges.Store(0)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

// Helper functions for latency calculations

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	// Sort a copy
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

// Ensure Tracker implements MetricsRecorder
var _ types.MetricsRecorder = (*Tracker)(nil)
