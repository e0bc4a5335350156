// Package types provides shared types for the confresh refresh library.
// This package breaks import cycles between pkg/confresh and internal/refresh.
package types

import "time"

// Phase is the lifecycle state of a refresher.
type Phase int

const (
	PhaseReady Phase = iota + 1
	PhaseStarting
	PhaseActive
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseStarting:
		return "starting"
	case PhaseActive:
		return "active"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from p to next is a legal lifecycle
// transition. Stopped is terminal and reachable from every other phase, so
// stopping before start is legal; everything else follows the single forward
// path ready -> starting -> active.
func (p Phase) CanTransition(next Phase) bool {
	switch p {
	case PhaseReady:
		return next == PhaseStarting || next == PhaseStopped
	case PhaseStarting:
		return next == PhaseActive || next == PhaseStopped
	case PhaseActive:
		return next == PhaseStopped
	default:
		return false
	}
}

// RawEntry is a point-in-time view of the raw string tier.
//
// Value holds the last successfully fetched payload and is retained across
// failures; StaleCause reports why the most recent refresh attempt failed,
// or nil when the tier is fresh. Within a single refresh cycle a tier either
// updates Value and clears StaleCause, or keeps Value and sets StaleCause,
// never both.
type RawEntry struct {
	Value      string
	Version    string
	FreshAt    time.Time
	StaleCause error
}

// Age returns the time elapsed since the entry was last confirmed fresh,
// or zero if it never was.
func (e RawEntry) Age() time.Duration {
	if e.FreshAt.IsZero() {
		return 0
	}
	return time.Since(e.FreshAt)
}

// ParsedEntry is a point-in-time view of the parsed object tier. It follows
// the same freshness rules as RawEntry but may lag it: a payload that fetched
// cleanly and then failed to parse leaves the previous parsed value in place
// with StaleCause set.
type ParsedEntry struct {
	Value      any
	Version    string
	FreshAt    time.Time
	StaleCause error
}

// Age returns the time elapsed since the entry was last confirmed fresh,
// or zero if it never was.
func (e ParsedEntry) Age() time.Duration {
	if e.FreshAt.IsZero() {
		return 0
	}
	return time.Since(e.FreshAt)
}

// StartOutcome reports how the first refresh attempt went. A failed first
// attempt is not an error from Start: the refresher still goes active and
// retries in the background, and the outcome carries what went wrong.
type StartOutcome struct {
	InitiallySucceeded bool
	Err                error
}

// SessionParams identifies the configuration the remote service should serve
// and declares the service's polling floor.
type SessionParams struct {
	Application string
	Environment string
	Profile     string

	// RequiredMinInterval is the shortest poll interval the service permits.
	// A caller-configured interval below it is rejected at construction.
	RequiredMinInterval time.Duration
}

// FetchResult is one poll response from the source.
type FetchResult struct {
	// Payload is the configuration data, or nil when nothing changed since
	// the last poll.
	Payload []byte

	// NextToken replaces the current continuation token when non-empty.
	NextToken string

	// Version is the service-assigned label for Payload, when known.
	Version string

	// SuggestedInterval is the service's polling guidance, zero when absent.
	SuggestedInterval time.Duration
}

// Snapshot is the persisted form of the last successful fetch for a profile.
type Snapshot struct {
	Raw       string    `json:"raw"`
	Version   string    `json:"version,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// HistoryStats summarizes the version history archive.
type HistoryStats struct {
	Records   int64
	Lookups   int64
	Misses    int64
	Evictions int64
}
