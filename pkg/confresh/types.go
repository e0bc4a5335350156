package confresh

import (
	"github.com/avermeer/confresh/internal/types"
)

type (
	// Phase is the lifecycle state of a refresher.
	Phase = types.Phase
	// StartOutcome reports how the first refresh attempt went.
	StartOutcome = types.StartOutcome
	// RawEntry is a point-in-time view of the raw string tier.
	RawEntry = types.RawEntry
	// ParsedEntry is a point-in-time view of the parsed object tier.
	ParsedEntry = types.ParsedEntry
	// SessionParams identifies the configuration the remote service should
	// serve and declares the service's polling floor.
	SessionParams = types.SessionParams
	// FetchResult is one poll response from the source.
	FetchResult = types.FetchResult
	// Source is the remote configuration service a refresher polls.
	Source = types.Source
	// SourceFuncs adapts plain functions to the Source interface.
	SourceFuncs = types.SourceFuncs
	// ParseFunc derives the parsed object tier from a raw payload.
	ParseFunc = types.ParseFunc
	// Snapshot is the persisted form of the last successful fetch.
	Snapshot = types.Snapshot
	// HistoryStats summarizes the version history archive.
	HistoryStats = types.HistoryStats
	// MetricsRecorder provides operations for recording refresh metrics.
	MetricsRecorder = types.MetricsRecorder
	// Logger provides logging operations.
	Logger = types.Logger
	// SecretString redacts its value when logged or marshaled.
	SecretString = types.SecretString
)

const (
	// PhaseReady is the state before Start.
	PhaseReady = types.PhaseReady
	// PhaseStarting covers snapshot restore and the first refresh cycle.
	PhaseStarting = types.PhaseStarting
	// PhaseActive is the steady background polling state.
	PhaseActive = types.PhaseActive
	// PhaseStopped is terminal.
	PhaseStopped = types.PhaseStopped
)
