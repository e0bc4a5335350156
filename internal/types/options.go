package types

// RefresherOptions holds dependency overrides for a refresher.
type RefresherOptions struct {
	// Logger is the structured logger to use.
	Logger Logger

	// Metrics is the metrics recorder.
	Metrics MetricsRecorder

	// Parser derives the parsed object tier from each fetched payload.
	// When nil the parsed tier is never populated.
	Parser ParseFunc

	// Profile overrides the profile name from the session parameters.
	Profile string

	// SnapshotAddress overrides the snapshot store address from config.
	SnapshotAddress string

	// SnapshotPassword overrides the snapshot store password from config.
	// Uses SecretString to prevent accidental logging of sensitive values.
	SnapshotPassword SecretString

	// SnapshotDB overrides the snapshot store database from config.
	SnapshotDB int

	// DisableSnapshots disables snapshot persistence entirely.
	DisableSnapshots bool

	// DisableHistory disables the version history archive entirely.
	DisableHistory bool

	// Store replaces the snapshot store implementation. Mainly for tests.
	Store SnapshotStore

	// History replaces the version history implementation. Mainly for tests.
	History HistoryArchive
}
