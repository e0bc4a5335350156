package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avermeer/confresh/internal/config"
	"github.com/avermeer/confresh/internal/metrics"
	"github.com/avermeer/confresh/internal/metrics/datadog"
	"github.com/avermeer/confresh/internal/types"
)

// DefaultShutdownTimeout is the default timeout for shutting down a refresher.
const DefaultShutdownTimeout = 30 * time.Second

// defaultPollInterval applies when neither the caller, the service, nor the
// configuration supplies an interval.
const defaultPollInterval = 30 * time.Second

// Refresher keeps one configuration profile continuously refreshed from a
// remote source. It owns the session token, the dual value cache, the version
// history, the snapshot store and the metrics pipeline, and reschedules
// itself on a single timer.
//
// Source calls run without an internal timeout: a hung call stalls that
// refresher's cycle until the call returns. Sources that can hang should
// bound their own requests.
type Refresher struct {
	source  types.Source
	session *sessionManager
	cache   *dualCache
	history types.HistoryArchive
	store   types.SnapshotStore
	config  *config.Config
	metrics types.MetricsRecorder
	logger  *slog.Logger
	params  types.SessionParams
	profile string

	// Set only when the recorder is internally owned; a caller-supplied
	// recorder owns its own publishing.
	tracker     *metrics.Tracker
	publisher   types.Publisher
	bgPublisher *metrics.BackgroundPublisher

	historyEnabled  bool
	snapshotEnabled bool

	mu        sync.Mutex
	phase     types.Phase
	timer     *time.Timer
	suggested time.Duration

	cycleWg sync.WaitGroup
	closed  atomic.Bool
}

// New creates a refresher for one profile. The returned refresher is inert
// until Start.
//
//nolint:gocyclo // Configuration initialization requires multiple conditional checks
func New(cfg *config.Config, source types.Source, params types.SessionParams, opts *types.RefresherOptions) (*Refresher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if source == nil {
		return nil, types.ErrNilSource
	}

	logger := slog.Default()
	if opts != nil && opts.Logger != nil {
		logger = SlogFrom(opts.Logger)
	}

	profile := params.Profile
	var parser types.ParseFunc
	var recorder types.MetricsRecorder

	if opts != nil {
		if opts.Profile != "" {
			profile = opts.Profile
		}
		parser = opts.Parser
		recorder = opts.Metrics
		if opts.SnapshotAddress != "" {
			cfg.Snapshot.Address = opts.SnapshotAddress
		}
		if !opts.SnapshotPassword.IsEmpty() {
			cfg.Snapshot.Password = opts.SnapshotPassword
		}
		if opts.SnapshotDB != 0 {
			cfg.Snapshot.DB = opts.SnapshotDB
		}
		if opts.DisableSnapshots {
			cfg.Snapshot.Enabled = false
		}
		if opts.DisableHistory {
			cfg.History.Enabled = false
		}
	}
	params.Profile = profile

	if cfg.Profile.Enabled {
		validator := types.NewProfileValidator(cfg.Profile.ToTypesConfig())
		if err := validator.Validate(profile); err != nil {
			return nil, err
		}
	}

	if cfg.Poll.Interval > 0 && params.RequiredMinInterval > 0 && cfg.Poll.Interval < params.RequiredMinInterval {
		return nil, fmt.Errorf("%w: interval %v below required %v",
			types.ErrIntervalTooShort, cfg.Poll.Interval, params.RequiredMinInterval)
	}

	logger = logger.With("component", "refresher", "profile", profile)

	r := &Refresher{
		source:  source,
		config:  cfg,
		metrics: recorder,
		logger:  logger,
		params:  params,
		profile: profile,
		phase:   types.PhaseReady,
	}

	r.session = newSessionManager(source, params)
	r.cache = newDualCache(profile, parser)

	switch {
	case opts != nil && opts.History != nil:
		r.history = opts.History
		r.historyEnabled = true
	case cfg.History.Enabled:
		history, err := NewVersionHistory(cfg.History, logger)
		if err != nil {
			return nil, err
		}
		r.history = history
		r.historyEnabled = true
	default:
		r.history = NewDisabledHistory()
	}

	switch {
	case opts != nil && opts.Store != nil:
		r.store = opts.Store
		r.snapshotEnabled = true
	case cfg.Snapshot.Enabled:
		store, err := NewRedisSnapshotStore(cfg.Snapshot, logger)
		if err != nil {
			logger.Warn("Failed to create snapshot store, running without snapshots", "error", err)
			r.store = NewDisabledSnapshotStore()
		} else {
			r.store = store
			r.snapshotEnabled = true
		}
	default:
		r.store = NewDisabledSnapshotStore()
	}

	if r.metrics == nil && cfg.Metrics.Enabled {
		tracker := metrics.NewTracker()
		r.metrics = tracker
		r.tracker = tracker
		r.publisher = newPublisher(cfg, profile, logger)
		r.bgPublisher = metrics.NewBackgroundPublisher(
			r.publisher, cfg.Metrics.PublishInterval, r.publisherHealth, logger)
	}

	return r, nil
}

// newPublisher selects the metrics destination: DataDog statsd when
// configured, the structured log otherwise. A statsd setup failure degrades
// to log publishing rather than failing construction.
func newPublisher(cfg *config.Config, profile string, logger *slog.Logger) types.Publisher {
	if cfg.Metrics.DataDog.Enabled {
		publisher, err := datadog.NewPublisher(&cfg.Metrics.DataDog, logger)
		if err == nil {
			return publisher
		}
		logger.Warn("DataDog publisher unavailable, publishing metrics to the log", "error", err)
	}
	return metrics.NewLoggingPublisher(logger, metrics.ProfileTag(profile))
}

// publisherHealth assembles the staleness view the background publisher
// pushes on each interval.
func (r *Refresher) publisherHealth() *types.PublisherHealthMetrics {
	h := r.Health()
	snap := r.tracker.Snapshot()
	return &types.PublisherHealthMetrics{
		RawStalenessSeconds:    h.Raw.Age.Seconds(),
		ParsedStalenessSeconds: h.Parsed.Age.Seconds(),
		CycleCount:             snap.FetchSuccesses + snap.FetchFailures,
		FetchFailureCount:      snap.FetchFailures,
		ParseFailureCount:      snap.ParseFailures,
		HistoryEntries:         int64(h.History.Entries),
		SnapshotConnected:      h.Snapshot.Enabled && h.Snapshot.Available,
		Active:                 h.Phase == types.PhaseActive,
	}
}

// Start restores any persisted snapshot, runs the first refresh cycle
// synchronously and arms the background schedule. A failed first cycle is
// reported in the outcome, not the error: the refresher still goes active
// and keeps retrying in the background. The error return is reserved for
// contract violations such as starting twice.
func (r *Refresher) Start(ctx context.Context) (types.StartOutcome, error) {
	r.mu.Lock()
	if !r.phase.CanTransition(types.PhaseStarting) {
		phase := r.phase
		r.mu.Unlock()
		if phase == types.PhaseStopped {
			return types.StartOutcome{}, types.ErrStopped
		}
		return types.StartOutcome{}, types.ErrAlreadyStarted
	}
	r.setPhaseLocked(types.PhaseStarting)
	r.mu.Unlock()

	r.logger.Info("Starting refresher")

	r.restoreSnapshot(ctx)

	err := r.runCycle(ctx)

	r.mu.Lock()
	if r.phase == types.PhaseStopped {
		r.mu.Unlock()
		return types.StartOutcome{InitiallySucceeded: err == nil, Err: err}, nil
	}
	r.setPhaseLocked(types.PhaseActive)
	r.scheduleLocked()
	r.mu.Unlock()

	if r.bgPublisher != nil {
		// Lifetime is the refresher's, not the Start context's.
		r.bgPublisher.Start(context.Background())
	}

	if err != nil {
		r.logger.Warn("Initial refresh failed, retrying in background", "error", err)
	} else {
		r.logger.Info("Refresher active")
	}

	return types.StartOutcome{InitiallySucceeded: err == nil, Err: err}, nil
}

// runCycle performs one session/fetch cycle and updates the cache, history
// and snapshot store. It never schedules; callers own scheduling.
func (r *Refresher) runCycle(ctx context.Context) error {
	token, ok := r.session.current()
	if !ok {
		start := time.Now()
		err := r.session.establish(ctx)
		if r.metrics != nil {
			r.metrics.RecordSessionStart(r.profile, time.Since(start), err)
		}
		if err != nil {
			if !r.stopped() {
				r.cache.markFailure(err)
			}
			r.logger.Warn("Session establishment failed", "error", err)
			return err
		}
		token, _ = r.session.current()
		r.logger.Debug("Session established")
	}

	start := time.Now()
	result, err := r.source.FetchLatest(ctx, token)
	latency := time.Since(start)

	if err != nil {
		wrapped := types.NewRefreshError("FetchLatest", r.profile, types.ErrFetch, err)
		// Discard the token: a failed fetch may mean the session expired
		// server-side, so the next cycle re-establishes from scratch.
		r.session.invalidate()
		if r.metrics != nil {
			r.metrics.RecordFetchError(r.profile, latency, err)
		}
		if !r.stopped() {
			r.cache.markFailure(wrapped)
		}
		r.logger.Warn("Fetch failed, session restarts next cycle", "error", err)
		return wrapped
	}

	r.session.rotate(result.NextToken)

	if result.SuggestedInterval > 0 {
		r.mu.Lock()
		r.suggested = result.SuggestedInterval
		r.mu.Unlock()
	}

	if r.stopped() {
		return nil
	}

	now := time.Now()

	if result.Payload == nil {
		r.cache.markUnchanged(now)
		if r.metrics != nil {
			r.metrics.RecordFetch(r.profile, false, latency)
		}
		r.logger.Debug("Configuration unchanged")
		return nil
	}

	raw := string(result.Payload)
	if parseErr := r.cache.storePayload(raw, result.Version, now); parseErr != nil {
		if r.metrics != nil {
			r.metrics.RecordParseError(r.profile, parseErr)
		}
		r.logger.Warn("Payload stored but failed to parse", "version", result.Version, "error", parseErr)
	}
	if r.metrics != nil {
		r.metrics.RecordFetch(r.profile, true, latency)
	}

	if err := r.history.Record(result.Version, result.Payload); err != nil {
		r.logger.Debug("Version history record failed", "version", result.Version, "error", err)
	}

	snap := types.Snapshot{Raw: raw, Version: result.Version, FetchedAt: now}
	if err := r.store.Save(ctx, r.profile, snap); err != nil {
		r.logger.Debug("Snapshot save skipped", "error", err)
	}

	r.logger.Debug("Configuration refreshed", "version", result.Version, "bytes", len(result.Payload))
	return nil
}

// backgroundCycle is the timer callback for steady-state refreshes. Cycle
// failures are recorded in the cache and logs; the schedule always rearms
// while the refresher stays active.
func (r *Refresher) backgroundCycle() {
	r.mu.Lock()
	if r.phase != types.PhaseActive {
		r.mu.Unlock()
		return
	}
	r.cycleWg.Add(1)
	r.mu.Unlock()
	defer r.cycleWg.Done()

	_ = r.runCycle(context.Background())

	r.mu.Lock()
	if r.phase == types.PhaseActive {
		r.scheduleLocked()
	}
	r.mu.Unlock()
}

func (r *Refresher) scheduleLocked() {
	r.timer = time.AfterFunc(r.nextDelayLocked(), r.backgroundCycle)
}

// nextDelayLocked picks the wait before the next cycle. A caller-configured
// interval and a service suggestion are reconciled by taking the larger; the
// last suggestion persists across failed cycles.
func (r *Refresher) nextDelayLocked() time.Duration {
	caller := r.config.Poll.Interval
	suggested := r.suggested

	switch {
	case caller > 0 && suggested > 0:
		if caller > suggested {
			return caller
		}
		return suggested
	case caller > 0:
		return caller
	case suggested > 0:
		return suggested
	}

	if r.config.Poll.DefaultInterval > 0 {
		return r.config.Poll.DefaultInterval
	}
	return defaultPollInterval
}

// restoreSnapshot warm-starts the cache from the last persisted fetch. The
// restored entries keep the snapshot's fetch time, so readers see them as
// aged, never as fresh.
func (r *Refresher) restoreSnapshot(ctx context.Context) {
	snap, err := r.store.Load(ctx, r.profile)
	if err != nil {
		if !errors.Is(err, types.ErrNoSnapshot) {
			r.logger.Warn("Snapshot restore failed", "error", err)
		}
		return
	}

	if parseErr := r.cache.storePayload(snap.Raw, snap.Version, snap.FetchedAt); parseErr != nil {
		r.logger.Warn("Restored snapshot failed to parse", "error", parseErr)
	}

	r.logger.Info("Cache warm-started from snapshot", "version", snap.Version, "fetched_at", snap.FetchedAt)
}

// Stop halts refreshing. It is idempotent, never blocks, and leaves cached
// values readable only through Health; the value getters refuse once stopped.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.phase == types.PhaseStopped {
		r.mu.Unlock()
		return
	}
	r.setPhaseLocked(types.PhaseStopped)
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	r.logger.Info("Refresher stopped")
}

// Close stops the refresher and releases resources using the default
// shutdown timeout.
func (r *Refresher) Close() error {
	return r.CloseWithTimeout(DefaultShutdownTimeout)
}

// CloseWithTimeout stops the refresher, waits for an in-flight cycle up to
// the timeout, then closes the metrics publisher, the history and the
// snapshot store. On timeout it returns ErrShutdownTimeout but still
// proceeds with the close.
func (r *Refresher) CloseWithTimeout(timeout time.Duration) error {
	if r.closed.Swap(true) {
		return nil
	}

	r.Stop()

	done := make(chan struct{})
	go func() {
		r.cycleWg.Wait()
		close(done)
	}()

	var errs []error

	select {
	case <-done:
	case <-time.After(timeout):
		r.logger.Warn("Shutdown timeout exceeded, proceeding with close", "timeout", timeout)
		errs = append(errs, types.ErrShutdownTimeout)
	}

	// The publisher's final flush reads history and store health, so it
	// drains before either closes.
	if r.bgPublisher != nil {
		r.bgPublisher.Stop()
	}
	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.history.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := r.store.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RawValue returns the raw string tier. It never blocks and never triggers
// a fetch; outside the active phase it reports a contract error.
func (r *Refresher) RawValue() (types.RawEntry, error) {
	if err := r.requireActive(); err != nil {
		return types.RawEntry{}, err
	}
	return r.cache.rawEntry(), nil
}

// ParsedValue returns the parsed object tier. Without a parse function the
// tier is never populated and the entry stays zero-valued.
func (r *Refresher) ParsedValue() (types.ParsedEntry, error) {
	if err := r.requireActive(); err != nil {
		return types.ParsedEntry{}, err
	}
	return r.cache.parsedEntry(), nil
}

// History returns the archived payload for a version label. Valid in every
// phase.
func (r *Refresher) History(label string) ([]byte, error) {
	return r.history.Lookup(label)
}

// Phase returns the current lifecycle phase.
func (r *Refresher) Phase() types.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Profile returns the profile name this refresher serves.
func (r *Refresher) Profile() string {
	return r.profile
}

// Health returns a point-in-time health report. Unlike the value getters it
// is valid in every phase.
func (r *Refresher) Health() *types.HealthReport {
	r.mu.Lock()
	phase := r.phase
	r.mu.Unlock()

	raw := r.cache.rawEntry()
	parsed := r.cache.parsedEntry()
	historyStats := r.history.Stats()

	report := &types.HealthReport{
		Timestamp: time.Now(),
		Profile:   r.profile,
		Phase:     phase,
		Raw: types.TierHealth{
			Populated: !raw.FreshAt.IsZero(),
			Version:   raw.Version,
			FreshAt:   raw.FreshAt,
			Age:       raw.Age(),
			Stale:     raw.StaleCause != nil,
		},
		Parsed: types.TierHealth{
			Populated: !parsed.FreshAt.IsZero(),
			Version:   parsed.Version,
			FreshAt:   parsed.FreshAt,
			Age:       parsed.Age(),
			Stale:     parsed.StaleCause != nil,
		},
		History: types.HistoryHealth{
			Enabled:   r.historyEnabled,
			Entries:   r.history.Len(),
			Evictions: historyStats.Evictions,
		},
		Snapshot: types.SnapshotHealth{
			Enabled:       r.snapshotEnabled,
			Available:     r.store.IsAvailable(),
			PendingWrites: r.store.PendingWrites(),
			DroppedWrites: r.store.DroppedWrites(),
		},
	}

	if raw.StaleCause != nil {
		report.Raw.LastError = raw.StaleCause.Error()
	}
	if parsed.StaleCause != nil {
		report.Parsed.LastError = parsed.StaleCause.Error()
	}

	switch {
	case phase == types.PhaseStopped:
		report.Status = types.HealthStatusUnhealthy
	case phase != types.PhaseActive:
		report.Status = types.HealthStatusDegraded
	case report.Raw.Stale && !report.Raw.Populated:
		report.Status = types.HealthStatusUnhealthy
	case report.Raw.Stale || report.Parsed.Stale:
		report.Status = types.HealthStatusDegraded
	case r.snapshotEnabled && !r.store.IsAvailable():
		report.Status = types.HealthStatusDegraded
	default:
		report.Status = types.HealthStatusHealthy
	}

	return report
}

func (r *Refresher) requireActive() error {
	r.mu.Lock()
	phase := r.phase
	r.mu.Unlock()

	switch phase {
	case types.PhaseActive:
		return nil
	case types.PhaseStopped:
		return types.ErrStopped
	default:
		return types.ErrNotActive
	}
}

func (r *Refresher) stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == types.PhaseStopped
}

func (r *Refresher) setPhaseLocked(next types.Phase) {
	from := r.phase
	r.phase = next
	if r.metrics != nil {
		r.metrics.RecordPhaseChange(r.profile, from, next)
	}
}

// SlogFrom bridges a types.Logger into a *slog.Logger so callers supplying
// their own logging backend still get structured output. A nil logger yields
// slog.Default.
func SlogFrom(l types.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return slog.New(slogAdapter{logger: l})
}

//nolint:govet // Simple adapter struct - alignment optimization minimal
type slogAdapter struct {
	attrs  []slog.Attr
	logger types.Logger
	group  string // current group prefix from WithGroup calls
}

// Enabled implements slog.Handler.
func (a slogAdapter) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Handler interface requires passing Record by value
func (a slogAdapter) Handle(ctx context.Context, r slog.Record) error {
	args := make([]any, 0, (len(a.attrs)+r.NumAttrs())*2)

	for _, attr := range a.attrs {
		key := attr.Key
		if a.group != "" {
			key = a.group + "." + key
		}
		args = append(args, key, attr.Value.Any())
	}

	r.Attrs(func(attr slog.Attr) bool {
		key := attr.Key
		if a.group != "" {
			key = a.group + "." + key
		}
		args = append(args, key, attr.Value.Any())
		return true
	})

	switch r.Level {
	case slog.LevelDebug:
		a.logger.Debug(r.Message, args...)
	case slog.LevelInfo:
		a.logger.Info(r.Message, args...)
	case slog.LevelWarn:
		a.logger.Warn(r.Message, args...)
	case slog.LevelError:
		a.logger.Error(r.Message, args...)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (a slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(a.attrs), len(a.attrs)+len(attrs))
	copy(newAttrs, a.attrs)
	newAttrs = append(newAttrs, attrs...)
	return slogAdapter{
		logger: a.logger,
		attrs:  newAttrs,
		group:  a.group,
	}
}

// WithGroup implements slog.Handler.
func (a slogAdapter) WithGroup(name string) slog.Handler {
	newGroup := name
	if a.group != "" {
		newGroup = a.group + "." + name
	}
	return slogAdapter{
		logger: a.logger,
		attrs:  a.attrs,
		group:  newGroup,
	}
}
