package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"

	"github.com/avermeer/confresh/internal/config"
	"github.com/avermeer/confresh/internal/types"
)

// VersionHistory archives recently fetched payloads keyed by their version
// label, backed by an in-process BigCache instance. Entries age out after the
// retention window or under memory pressure, so a missing label is an
// expected answer rather than a fault.
type VersionHistory struct {
	cache  *bigcache.BigCache
	config config.HistoryConfig
	logger *slog.Logger

	records   atomic.Int64
	lookups   atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	closed atomic.Bool
}

// NewVersionHistory creates a version history archive with the given
// configuration.
func NewVersionHistory(cfg config.HistoryConfig, logger *slog.Logger) (*VersionHistory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vh := &VersionHistory{
		config: cfg,
		logger: logger.With("component", "version-history"),
	}

	bcConfig := bigcache.Config{
		Shards:             cfg.Shards,
		LifeWindow:         cfg.Retention,
		CleanWindow:        cfg.CleanupInterval,
		MaxEntriesInWindow: 1000, // Versions arrive one per changed fetch
		MaxEntrySize:       cfg.MaxPayloadSize,
		HardMaxCacheSize:   cfg.MaxSizeMB,
		Verbose:            false,
		Logger:             &bigcacheLogger{logger: logger},
		OnRemoveWithReason: func(key string, entry []byte, reason bigcache.RemoveReason) {
			if reason == bigcache.NoSpace || reason == bigcache.Expired {
				vh.evictions.Add(1)
			}
		},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, err
	}

	vh.cache = bc
	return vh, nil
}

// Record stores a payload under its version label. A later record for the
// same label overwrites, which collapses re-fetches of a known version.
// Payloads without a label have no address and are silently skipped.
func (h *VersionHistory) Record(label string, payload []byte) error {
	if h.closed.Load() {
		return types.ErrHistoryDisabled
	}

	if label == "" {
		return nil
	}

	if err := h.cache.Set(label, payload); err != nil {
		return fmt.Errorf("record version %q: %w", label, err)
	}

	h.records.Add(1)
	return nil
}

// Lookup returns the payload recorded under the given version label.
func (h *VersionHistory) Lookup(label string) ([]byte, error) {
	if h.closed.Load() {
		return nil, types.ErrHistoryDisabled
	}

	h.lookups.Add(1)

	payload, err := h.cache.Get(label)
	if err != nil {
		if err == bigcache.ErrEntryNotFound {
			h.misses.Add(1)
			return nil, fmt.Errorf("%w: %s", types.ErrVersionUnknown, label)
		}
		return nil, fmt.Errorf("lookup version %q: %w", label, err)
	}

	return payload, nil
}

// Len returns the number of versions currently archived.
func (h *VersionHistory) Len() int {
	return h.cache.Len()
}

// Stats returns version history statistics.
func (h *VersionHistory) Stats() types.HistoryStats {
	return types.HistoryStats{
		Records:   h.records.Load(),
		Lookups:   h.lookups.Load(),
		Misses:    h.misses.Load(),
		Evictions: h.evictions.Load(),
	}
}

// Close closes the archive and releases resources.
func (h *VersionHistory) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	return h.cache.Close()
}

type bigcacheLogger struct {
	logger *slog.Logger
}

func (l *bigcacheLogger) Printf(format string, args ...any) {
	l.logger.Debug("bigcache: "+format, args...)
}

var _ types.HistoryArchive = (*VersionHistory)(nil)
