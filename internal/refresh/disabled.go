package refresh

import (
	"context"

	"github.com/avermeer/confresh/internal/types"
)

// DisabledHistory is a no-op version history implementation.
type DisabledHistory struct{}

// NewDisabledHistory creates a new disabled version history.
func NewDisabledHistory() *DisabledHistory {
	return &DisabledHistory{}
}

// Record does nothing as history is disabled.
func (h *DisabledHistory) Record(label string, payload []byte) error { return nil }

// Lookup returns ErrHistoryDisabled as history is disabled.
func (h *DisabledHistory) Lookup(label string) ([]byte, error) {
	return nil, types.ErrHistoryDisabled
}

// Len returns 0 as history is disabled.
func (h *DisabledHistory) Len() int { return 0 }

// Stats returns empty statistics as history is disabled.
func (h *DisabledHistory) Stats() types.HistoryStats { return types.HistoryStats{} }

// Close does nothing as history is disabled.
func (h *DisabledHistory) Close() error { return nil }

// DisabledSnapshotStore is a no-op snapshot store implementation.
type DisabledSnapshotStore struct{}

// NewDisabledSnapshotStore creates a new disabled snapshot store.
func NewDisabledSnapshotStore() *DisabledSnapshotStore {
	return &DisabledSnapshotStore{}
}

// IsAvailable returns false as the store is disabled.
func (s *DisabledSnapshotStore) IsAvailable() bool { return false }

// Save does nothing as the store is disabled.
func (s *DisabledSnapshotStore) Save(ctx context.Context, profile string, snap types.Snapshot) error {
	return nil
}

// Load returns ErrNoSnapshot as the store is disabled.
func (s *DisabledSnapshotStore) Load(ctx context.Context, profile string) (types.Snapshot, error) {
	return types.Snapshot{}, types.ErrNoSnapshot
}

// PendingWrites returns 0 as the store is disabled.
func (s *DisabledSnapshotStore) PendingWrites() int { return 0 }

// DroppedWrites returns 0 as the store is disabled.
func (s *DisabledSnapshotStore) DroppedWrites() int64 { return 0 }

// Close does nothing as the store is disabled.
func (s *DisabledSnapshotStore) Close() error { return nil }

var _ types.HistoryArchive = (*DisabledHistory)(nil)
var _ types.SnapshotStore = (*DisabledSnapshotStore)(nil)
