package refresh

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/avermeer/confresh/internal/config"
	"github.com/avermeer/confresh/internal/types"
)

// TestVersionHistoryRecord tests archiving payloads by version label.
func TestVersionHistoryRecord(t *testing.T) {
	t.Run("archives a payload by version label", func(t *testing.T) {
		h := newTestHistory(t)

		if err := h.Record("v1", []byte("payload one")); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		payload, err := h.Lookup("v1")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if !bytes.Equal(payload, []byte("payload one")) {
			t.Errorf("Lookup payload = %q, want %q", payload, "payload one")
		}
	})

	t.Run("skips payloads without a label", func(t *testing.T) {
		h := newTestHistory(t)

		if err := h.Record("", []byte("unlabeled")); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if h.Len() != 0 {
			t.Errorf("Len = %d, want 0", h.Len())
		}
	})

	t.Run("overwrites an existing label", func(t *testing.T) {
		h := newTestHistory(t)

		if err := h.Record("v1", []byte("first")); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := h.Record("v1", []byte("second")); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		payload, err := h.Lookup("v1")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if string(payload) != "second" {
			t.Errorf("Lookup payload = %q, want %q", payload, "second")
		}
		if h.Len() != 1 {
			t.Errorf("Len = %d, want 1", h.Len())
		}
	})

	t.Run("refuses after close", func(t *testing.T) {
		h := newTestHistory(t)
		if err := h.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		if err := h.Record("v1", []byte("late")); !errors.Is(err, types.ErrHistoryDisabled) {
			t.Errorf("Record error = %v, want ErrHistoryDisabled", err)
		}
	})
}

// TestVersionHistoryLookup tests payload retrieval.
func TestVersionHistoryLookup(t *testing.T) {
	t.Run("unknown label reports version unknown", func(t *testing.T) {
		h := newTestHistory(t)

		_, err := h.Lookup("v99")
		if !errors.Is(err, types.ErrVersionUnknown) {
			t.Errorf("Lookup error = %v, want ErrVersionUnknown", err)
		}
		if !strings.Contains(err.Error(), "v99") {
			t.Errorf("Lookup error %q does not name the label", err)
		}
	})

	t.Run("refuses after close", func(t *testing.T) {
		h := newTestHistory(t)
		if err := h.Record("v1", []byte("payload")); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := h.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		if _, err := h.Lookup("v1"); !errors.Is(err, types.ErrHistoryDisabled) {
			t.Errorf("Lookup error = %v, want ErrHistoryDisabled", err)
		}
	})
}

// TestVersionHistoryStats tests the archive counters.
func TestVersionHistoryStats(t *testing.T) {
	h := newTestHistory(t)

	for i := 1; i <= 3; i++ {
		label := fmt.Sprintf("v%d", i)
		if err := h.Record(label, []byte(label)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if _, err := h.Lookup("v1"); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, err := h.Lookup("v2"); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, err := h.Lookup("missing"); err == nil {
		t.Fatal("Lookup succeeded for an unknown label")
	}

	if h.Len() != 3 {
		t.Errorf("Len = %d, want 3", h.Len())
	}

	stats := h.Stats()
	if stats.Records != 3 {
		t.Errorf("Records = %d, want 3", stats.Records)
	}
	if stats.Lookups != 3 {
		t.Errorf("Lookups = %d, want 3", stats.Lookups)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

// TestVersionHistoryClose tests shutdown.
func TestVersionHistoryClose(t *testing.T) {
	h := newTestHistory(t)

	if err := h.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

// TestDisabledHistory tests the disabled archive stand-in.
func TestDisabledHistory(t *testing.T) {
	h := NewDisabledHistory()

	if err := h.Record("v1", []byte("payload")); err != nil {
		t.Errorf("Record failed: %v", err)
	}
	if _, err := h.Lookup("v1"); !errors.Is(err, types.ErrHistoryDisabled) {
		t.Errorf("Lookup error = %v, want ErrHistoryDisabled", err)
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func newTestHistory(t *testing.T) *VersionHistory {
	t.Helper()

	h, err := NewVersionHistory(config.ForTesting().History, slog.Default())
	if err != nil {
		t.Fatalf("NewVersionHistory failed: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func BenchmarkHistoryLookup(b *testing.B) {
	h, err := NewVersionHistory(config.ForTesting().History, slog.Default())
	if err != nil {
		b.Fatalf("NewVersionHistory failed: %v", err)
	}
	defer func() { _ = h.Close() }()

	if err := h.Record("v1", []byte(`{"feature":"enabled"}`)); err != nil {
		b.Fatalf("Record failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.Lookup("v1"); err != nil {
			b.Fatal(err)
		}
	}
}
