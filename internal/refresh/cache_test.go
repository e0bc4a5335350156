package refresh

import (
	"errors"
	"testing"
	"time"

	"github.com/avermeer/confresh/internal/types"
)

// TestDualCacheStorePayload tests payload installation across both tiers.
func TestDualCacheStorePayload(t *testing.T) {
	t.Run("fills raw tier without parser", func(t *testing.T) {
		c := newDualCache("test", nil)
		at := time.Now()

		if err := c.storePayload("payload", "v1", at); err != nil {
			t.Fatalf("storePayload failed: %v", err)
		}

		raw := c.rawEntry()
		if raw.Value != "payload" {
			t.Errorf("raw Value = %q, want %q", raw.Value, "payload")
		}
		if raw.Version != "v1" {
			t.Errorf("raw Version = %q, want %q", raw.Version, "v1")
		}
		if !raw.FreshAt.Equal(at) {
			t.Errorf("raw FreshAt = %v, want %v", raw.FreshAt, at)
		}
		if raw.StaleCause != nil {
			t.Errorf("raw StaleCause = %v, want nil", raw.StaleCause)
		}

		parsed := c.parsedEntry()
		if parsed.Value != nil || !parsed.FreshAt.IsZero() {
			t.Errorf("parsed tier touched without a parser: %+v", parsed)
		}
	})

	t.Run("fills both tiers when parse succeeds", func(t *testing.T) {
		c := newDualCache("test", func(raw string) (any, error) {
			return len(raw), nil
		})
		at := time.Now()

		if err := c.storePayload("abc", "v1", at); err != nil {
			t.Fatalf("storePayload failed: %v", err)
		}

		parsed := c.parsedEntry()
		if parsed.Value != 3 {
			t.Errorf("parsed Value = %v, want 3", parsed.Value)
		}
		if parsed.Version != "v1" {
			t.Errorf("parsed Version = %q, want %q", parsed.Version, "v1")
		}
		if !parsed.FreshAt.Equal(at) {
			t.Errorf("parsed FreshAt = %v, want %v", parsed.FreshAt, at)
		}
		if parsed.StaleCause != nil {
			t.Errorf("parsed StaleCause = %v, want nil", parsed.StaleCause)
		}
	})

	t.Run("parse failure keeps previous parsed value", func(t *testing.T) {
		parseErr := errors.New("bad syntax")
		failNext := false
		c := newDualCache("test", func(raw string) (any, error) {
			if failNext {
				return nil, parseErr
			}
			return raw + "!", nil
		})

		first := time.Now().Add(-time.Minute)
		if err := c.storePayload("good", "v1", first); err != nil {
			t.Fatalf("storePayload failed: %v", err)
		}

		failNext = true
		second := time.Now()
		err := c.storePayload("bad", "v2", second)
		if err == nil {
			t.Fatal("storePayload returned nil for a failing parse")
		}
		if !types.IsParseError(err) {
			t.Errorf("storePayload error = %v, want parse error", err)
		}
		if !errors.Is(err, parseErr) {
			t.Errorf("storePayload error does not wrap the parser's error: %v", err)
		}

		raw := c.rawEntry()
		if raw.Value != "bad" || raw.Version != "v2" {
			t.Errorf("raw tier = %q/%q, want the new payload", raw.Value, raw.Version)
		}
		if raw.StaleCause != nil {
			t.Errorf("raw StaleCause = %v, want nil", raw.StaleCause)
		}

		parsed := c.parsedEntry()
		if parsed.Value != "good!" {
			t.Errorf("parsed Value = %v, want the previous value", parsed.Value)
		}
		if parsed.Version != "v1" {
			t.Errorf("parsed Version = %q, want %q", parsed.Version, "v1")
		}
		if !parsed.FreshAt.Equal(first) {
			t.Errorf("parsed FreshAt = %v, want %v", parsed.FreshAt, first)
		}
		if parsed.StaleCause == nil {
			t.Error("parsed StaleCause = nil after a parse failure")
		}
	})

	t.Run("success clears standing causes", func(t *testing.T) {
		c := newDualCache("test", func(raw string) (any, error) {
			return raw, nil
		})

		c.markFailure(errors.New("down"))

		if err := c.storePayload("up", "v1", time.Now()); err != nil {
			t.Fatalf("storePayload failed: %v", err)
		}
		if cause := c.rawEntry().StaleCause; cause != nil {
			t.Errorf("raw StaleCause = %v, want cleared", cause)
		}
		if cause := c.parsedEntry().StaleCause; cause != nil {
			t.Errorf("parsed StaleCause = %v, want cleared", cause)
		}
	})

	t.Run("parse failure after outage keeps raw clean only", func(t *testing.T) {
		c := newDualCache("test", func(raw string) (any, error) {
			return nil, errors.New("always fails")
		})

		c.markFailure(errors.New("down"))

		if err := c.storePayload("payload", "v1", time.Now()); err == nil {
			t.Fatal("storePayload returned nil for a failing parse")
		}
		if cause := c.rawEntry().StaleCause; cause != nil {
			t.Errorf("raw StaleCause = %v, want cleared", cause)
		}
		if cause := c.parsedEntry().StaleCause; cause == nil {
			t.Error("parsed StaleCause cleared though nothing was parsed")
		}
	})
}

// TestDualCacheMarkUnchanged tests freshness advancement on unchanged polls.
func TestDualCacheMarkUnchanged(t *testing.T) {
	t.Run("advances both tiers with parser", func(t *testing.T) {
		c := newDualCache("test", func(raw string) (any, error) {
			return raw, nil
		})
		first := time.Now().Add(-time.Minute)
		if err := c.storePayload("cfg", "v1", first); err != nil {
			t.Fatalf("storePayload failed: %v", err)
		}

		later := time.Now()
		c.markUnchanged(later)

		raw := c.rawEntry()
		if !raw.FreshAt.Equal(later) {
			t.Errorf("raw FreshAt = %v, want %v", raw.FreshAt, later)
		}
		if raw.Value != "cfg" || raw.Version != "v1" {
			t.Errorf("raw tier changed: %q/%q", raw.Value, raw.Version)
		}

		parsed := c.parsedEntry()
		if !parsed.FreshAt.Equal(later) {
			t.Errorf("parsed FreshAt = %v, want %v", parsed.FreshAt, later)
		}
	})

	t.Run("skips parsed tier without parser", func(t *testing.T) {
		c := newDualCache("test", nil)
		if err := c.storePayload("cfg", "v1", time.Now()); err != nil {
			t.Fatalf("storePayload failed: %v", err)
		}

		c.markUnchanged(time.Now())

		if got := c.parsedEntry().FreshAt; !got.IsZero() {
			t.Errorf("parsed FreshAt = %v, want zero", got)
		}
	})

	t.Run("leaves standing causes alone", func(t *testing.T) {
		c := newDualCache("test", nil)
		cause := errors.New("down")
		c.markFailure(cause)

		c.markUnchanged(time.Now())

		if got := c.rawEntry().StaleCause; !errors.Is(got, cause) {
			t.Errorf("raw StaleCause = %v, want %v preserved", got, cause)
		}
	})
}

// TestDualCacheMarkFailure tests staleness marking.
func TestDualCacheMarkFailure(t *testing.T) {
	t.Run("stales both tiers and keeps values", func(t *testing.T) {
		c := newDualCache("test", func(raw string) (any, error) {
			return raw, nil
		})
		at := time.Now().Add(-time.Second)
		if err := c.storePayload("cfg", "v1", at); err != nil {
			t.Fatalf("storePayload failed: %v", err)
		}

		cause := errors.New("down")
		c.markFailure(cause)

		raw := c.rawEntry()
		if raw.Value != "cfg" || raw.Version != "v1" {
			t.Errorf("raw tier lost its value: %q/%q", raw.Value, raw.Version)
		}
		if !raw.FreshAt.Equal(at) {
			t.Errorf("raw FreshAt = %v, want unchanged %v", raw.FreshAt, at)
		}
		if !errors.Is(raw.StaleCause, cause) {
			t.Errorf("raw StaleCause = %v, want %v", raw.StaleCause, cause)
		}

		parsed := c.parsedEntry()
		if parsed.Value != "cfg" {
			t.Errorf("parsed tier lost its value: %v", parsed.Value)
		}
		if !errors.Is(parsed.StaleCause, cause) {
			t.Errorf("parsed StaleCause = %v, want %v", parsed.StaleCause, cause)
		}
	})

	t.Run("newer failure replaces older cause", func(t *testing.T) {
		c := newDualCache("test", nil)

		c.markFailure(errors.New("first"))
		second := errors.New("second")
		c.markFailure(second)

		if got := c.rawEntry().StaleCause; !errors.Is(got, second) {
			t.Errorf("raw StaleCause = %v, want %v", got, second)
		}
	})
}
