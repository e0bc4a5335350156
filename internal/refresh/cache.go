package refresh

import (
	"sync"
	"time"

	"github.com/avermeer/confresh/internal/types"
)

// dualCache holds the two value tiers a refresher serves reads from. The raw
// tier keeps the exact payload string the source returned; the parsed tier
// keeps whatever the parse function derived from it. The tiers age
// independently: a payload that fetches cleanly but fails to parse refreshes
// the raw tier and stales only the parsed one, so the parsed tier can lag the
// raw tier but never lead it.
type dualCache struct {
	profile string
	parse   types.ParseFunc

	mu            sync.RWMutex
	rawValue      string
	rawVersion    string
	rawFreshAt    time.Time
	rawCause      error
	parsedValue   any
	parsedVersion string
	parsedFreshAt time.Time
	parsedCause   error
}

func newDualCache(profile string, parse types.ParseFunc) *dualCache {
	return &dualCache{profile: profile, parse: parse}
}

// storePayload installs a fetched payload. The raw tier is overwritten
// unconditionally; the parsed tier only when the parse function succeeds, so
// a bad payload leaves the previous parsed value readable with its cause set.
// The returned error is the wrapped parse failure, or nil.
func (c *dualCache) storePayload(raw, version string, at time.Time) error {
	// Parse outside the lock; the parse function is caller code.
	var parsed any
	var parseErr error
	if c.parse != nil {
		parsed, parseErr = c.parse(raw)
		if parseErr != nil {
			parseErr = types.NewRefreshError("Parse", c.profile, types.ErrParse, parseErr)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rawValue = raw
	c.rawVersion = version
	c.rawFreshAt = at
	c.rawCause = nil

	if c.parse == nil {
		return nil
	}

	if parseErr != nil {
		c.parsedCause = parseErr
		return parseErr
	}

	c.parsedValue = parsed
	c.parsedVersion = version
	c.parsedFreshAt = at
	c.parsedCause = nil

	return nil
}

// markUnchanged records a poll that confirmed the current payload is still
// current. Both tiers advance their freshness; values, versions and any
// standing causes are left alone. Without a parse function the parsed tier
// does not exist, so only the raw tier moves.
func (c *dualCache) markUnchanged(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rawFreshAt = at
	if c.parse != nil {
		c.parsedFreshAt = at
	}
}

// markFailure stales both tiers with the cycle's failure. Values survive so
// readers keep serving the last good data.
func (c *dualCache) markFailure(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rawCause = cause
	c.parsedCause = cause
}

func (c *dualCache) rawEntry() types.RawEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return types.RawEntry{
		Value:      c.rawValue,
		Version:    c.rawVersion,
		FreshAt:    c.rawFreshAt,
		StaleCause: c.rawCause,
	}
}

func (c *dualCache) parsedEntry() types.ParsedEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return types.ParsedEntry{
		Value:      c.parsedValue,
		Version:    c.parsedVersion,
		FreshAt:    c.parsedFreshAt,
		StaleCause: c.parsedCause,
	}
}
