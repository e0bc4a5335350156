package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/avermeer/confresh/internal/types"
)

// Group is a registry of named refreshers for applications that track
// several configuration profiles at once. Members are keyed by profile name
// and share nothing beyond the registry itself.
type Group struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	members map[string]*Refresher
	sfGroup singleflight.Group
}

// NewGroup creates an empty refresher group.
func NewGroup(logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.Default()
	}
	return &Group{
		logger:  logger.With("component", "refresher-group"),
		members: make(map[string]*Refresher),
	}
}

// Register adds a refresher under a profile name. Registering the same name
// twice is a contract violation.
func (g *Group) Register(name string, r *Refresher) error {
	if err := types.ValidateProfile(name); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: nil refresher for %q", types.ErrContract, name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.members[name]; exists {
		return fmt.Errorf("%w: %s", types.ErrDuplicateProfile, name)
	}

	g.members[name] = r
	return nil
}

// Get returns the refresher registered under a profile name.
func (g *Group) Get(name string) (*Refresher, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.members[name]
	return r, ok
}

// Names returns the registered profile names in sorted order.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.members))
	for name := range g.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered refreshers.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// StartAll starts every registered refresher concurrently and collects each
// one's outcome. An unsuccessful outcome does not abort the others; only a
// contract violation, such as a member that was already started, fails the
// call itself.
func (g *Group) StartAll(ctx context.Context) (map[string]types.StartOutcome, error) {
	g.mu.RLock()
	members := make(map[string]*Refresher, len(g.members))
	for name, r := range g.members {
		members[name] = r
	}
	g.mu.RUnlock()

	var outMu sync.Mutex
	outcomes := make(map[string]types.StartOutcome, len(members))

	eg, ctx := errgroup.WithContext(ctx)
	for name, r := range members {
		name, r := name, r
		eg.Go(func() error {
			outcome, err := r.Start(ctx)
			if err != nil {
				return fmt.Errorf("start %s: %w", name, err)
			}

			outMu.Lock()
			outcomes[name] = outcome
			outMu.Unlock()

			if !outcome.InitiallySucceeded {
				g.logger.Warn("Member started degraded", "profile", name, "error", outcome.Err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// GetOrStart returns the refresher registered under name, or builds, starts
// and registers one using the build function. Concurrent calls for the same
// name share a single build, so a profile is never constructed twice.
//
// The outcome is zero-valued when the member already existed; otherwise it is
// the initial start's outcome.
func (g *Group) GetOrStart(ctx context.Context, name string, build func() (*Refresher, error)) (*Refresher, types.StartOutcome, error) {
	if r, ok := g.Get(name); ok {
		return r, types.StartOutcome{}, nil
	}

	v, err, _ := g.sfGroup.Do(name, func() (any, error) {
		if r, ok := g.Get(name); ok {
			return &startResult{refresher: r}, nil
		}

		r, err := build()
		if err != nil {
			return nil, err
		}

		outcome, err := r.Start(ctx)
		if err != nil {
			_ = r.Close()
			return nil, err
		}

		if err := g.Register(name, r); err != nil {
			_ = r.Close()
			return nil, err
		}

		return &startResult{refresher: r, outcome: outcome, started: true}, nil
	})
	if err != nil {
		return nil, types.StartOutcome{}, err
	}

	result := v.(*startResult)
	if !result.started {
		return result.refresher, types.StartOutcome{}, nil
	}
	return result.refresher, result.outcome, nil
}

type startResult struct {
	refresher *Refresher
	outcome   types.StartOutcome
	started   bool
}

// StopAll stops every member. Stop never blocks, so neither does StopAll.
func (g *Group) StopAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, r := range g.members {
		r.Stop()
	}
}

// CloseAll closes every member and joins their errors.
func (g *Group) CloseAll() error {
	g.mu.RLock()
	members := make(map[string]*Refresher, len(g.members))
	for name, r := range g.members {
		members[name] = r
	}
	g.mu.RUnlock()

	var errs []error
	for name, r := range members {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Health returns a health report per registered profile.
func (g *Group) Health() map[string]*types.HealthReport {
	g.mu.RLock()
	defer g.mu.RUnlock()

	reports := make(map[string]*types.HealthReport, len(g.members))
	for name, r := range g.members {
		reports[name] = r.Health()
	}
	return reports
}
