package confresh

import (
	"context"
	"fmt"

	"github.com/avermeer/confresh/internal/refresh"
	"github.com/avermeer/confresh/internal/types"
)

// Group is a registry of named refreshers for applications that track
// several configuration profiles at once. Members are keyed by profile name
// and share nothing beyond the registry itself.
type Group struct {
	inner *refresh.Group
}

// Register adds a refresher under a profile name. Registering the same name
// twice is a contract violation.
func (g *Group) Register(name string, r Refresher) error {
	inner, err := unwrap(r)
	if err != nil {
		return err
	}
	return g.inner.Register(name, inner)
}

// Get returns the refresher registered under a profile name.
func (g *Group) Get(name string) (Refresher, bool) {
	inner, ok := g.inner.Get(name)
	if !ok {
		return nil, false
	}
	return inner, true
}

// Names returns the registered profile names in sorted order.
func (g *Group) Names() []string {
	return g.inner.Names()
}

// Len returns the number of registered refreshers.
func (g *Group) Len() int {
	return g.inner.Len()
}

// StartAll starts every registered refresher concurrently and collects the
// outcomes by profile name. A member whose first refresh fails still goes
// active and does not abort the others; the error return is reserved for
// contract violations.
func (g *Group) StartAll(ctx context.Context) (map[string]StartOutcome, error) {
	return g.inner.StartAll(ctx)
}

// GetOrStart returns the member registered under name, or builds, starts and
// registers one. Concurrent calls for the same name share a single build; a
// member that already exists reports a zero outcome.
func (g *Group) GetOrStart(ctx context.Context, name string, build func() (Refresher, error)) (Refresher, StartOutcome, error) {
	r, outcome, err := g.inner.GetOrStart(ctx, name, func() (*refresh.Refresher, error) {
		built, err := build()
		if err != nil {
			return nil, err
		}
		if built == nil {
			return nil, fmt.Errorf("%w: build returned no refresher for %q", types.ErrContract, name)
		}
		return unwrap(built)
	})
	if err != nil {
		return nil, outcome, err
	}
	return r, outcome, nil
}

// StopAll stops every registered refresher. Like Stop it never blocks.
func (g *Group) StopAll() {
	g.inner.StopAll()
}

// CloseAll closes every registered refresher and joins their errors.
func (g *Group) CloseAll() error {
	return g.inner.CloseAll()
}

// Health reports health for every registered refresher by profile name.
func (g *Group) Health() map[string]*HealthReport {
	return g.inner.Health()
}

// unwrap recovers the concrete refresher behind the public interface. Group
// members must come from this package's constructors; foreign
// implementations have no lifecycle the group could manage.
func unwrap(r Refresher) (*refresh.Refresher, error) {
	if r == nil {
		return nil, nil
	}
	inner, ok := r.(*refresh.Refresher)
	if !ok {
		return nil, fmt.Errorf("%w: refresher was not created by this package", types.ErrContract)
	}
	return inner, nil
}
