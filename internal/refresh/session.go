package refresh

import (
	"context"
	"sync"

	"github.com/avermeer/confresh/internal/types"
)

// sessionManager owns the continuation token for one refresher. The refresh
// cycle is the only writer in steady state, but establishment after a failed
// cycle races reads from health reporting, so a mutex keeps it simple.
type sessionManager struct {
	source types.Source
	params types.SessionParams

	mu    sync.Mutex
	token string
}

func newSessionManager(source types.Source, params types.SessionParams) *sessionManager {
	return &sessionManager{source: source, params: params}
}

// establish starts a new session with the source and installs its initial
// token, replacing whatever token was held before. A session response with
// an empty token is a broken session and fails establishment.
func (s *sessionManager) establish(ctx context.Context) error {
	token, err := s.source.StartSession(ctx, s.params)
	if err != nil {
		return types.NewRefreshError("StartSession", s.params.Profile, types.ErrSession, err)
	}
	if token == "" {
		return types.NewRefreshError("StartSession", s.params.Profile, types.ErrSession, types.ErrMissingToken)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	return nil
}

// current returns the held token and whether one exists.
func (s *sessionManager) current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// rotate replaces the token when the source handed back a successor. An
// empty next token means the current one stays valid.
func (s *sessionManager) rotate(next string) {
	if next == "" {
		return
	}

	s.mu.Lock()
	s.token = next
	s.mu.Unlock()
}

// invalidate discards the token so the next cycle restarts the session.
func (s *sessionManager) invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
