package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every operational failure wraps exactly one of these.
var (
	ErrSession  = errors.New("confresh: session establishment failed")
	ErrFetch    = errors.New("confresh: fetch failed")
	ErrParse    = errors.New("confresh: payload parse failed")
	ErrContract = errors.New("confresh: contract violation")
)

// Contract violations. All unwrap to ErrContract.
var (
	ErrAlreadyStarted   = fmt.Errorf("%w: already started", ErrContract)
	ErrNotActive        = fmt.Errorf("%w: refresher not active", ErrContract)
	ErrStopped          = fmt.Errorf("%w: refresher stopped", ErrContract)
	ErrNilSource        = fmt.Errorf("%w: nil source", ErrContract)
	ErrIntervalTooShort = fmt.Errorf("%w: poll interval below session minimum", ErrContract)
	ErrInvalidProfile   = fmt.Errorf("%w: invalid profile name", ErrContract)
	ErrDuplicateProfile = fmt.Errorf("%w: profile already registered", ErrContract)
)

var (
	ErrMissingToken     = errors.New("confresh: session response carried no token")
	ErrVersionUnknown   = errors.New("confresh: version label not in history")
	ErrHistoryDisabled  = errors.New("confresh: version history disabled")
	ErrNoSnapshot       = errors.New("confresh: no stored snapshot")
	ErrStoreUnavailable = errors.New("confresh: snapshot store unavailable")
	ErrWriteQueueFull   = errors.New("confresh: snapshot write queue full")
	ErrShutdownTimeout  = errors.New("confresh: shutdown timeout waiting for background operations")
)

// RefreshError wraps an operational failure with its kind and origin.
type RefreshError struct {
	Op      string
	Profile string
	Kind    error
	Err     error
}

func (e *RefreshError) Error() string {
	if e.Profile != "" {
		return fmt.Sprintf("confresh %s [%s]: %v", e.Op, e.Profile, e.Err)
	}
	return fmt.Sprintf("confresh %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is matches either: callers can test for ErrSession while still
// reaching the collaborator's original error unchanged.
func (e *RefreshError) Unwrap() []error {
	switch {
	case e.Kind == nil && e.Err == nil:
		return nil
	case e.Kind == nil:
		return []error{e.Err}
	case e.Err == nil:
		return []error{e.Kind}
	default:
		return []error{e.Kind, e.Err}
	}
}

func NewRefreshError(op, profile string, kind, err error) *RefreshError {
	return &RefreshError{
		Op:      op,
		Profile: profile,
		Kind:    kind,
		Err:     err,
	}
}

// IsSessionError returns true if the error came from session establishment.
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSession)
}

// IsFetchError returns true if the error came from a fetch attempt.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsParseError returns true if the error came from the parse function.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsContractError returns true if the error indicates caller misuse.
func IsContractError(err error) bool {
	return errors.Is(err, ErrContract)
}

// IsRetryable returns true if the error might succeed on retry.
// Contract violations and parse failures are deterministic; retrying
// them burns a request for the same answer.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsContractError(err) || IsParseError(err) {
		return false
	}
	if errors.Is(err, ErrMissingToken) || errors.Is(err, ErrVersionUnknown) ||
		errors.Is(err, ErrHistoryDisabled) || errors.Is(err, ErrNoSnapshot) {
		return false
	}
	return true
}
