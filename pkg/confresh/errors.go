package confresh

import (
	"github.com/avermeer/confresh/internal/types"
)

// RefreshError wraps an operational failure with its kind and origin.
type RefreshError = types.RefreshError

var (
	// ErrSession indicates that session establishment failed.
	ErrSession = types.ErrSession
	// ErrFetch indicates that a fetch attempt failed.
	ErrFetch = types.ErrFetch
	// ErrParse indicates that a fetched payload could not be parsed.
	ErrParse = types.ErrParse
	// ErrContract indicates caller misuse of the API.
	ErrContract = types.ErrContract
	// ErrAlreadyStarted indicates that Start was called twice.
	ErrAlreadyStarted = types.ErrAlreadyStarted
	// ErrNotActive indicates a value read outside the active phase.
	ErrNotActive = types.ErrNotActive
	// ErrStopped indicates use of a stopped refresher.
	ErrStopped = types.ErrStopped
	// ErrNilSource indicates construction without a source.
	ErrNilSource = types.ErrNilSource
	// ErrIntervalTooShort indicates a poll interval below the session minimum.
	ErrIntervalTooShort = types.ErrIntervalTooShort
	// ErrInvalidProfile indicates a profile name that failed validation.
	ErrInvalidProfile = types.ErrInvalidProfile
	// ErrDuplicateProfile indicates a profile name already registered in a group.
	ErrDuplicateProfile = types.ErrDuplicateProfile
	// ErrMissingToken indicates a session response that carried no token.
	ErrMissingToken = types.ErrMissingToken
	// ErrVersionUnknown indicates a version label not present in history.
	ErrVersionUnknown = types.ErrVersionUnknown
	// ErrHistoryDisabled indicates a history lookup with history disabled.
	ErrHistoryDisabled = types.ErrHistoryDisabled
	// ErrNoSnapshot indicates that no snapshot is stored for the profile.
	ErrNoSnapshot = types.ErrNoSnapshot
	// ErrStoreUnavailable indicates that the snapshot store is not reachable.
	ErrStoreUnavailable = types.ErrStoreUnavailable
	// ErrWriteQueueFull indicates that the snapshot write queue is full.
	ErrWriteQueueFull = types.ErrWriteQueueFull
	// ErrShutdownTimeout indicates that Close gave up waiting for background work.
	ErrShutdownTimeout = types.ErrShutdownTimeout
)

// NewRefreshError creates a refresh error with operation, profile, kind
// sentinel, and underlying error.
func NewRefreshError(op, profile string, kind, err error) *RefreshError {
	return types.NewRefreshError(op, profile, kind, err)
}

// IsSessionError returns true if the error came from session establishment.
func IsSessionError(err error) bool {
	return types.IsSessionError(err)
}

// IsFetchError returns true if the error came from a fetch attempt.
func IsFetchError(err error) bool {
	return types.IsFetchError(err)
}

// IsParseError returns true if the error came from the parse function.
func IsParseError(err error) bool {
	return types.IsParseError(err)
}

// IsContractError returns true if the error indicates caller misuse.
func IsContractError(err error) bool {
	return types.IsContractError(err)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return types.IsRetryable(err)
}
