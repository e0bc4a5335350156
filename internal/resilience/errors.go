package resilience

import (
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/avermeer/confresh/internal/types"
)

// IsRetryable determines if an error is transient and worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Errors that carry their own retry classification win
	var rc interface{ Retryable() bool }
	if errors.As(err, &rc) {
		return rc.Retryable()
	}

	// Contract and parse errors are deterministic, retrying cannot help
	if types.IsContractError(err) || types.IsParseError(err) {
		return false
	}

	// Connection refused, reset, etc. surface through url.Error, so check
	// the syscall chain before the generic net.Error timeout check
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	// Check for temporary network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	// Check for temporary OS errors
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	// By default, assume errors are retryable for resilience
	return true
}
