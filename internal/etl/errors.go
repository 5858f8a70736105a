package etl

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Fatal error kinds. A run that hits one of these aborts; none of them is
// retried. Wrap with fmt.Errorf("...: %w", Err...) so callers can match with
// errors.Is.
var (
	// ErrMissingCredential means a required credential handle (API token,
	// warehouse credentials file) was absent at startup.
	ErrMissingCredential = errors.New("missing credential")

	// ErrProtocol means the source API returned a response the pagination
	// walker cannot interpret, e.g. a page without an items key.
	ErrProtocol = errors.New("protocol error")

	// ErrSchemaMismatch means the artifact columns do not match the declared
	// destination schema.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrFileWriteFailed means the artifact file was missing or unreadable
	// after a write.
	ErrFileWriteFailed = errors.New("file write failed")

	// ErrLoadFailed means the warehouse load did not succeed after all retry
	// attempts.
	ErrLoadFailed = errors.New("load failed")
)

// TransientError marks an error as retryable. The retry policy treats
// anything wrapped in a TransientError as transient regardless of its cause.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError, a network-level error, or a Google API error with a
// retryable status code.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
