package chat

import "errors"

var (
	// ErrCapacityExceeded is returned by ConnLimiter.Acquire when every
	// connection slot is in use. The caller is rejected immediately; there
	// is no queue.
	ErrCapacityExceeded = errors.New("too many active connections")

	// ErrUpstreamFailure marks a completion backend error or timeout. The
	// partial reply, if any, is discarded and never retried here.
	ErrUpstreamFailure = errors.New("upstream completion failed")

	// ErrServiceUnavailable is returned when no completion backend is
	// configured.
	ErrServiceUnavailable = errors.New("chat service is unavailable")
)

// ValidationError reports a malformed or oversized inbound payload. It is
// reported to the client; the connection stays open and nothing is persisted.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
