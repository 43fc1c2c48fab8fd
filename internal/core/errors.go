package core

import "errors"

// Error codes for protocol errors reported by the transport.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeRateLimited    = "rate_limited"
)

// ErrHubStopped is returned by hub queries after Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// BadRequest builds a CoreError for malformed client input.
func BadRequest(msg string) *CoreError {
	return coreError(ErrCodeBadRequest, msg)
}

// InvalidMessage builds a CoreError for unknown or undecodable envelopes.
func InvalidMessage(msg string) *CoreError {
	return coreError(ErrCodeInvalidMessage, msg)
}
