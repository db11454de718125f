package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies gateway failures for callers that need to branch on
// the failure class rather than a raw status code.
type ErrorKind string

const (
	// KindNetworkFailure covers transport-level errors: the request never
	// produced an HTTP response. Transient and user-retryable.
	KindNetworkFailure ErrorKind = "network_failure"
	// KindSessionExpired means the access token was rejected and could not be
	// refreshed. The session has been cleared; the user must re-authenticate.
	KindSessionExpired ErrorKind = "session_expired"
	// KindUnauthorized is a 401 that the gateway will not recover from: the
	// call was anonymous, or had already been retried once.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindForbidden is a 403 role mismatch. Never retried and never triggers
	// a refresh; a valid token with insufficient privileges stays valid.
	KindForbidden ErrorKind = "forbidden"
	// KindServerError is any 5xx. Opaque to the client.
	KindServerError ErrorKind = "server_error"
	// KindRequestFailed is any remaining 4xx (validation errors, missing
	// resources). Passed through for the caller to interpret.
	KindRequestFailed ErrorKind = "request_failed"
)

// Error is the typed failure returned by every gateway call. For HTTP-level
// failures Body carries the raw response payload so callers can surface the
// server's own error details.
type Error struct {
	Kind       ErrorKind
	StatusCode int // 0 for network failures
	Body       []byte
	RequestID  string
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway: %s (HTTP %d)", e.Kind, e.StatusCode)
	}
	if e.cause != nil {
		return fmt.Sprintf("gateway: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("gateway: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsKind reports whether err is a gateway Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Kind == kind
}

// IsSessionExpired reports whether err means the user must log in again.
func IsSessionExpired(err error) bool {
	return IsKind(err, KindSessionExpired)
}

// IsForbidden reports whether err is a role-mismatch rejection.
func IsForbidden(err error) bool {
	return IsKind(err, KindForbidden)
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status >= 500:
		return KindServerError
	default:
		return KindRequestFailed
	}
}
