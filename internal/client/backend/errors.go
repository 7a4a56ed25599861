package backend

import "errors"

var (
	// ErrOffline is returned (or pre-empted by the probe) when the backend
	// cannot be reached at all.
	ErrOffline = errors.New("no network connection")

	// ErrUnavailable covers transport failures once a connection was
	// attempted: refused, reset, timed out.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized is returned when the current session is no longer
	// accepted and could not be refreshed.
	ErrUnauthorized = errors.New("unauthorized")
)

// CredentialError is returned when the identity backend rejects the
// submitted credentials: wrong password, malformed email, email already
// registered. Message is the backend's own text, passed through verbatim
// so the caller can show it unchanged.
type CredentialError struct {
	Message string
}

func (e *CredentialError) Error() string { return e.Message }
