package errors

import (
	"errors"
)

// Error taxonomy for the connector. Public operations return these (wrapped)
// instead of panicking; callers render Message(err) to the end user.
var (
	// Session / authentication errors
	ErrSessionExpired     = errors.New("session expired, please re-authenticate")
	ErrBadCredentials     = errors.New("Bad credentials")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrTwoFactorRequired  = errors.New("two-factor authentication required")
	ErrOAuthRefused       = errors.New("OAuth access token refused")
	ErrInvalidState       = errors.New("Error during OAuth exchanges")
	ErrNotConnected       = errors.New("not connected")

	// Transport errors
	ErrTransport   = errors.New("transport error")
	ErrClientFault = errors.New("remote rejected the request")
	ErrServerFault = errors.New("remote server error")
	ErrBadMethod   = errors.New("Bad HTTP method")

	// Payload errors
	ErrMalformedResponse = errors.New("Invalid response")

	// Policy errors
	ErrForbidden = errors.New("Operation not available")
)

// userFacing lists the errors whose text is safe to show to an end user.
// Anything else collapses to the closest entry in its chain, or a generic message.
var userFacing = []error{
	ErrSessionExpired,
	ErrBadCredentials,
	ErrInvalidCredentials,
	ErrTwoFactorRequired,
	ErrOAuthRefused,
	ErrInvalidState,
	ErrNotConnected,
	ErrClientFault,
	ErrServerFault,
	ErrTransport,
	ErrBadMethod,
	ErrMalformedResponse,
	ErrForbidden,
}

// Message returns the human readable message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, target := range userFacing {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "Unexpected error"
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
