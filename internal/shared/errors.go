package shared

import "errors"

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates a missing, invalid or expired session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates a valid session without the required privilege.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts is returned while an email is locked out after repeated failures.
	ErrTooManyAttempts = errors.New("too many login attempts")
	// ErrInvalidToken indicates an absent, malformed or badly signed session token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a well-formed session token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// IsAuthFailure reports whether err should be surfaced as 401.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenExpired)
}

// UserSafeMessage returns a message that can be shown to callers without
// leaking internal detail.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "Invalid input"
	case IsAuthFailure(err):
		return "Unauthorized"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrConflict):
		return "Already exists"
	case errors.Is(err, ErrTooManyAttempts):
		return "Too many attempts, try again later"
	default:
		return "Something went wrong"
	}
}
