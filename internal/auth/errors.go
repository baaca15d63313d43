package auth

import "fmt"

// Error identifiers exposed to API clients. Downstream services key off these
// rather than off human-readable messages.
const (
	ErrIDInternal             = "INTERNAL_SERVER_ERROR"
	ErrIDInvalidEmail         = "INVALID_EMAIL"
	ErrIDUsernameConflict     = "USERNAME_ALREADY_EXISTS"
	ErrIDEmailConflict        = "EMAIL_ALREADY_EXISTS"
	ErrIDInvalidCredentials   = "INVALID_USERNAME_OR_PASSWORD"
	ErrIDEmailNotVerified     = "EMAIL_NOT_VERIFIED"
	ErrIDInvalidToken         = "INVALID_OR_EXPIRED_TOKEN"
	ErrIDNotEnoughPermission  = "NOT_ENOUGH_PERMISSION"
	ErrIDUserNotFound         = "USER_NOT_FOUND"
	ErrIDEmailAlreadyVerified = "EMAIL_ALREADY_CONFIRMED"
	ErrIDUnprocessable        = "UNPROCESSABLE_ENTITY"
)

// Error is a domain error carrying a machine-readable id, a human message and
// optional free-text detail. Two Errors match under errors.Is when their IDs
// are equal, so callers compare against the prototype values below.
type Error struct {
	ID      string
	Message string
	Detail  string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.ID, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.ID, e.Message)
}

// Is matches by error id, ignoring detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.ID == e.ID
}

// WithDetail returns a copy of the error with free-text detail attached.
func (e *Error) WithDetail(format string, args ...any) *Error {
	clone := *e
	clone.Detail = fmt.Sprintf(format, args...)
	return &clone
}

// Prototype domain errors. Handlers map the IDs onto HTTP statuses.
var (
	ErrInternal = &Error{
		ID:      ErrIDInternal,
		Message: "an internal server error occurred",
	}
	ErrInvalidEmail = &Error{
		ID:      ErrIDInvalidEmail,
		Message: "invalid e-mail address",
	}
	ErrUsernameConflict = &Error{
		ID:      ErrIDUsernameConflict,
		Message: "the username already exists",
	}
	ErrEmailConflict = &Error{
		ID:      ErrIDEmailConflict,
		Message: "the e-mail already exists",
	}
	// ErrInvalidCredentials is deliberately identical for unknown-username
	// and wrong-password so a caller cannot probe which field failed.
	ErrInvalidCredentials = &Error{
		ID:      ErrIDInvalidCredentials,
		Message: "invalid username or password",
	}
	ErrEmailNotVerified = &Error{
		ID:      ErrIDEmailNotVerified,
		Message: "the e-mail has not been verified yet",
	}
	// ErrInvalidOrExpiredToken covers bad signatures, expiry and, on the
	// verification path, tokens naming unknown accounts. Keeping those cases
	// indistinguishable avoids confirming account existence to a prober.
	ErrInvalidOrExpiredToken = &Error{
		ID:      ErrIDInvalidToken,
		Message: "the token is invalid or has expired",
	}
	ErrNotEnoughPermission = &Error{
		ID:      ErrIDNotEnoughPermission,
		Message: "not enough permissions to access this resource",
	}
	ErrUserNotFound = &Error{
		ID:      ErrIDUserNotFound,
		Message: "user not found",
	}
	ErrEmailAlreadyVerified = &Error{
		ID:      ErrIDEmailAlreadyVerified,
		Message: "the e-mail has already been confirmed",
	}
	ErrUnprocessable = &Error{
		ID:      ErrIDUnprocessable,
		Message: "the request entity could not be processed",
	}
)
