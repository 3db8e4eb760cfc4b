package shared

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/autocare/workshop/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = httpx.NewError(httpx.ErrUnauthorized, "invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// SafeError carries a message that may be shown to staff as-is.
type SafeError struct {
	Msg string
	Err error
}

func (e *SafeError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *SafeError) Unwrap() error { return e.Err }

// NewSafeError wraps err with a user facing message.
func NewSafeError(msg string, err error) error {
	return &SafeError{Msg: msg, Err: err}
}

// UserSafeMessage returns text suitable for a page or flash message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var safe *SafeError
	if errors.As(err, &safe) {
		return safe.Msg
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "Please check the " + verrs[0].Field() + " field"
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid PIN. Please try again."
	case errors.Is(err, httpx.ErrNotFound):
		return "The requested record was not found"
	case errors.Is(err, httpx.ErrConflict):
		return "This record changed in the meantime. Please reload and try again."
	case errors.Is(err, httpx.ErrValidation):
		return "Please check the form and try again."
	}
	return "Something went wrong. Please try again."
}
