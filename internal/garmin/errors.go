package garmin

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMFARequired        = errors.New("multi-factor authentication required")
	ErrAccountLocked      = errors.New("account locked")
	ErrNoTicket           = errors.New("no service ticket in sign-in response")
	ErrNoCSRF             = errors.New("no CSRF token on sign-in page")
)

// StatusError is returned for any response with a 4xx or 5xx status.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: API returned status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.URL, e.Code, e.Body)
}
