package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common reusable application errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInternal        = errors.New("internal server error")
	ErrFeatureDisabled = errors.New("feature disabled")
	ErrNoPreferences   = errors.New("no email preferences for user")
	ErrRateLimited     = errors.New("too many requests")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPStatus maps err onto a response status. Unknown errors are 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrNotFound), Is(err, ErrNoPreferences):
		return http.StatusNotFound
	case Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case Is(err, ErrFeatureDisabled):
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}
