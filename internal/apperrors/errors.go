package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrRecipientNotFound = errors.New("elderly person or contact not found")
	ErrReminderNotFound  = errors.New("reminder not found")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrForbidden         = errors.New("forbidden")
	ErrProvider          = errors.New("provider error")
	ErrPersistence       = errors.New("persistence error")
	ErrNotConfigured     = errors.New("not configured")
)

func InvalidRequest(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, a...))
}

func NotFound(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, a...))
}

func Provider(err error) error {
	return fmt.Errorf("%w: %v", ErrProvider, err)
}

func Persistence(err error) error {
	if err == nil || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// IsNotFound reports whether err is any of the not-found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRecipientNotFound) ||
		errors.Is(err, ErrReminderNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}

// IsPermanent reports whether retrying the same request can never succeed
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || IsNotFound(err)
}

// HTTPStatus maps an error to the status code handlers answer with
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
