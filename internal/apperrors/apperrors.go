package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind sentinels for every failure the relay can surface to a caller.
// Callers match them with errors.Is; handlers map them to HTTP statuses.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrSizeLimit  = errors.New("size limit exceeded")
	ErrAuth       = errors.New("invalid credentials")
	ErrTransient  = errors.New("transient error")
)

// Wrap attaches a kind to a human-readable message.
func Wrap(kind error, msg string) error {
	return fmt.Errorf("%s: %w", msg, kind)
}

// Wrapf is Wrap with formatting.
func Wrapf(kind error, format string, args ...any) error {
	return Wrap(kind, fmt.Sprintf(format, args...))
}

// KindOf returns the matching sentinel, or nil for errors outside the taxonomy.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrConflict, ErrNotFound, ErrForbidden,
		ErrSizeLimit, ErrAuth, ErrTransient,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// HTTPStatus maps a taxonomy error to its HTTP status code. Errors outside
// the taxonomy map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	case ErrForbidden:
		return http.StatusForbidden
	case ErrSizeLimit:
		return http.StatusRequestEntityTooLarge
	case ErrAuth:
		return http.StatusUnauthorized
	case ErrTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
