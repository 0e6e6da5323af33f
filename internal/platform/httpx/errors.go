// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden access")
	ErrUnauthorized = errors.New("unauthorized access")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Only the sentinel text reaches the client; wrapped causes stay server-side.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", ErrNotFound.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", ErrDuplicate.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", ErrForbidden.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Unauthorized writes the generic 401 problem.
func Unauthorized(w http.ResponseWriter) {
	RespondError(w, ErrUnauthorized)
}

// Forbidden writes the generic 403 problem.
func Forbidden(w http.ResponseWriter) {
	RespondError(w, ErrForbidden)
}
