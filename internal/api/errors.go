package api

import (
	"errors"
	"net/http"

	"github.com/studyforge/xp-api/internal/service/leveling"
	"github.com/studyforge/xp-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Caller errors and business-rule rejections
	case errors.Is(err, leveling.ErrInvalidRequest),
		errors.Is(err, leveling.ErrDailyCapExceeded),
		errors.Is(err, leveling.ErrNoRemainingAllowance):
		return http.StatusBadRequest

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Default: storage or other infrastructure failure
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, leveling.ErrInvalidRequest):
		return "Invalid request"

	case errors.Is(err, leveling.ErrDailyCapExceeded):
		return "Daily XP limit reached for this activity"

	case errors.Is(err, leveling.ErrNoRemainingAllowance):
		return "No XP remaining for this activity today"

	case store.IsNotFoundError(err):
		return "User XP state not found"

	default:
		return "An unexpected error occurred"
	}
}
