package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/vitalsync/analytics/internal/apperr"
)

// Helper functions shared by the handlers

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// statusFor maps a service error to an HTTP status and error code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, apperr.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, apperr.ErrUnavailable):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// parseDateRange reads from/to query values, defaulting to the trailing
// window when absent
func parseDateRange(fromStr, toStr string, defaultWindow time.Duration) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.Add(-defaultWindow)
	to := now

	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// Include the whole end day.
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	return from, to, nil
}
