package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when the API answers 404 for a product
	ErrProductNotFound = errors.New("product not found")

	// ErrNetwork is returned when the API could not be reached
	ErrNetwork = errors.New("network error")

	// ErrUnavailable is returned while the circuit breaker is open
	ErrUnavailable = errors.New("product API temporarily unavailable")

	// errCallerGone marks requests abandoned by the caller's context
	errCallerGone = errors.New("request abandoned by caller")
)

// APIError is a non-2xx response from the product API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("product API request failed: status %d", e.Status)
}

// isBreakerFailure reports whether err should count against the circuit.
// Client-side errors (4xx) and caller cancellation say nothing about the API.
func isBreakerFailure(err error) bool {
	if err == nil || errors.Is(err, errCallerGone) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return !errors.Is(err, ErrProductNotFound)
}
