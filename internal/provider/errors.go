package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse marks provider output that could not be interpreted
// (undecodable body, empty choices). Wrapped with %w so callers can test it.
var ErrMalformedResponse = errors.New("malformed provider response")

// APIError is a non-200 response from a provider's HTTP API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// Transient reports whether the status is worth retrying.
func (e *APIError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// GenerationKind distinguishes retryable gateway failures from terminal ones.
type GenerationKind string

const (
	GenerationTransient GenerationKind = "transient"
	GenerationMalformed GenerationKind = "malformed"
)

// GenerationError is the typed failure surfaced by the Gateway.
type GenerationError struct {
	Kind GenerationKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation error (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// classifyError maps a raw provider error onto a GenerationError.
// Rate limits, server errors, timeouts and network failures are transient;
// undecodable responses and client-side API errors are malformed.
func classifyError(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	if errors.Is(err, ErrMalformedResponse) {
		return &GenerationError{Kind: GenerationMalformed, Err: err}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && !apiErr.Transient() {
		return &GenerationError{Kind: GenerationMalformed, Err: err}
	}
	return &GenerationError{Kind: GenerationTransient, Err: err}
}
