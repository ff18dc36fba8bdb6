package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfiguration is returned for invalid paths, units or field lists.
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstreamUnavailable marks rate limiting and server-side faults.
	// Fetchers pause and retry on it.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	// ErrMalformedRecord is returned when a stored record cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMissingFile is returned when an expected output file is absent.
	ErrMissingFile = errors.New("missing file")
)

// UpstreamError is a transient upstream failure.
type UpstreamError struct {
	Service    string
	StatusCode int
	// RetryAfter is the wait the upstream asked for, zero if unknown.
	RetryAfter time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s unavailable", e.Service)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}

// Configf builds an error wrapping ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
