package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider failures. A *ProviderError matches one of
// them with errors.Is according to its status code.
var (
	ErrUnauthorized = errors.New("provider rejected credentials")
	ErrRateLimited  = errors.New("provider rate limit exceeded")
	ErrUnavailable  = errors.New("provider unavailable")
)

// ProviderError is a failed provider call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is maps the status code onto the sentinel errors.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == 401 || e.StatusCode == 403
	case ErrRateLimited:
		return e.StatusCode == 429
	case ErrUnavailable:
		return e.StatusCode >= 500
	}
	return false
}

// Retryable reports whether repeating the call may succeed.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
