package ticket

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ticket API failure so callers can decide between
// redelivery (transient) and operator escalation (permanent).
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"         // 401/403: bad or expired credential
	KindRateLimit  ErrorKind = "rate_limited" // 429
	KindValidation ErrorKind = "validation"   // 4xx payload/endpoint problems
	KindServer     ErrorKind = "server"       // 5xx
	KindNetwork    ErrorKind = "network"      // transport-level failure or timeout
)

// APIError is a classified failure from the CRM API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int // 0 for network failures
	Detail     string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("crm api: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("crm api: %s (status %d): %s", e.Kind, e.StatusCode, e.Detail)
}

// Transient reports whether the failure is worth a redelivery. Auth and
// validation failures are permanent until an operator intervenes.
func (e *APIError) Transient() bool {
	switch e.Kind {
	case KindRateLimit, KindServer, KindNetwork:
		return true
	}
	return false
}

// IsTransient classifies any error from this package; unknown errors are
// treated as transient so a redelivery gets a chance.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return true
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimit
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}
