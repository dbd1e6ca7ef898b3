// Package gateway holds the error taxonomy and retry policy shared by
// the registry, CRM and notifier clients.
package gateway

import (
	"errors"
	"fmt"
)

// AuthError reports rejected credentials (HTTP 401). It is fatal for
// the whole run and is never retried.
type AuthError struct {
	Service string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Service, e.Message)
}

// CallError reports any other non-success response or transport
// failure. The caller decides whether it fails one record or the run.
type CallError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *CallError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %s", e.Service, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

// RateLimitedError reports an HTTP 429. It never escapes a gateway
// client: Do sleeps the service cooldown and reissues the call.
type RateLimitedError struct {
	Service string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited", e.Service)
}

// IsAuth reports whether err (or anything it wraps) is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
