package quickbooks

import (
	"fmt"
	"net/http"
	"strings"
)

// AuthError means a token exchange or refresh was rejected. When it
// comes from a refresh, the refresh token is expired or revoked and the
// caller must repeat the browser consent flow. Status is 0 when the
// failure was detected locally (stale access token pre-flight).
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("quickbooks: authorization required: %s", e.Body)
	}
	return fmt.Sprintf("quickbooks: authorization failed: status %d: %s", e.Status, e.Body)
}

// StateError means an operation was attempted without the required
// prior state. It never involves a network call.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("quickbooks: invalid state: %s", e.Reason)
}

// NotFoundError maps a remote 404 on a GET by id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("quickbooks: %s %q not found", e.Resource, e.ID)
}

// ConflictError means an update carried a missing or stale SyncToken.
// Status is 0 when the missing SyncToken was caught before dispatch.
type ConflictError struct {
	Status int
	Body   string
}

func (e *ConflictError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("quickbooks: update conflict: %s", e.Body)
	}
	return fmt.Sprintf("quickbooks: update conflict: status %d: %s", e.Status, e.Body)
}

// RateLimitError surfaces remote throttling (the API enforces a
// 500-requests-per-minute ceiling) so callers can back off.
type RateLimitError struct {
	Status int
	Body   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("quickbooks: rate limited: status %d: %s", e.Status, e.Body)
}

// RemoteError is any other non-2xx response, with status and body kept
// for diagnostics.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("quickbooks: remote error: status %d: %s", e.Status, e.Body)
}

// staleObjectFault matches the fault QBO returns for an outdated
// SyncToken on an update (error code 5010, "Stale Object Error").
func staleObjectFault(body string) bool {
	return strings.Contains(body, "5010") || strings.Contains(body, "Stale Object Error")
}

// errorFromResponse maps a non-2xx resource response to a typed error.
func errorFromResponse(resource, id string, status int, body []byte) error {
	text := string(body)
	switch {
	case status == http.StatusUnauthorized:
		return &AuthError{Status: status, Body: text}
	case status == http.StatusNotFound:
		return &NotFoundError{Resource: resource, ID: id}
	case status == http.StatusConflict:
		return &ConflictError{Status: status, Body: text}
	case status == http.StatusBadRequest && staleObjectFault(text):
		return &ConflictError{Status: status, Body: text}
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Status: status, Body: text}
	default:
		return &RemoteError{Status: status, Body: text}
	}
}
