package shared

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExchange    = fmt.Errorf("catalog token exchange failed")
	ErrUserExists       = fmt.Errorf("user already exists")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSearchUnavailable  = fmt.Errorf("catalog search unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrAlreadyAdded       = fmt.Errorf("track already in playlist")
	ErrViewClosed         = fmt.Errorf("view closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// ValidationError carries per-field messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns nil when fields is empty.
func NewValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%v: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

// Field returns the message for a single field, or "" when it is valid.
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// RequestError is a non-success response from the auth or playlist backend.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *RequestError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrPlaylistNotFound
	case http.StatusUnauthorized:
		return ErrNotAuthenticated
	default:
		return ErrAPIRequest
	}
}

// AuthExchangeError reports a failed catalog client-credentials exchange.
type AuthExchangeError struct {
	Status int
	Err    error
}

func (e *AuthExchangeError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%v: status %d: %v", ErrTokenExchange, e.Status, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrTokenExchange, e.Err)
}

func (e *AuthExchangeError) Unwrap() []error { return []error{ErrTokenExchange, e.Err} }

// SearchError reports a failed catalog search.
type SearchError struct {
	Status int
	Err    error
}

func (e *SearchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%v: status %d: %v", ErrSearchUnavailable, e.Status, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrSearchUnavailable, e.Err)
}

func (e *SearchError) Unwrap() []error { return []error{ErrSearchUnavailable, e.Err} }
