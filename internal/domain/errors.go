package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Severity levels shown next to user-facing errors.
const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
)

var (
	// ErrNoCredentials is returned when an authenticated call is made without an API key.
	ErrNoCredentials = errors.New("api key is not set")
	// ErrNoDocket is returned when cancelling without an active docket.
	ErrNoDocket = errors.New("no active order docket")
)

// NetworkError transport failure while talking to the exchange.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError non-2xx response with the server-provided message.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
}

// ValidationError malformed user input; blocks only the action it guards.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// StateError component used without being constructed. Raised with panic.
type StateError struct {
	Component string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s used before initialization", e.Component)
}

// UserMessage returns the text that should be shown to the user for err.
// API errors are shown verbatim.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
