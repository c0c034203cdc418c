package surface

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for submission failures
var (
	// ErrSurfaceTimeout indicates a hidden surface never produced a populated body
	ErrSurfaceTimeout = errors.New("hidden surface did not become ready")

	// ErrNoForm indicates the target field has no owning form
	ErrNoForm = errors.New("field has no owning form")

	// ErrNoHostPage indicates Submit was called before Open
	ErrNoHostPage = errors.New("host page not opened")

	// ErrUnknownEngine indicates an engine name that is not registered
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrRequestFailed indicates the HTTP request failed
	ErrRequestFailed = errors.New("HTTP request failed")

	// ErrEngineUnhealthy indicates the breaker is open after repeated engine failures
	ErrEngineUnhealthy = errors.New("engine unhealthy, circuit open")
)

// TimeoutError is returned when a frame is not ready within its deadline.
// errors.Is(err, ErrSurfaceTimeout) holds for it.
type TimeoutError struct {
	Frame string
	Field string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("frame %s for field %s not ready after %s", e.Frame, e.Field, e.After)
}

// Is reports ErrSurfaceTimeout as the error's kind.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrSurfaceTimeout
}

// SubmitError provides detailed error information for a failed submission
type SubmitError struct {
	Operation string // The operation that failed
	URL       string // The form action
	Field     string // The field being tested
	Payload   string // The payload being submitted
	Cause     error  // The underlying error
}

// Error implements the error interface
func (e *SubmitError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s failed for field '%s' on %s: %v",
			e.Operation, e.Field, truncateString(e.URL, 50), e.Cause)
	}
	return fmt.Sprintf("%s failed for %s: %v",
		e.Operation, truncateString(e.URL, 50), e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *SubmitError) Unwrap() error {
	return e.Cause
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
