package record

import "fmt"

// ErrorCategory classifies pipeline errors for handling decisions.
type ErrorCategory string

const (
	ErrCatStorage   ErrorCategory = "storage"   // Disk/filesystem failure
	ErrCatCorrupt   ErrorCategory = "corrupt"   // Malformed stored record
	ErrCatTransport ErrorCategory = "transport" // Collector unreachable or rejected
	ErrCatConfig    ErrorCategory = "config"    // Invalid configuration
)

// PipelineError is a structured error from the telemetry pipeline.
type PipelineError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches on category and code so callers can compare against
// sentinel constructors without caring about the cause.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *PipelineError) WithCause(cause error) *PipelineError {
	e.Cause = cause
	return e
}

// ErrStorage creates a storage I/O error. Storage faults are retryable:
// the record stays queued and the next run tries again.
func ErrStorage(code, message string) *PipelineError {
	return &PipelineError{
		Category:  ErrCatStorage,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrCorrupt creates a corruption error. Never retryable; a malformed
// record cannot become well-formed on a later attempt.
func ErrCorrupt(code, message string) *PipelineError {
	return &PipelineError{
		Category:  ErrCatCorrupt,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrTransport creates a transport error.
func ErrTransport(code, message string) *PipelineError {
	return &PipelineError{
		Category:  ErrCatTransport,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrConfig creates a configuration error.
func ErrConfig(code, message string) *PipelineError {
	return &PipelineError{
		Category:  ErrCatConfig,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}
