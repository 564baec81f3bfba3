package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure classes the control surface distinguishes.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionStopped   = errors.New("session stopped")
	ErrNoActiveDevice   = errors.New("no active device")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrNoActiveTrack    = errors.New("nothing is playing")
	ErrVolumeOutOfRange = errors.New("volume must be between 0 and 100")
	ErrSeekOutOfRange   = errors.New("seek position is outside the track")
	ErrModuleNotReady   = errors.New("module is not ready")
	ErrUnknownModule    = errors.New("unknown module")
	ErrNetworkError     = errors.New("network error")
	ErrTimeout          = errors.New("request timeout")
	ErrConfigNotFound   = errors.New("config file not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// StartifyError wraps an error with a user-facing suggestion.
type StartifyError struct {
	Err        error
	Suggestion string
}

func (e *StartifyError) Error() string {
	return e.Err.Error()
}

func (e *StartifyError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &StartifyError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// IsLocalRejection reports whether err was produced by client-side
// validation, meaning no request reached the backend.
func IsLocalRejection(err error) bool {
	return errors.Is(err, ErrVolumeOutOfRange) ||
		errors.Is(err, ErrSeekOutOfRange) ||
		errors.Is(err, ErrNoActiveTrack) ||
		errors.Is(err, ErrModuleNotReady) ||
		errors.Is(err, ErrUnknownModule) ||
		errors.Is(err, ErrDeviceNotFound)
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var se *StartifyError
	if errors.As(err, &se) && se.Suggestion != "" {
		return se.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, ErrNotAuthenticated) || strings.Contains(errStr, "not authenticated") ||
		strings.Contains(errStr, "status 401"):
		return "Run 'startify auth set-token' to store a session credential"

	case errors.Is(err, ErrNoActiveDevice):
		return "Start playback on a device, or run 'startify devices transfer'"

	case errors.Is(err, ErrDeviceNotFound):
		return "Run 'startify devices' to see available devices"

	case errors.Is(err, ErrNoActiveTrack):
		return "Start playing something first"

	case errors.Is(err, ErrModuleNotReady):
		return "Wait for the engine to report the module ready; check 'startify modules'"

	case errors.Is(err, ErrUnknownModule):
		return "Valid modules are 'voice' and 'hand'"

	case errors.Is(err, ErrNetworkError) || errors.Is(err, ErrTimeout) ||
		strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection refused"):
		return "Check that the backend is running and backend.base_url is correct"

	case errors.Is(err, ErrConfigNotFound):
		return "Run 'startify config init' to create a configuration file"

	case errors.Is(err, ErrInvalidConfig):
		return "Run 'startify config show' to inspect the effective configuration"

	case strings.Contains(errStr, "status 5"):
		return "The backend is having issues. Try again in a moment"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult represents a result that may have partial failures.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors returns true if there were any errors.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError adds an error to the partial result.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// ErrorSummary returns a summary of all errors.
func (p *PartialResult[T]) ErrorSummary() string {
	if len(p.Errors) == 0 {
		return ""
	}
	if len(p.Errors) == 1 {
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d requests failed:\n", len(p.Errors))
	for i, err := range p.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}
