package routing

import (
	"fmt"

	"github.com/vidgo/server/internal/module/generation/provider"
)

// UnknownTaskTypeError is raised before any network I/O when a task type
// has no routing table entry.
type UnknownTaskTypeError struct {
	Value string
}

// Error implements the error interface.
func (e *UnknownTaskTypeError) Error() string {
	return fmt.Sprintf("unknown task type %q", e.Value)
}

// AllProvidersFailedError is raised when the primary and the configured
// backup both failed or were unhealthy. The final provider error is
// wrapped so callers can still reach the vendor text.
type AllProvidersFailedError struct {
	TaskType   provider.TaskType
	PrimaryErr error
	BackupErr  error
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	msg := fmt.Sprintf("all providers failed for task type %s", e.TaskType)
	if e.BackupErr != nil {
		return fmt.Sprintf("%s: primary: %v; backup: %v", msg, e.PrimaryErr, e.BackupErr)
	}
	if e.PrimaryErr != nil {
		return fmt.Sprintf("%s: %v", msg, e.PrimaryErr)
	}
	return msg
}

// Unwrap returns the error from the final attempted provider.
func (e *AllProvidersFailedError) Unwrap() error {
	if e.BackupErr != nil {
		return e.BackupErr
	}
	return e.PrimaryErr
}
