package provider

import "fmt"

// ExecutionError is any failure raised inside a provider client: transport
// errors, non-2xx API responses, vendor-reported task failures. The vendor
// error text is preserved in Message.
type ExecutionError struct {
	Provider Name
	Message  string
	Err      error
}

// NewExecutionError creates an ExecutionError for the given provider.
func NewExecutionError(provider Name, message string, err error) *ExecutionError {
	return &ExecutionError{Provider: provider, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap returns the wrapped error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// PollTimeoutError is raised when the poll loop exhausts its attempts
// without observing a terminal vendor status.
type PollTimeoutError struct {
	Provider Name
	TaskID   string
	Attempts int
}

// Error implements the error interface.
func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("%s: task %s did not reach a terminal status after %d attempts",
		e.Provider, e.TaskID, e.Attempts)
}

// GenderVoiceMismatchError is raised before any network call when an
// avatar request pairs an avatar gender with a voice of the other gender.
type GenderVoiceMismatchError struct {
	AvatarGender string
	VoiceID      string
	VoiceGender  string
}

// Error implements the error interface.
func (e *GenderVoiceMismatchError) Error() string {
	return fmt.Sprintf("voice %s is %s but avatar gender is %s",
		e.VoiceID, e.VoiceGender, e.AvatarGender)
}
