package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Default polling envelope: 5-second interval, 120 attempts (~10 minutes).
const (
	defaultPollInterval    = 5 * time.Second
	defaultPollMaxAttempts = 120
)

// pollStatus is one observation of an asynchronous vendor task.
type pollStatus struct {
	// State is the vendor status string, matched case-insensitively.
	State string

	// Output carries the result fields once the task completes.
	Output map[string]any

	// Message is the vendor error text when the task failed.
	Message string
}

// pollFunc fetches the current status of a vendor task.
type pollFunc func(ctx context.Context) (*pollStatus, error)

// pollTask drives the shared poll loop for the asynchronous vendors. It
// sleeps for interval, fetches the status, and repeats until the task
// completes, fails, or maxAttempts is exhausted. There is no backoff; the
// fixed cadence matches the vendors' own guidance.
func pollTask(ctx context.Context, name Name, taskID string, interval time.Duration, maxAttempts int, fetch pollFunc) (map[string]any, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultPollMaxAttempts
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		status, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		switch {
		case isTerminalSuccess(status.State):
			return status.Output, nil
		case isTerminalFailure(status.State):
			message := status.Message
			if message == "" {
				message = fmt.Sprintf("task %s ended with status %q", taskID, status.State)
			}
			return nil, NewExecutionError(name, message, nil)
		}

		// Any other status means still running.
		timer.Reset(interval)
	}

	return nil, &PollTimeoutError{Provider: name, TaskID: taskID, Attempts: maxAttempts}
}

// isTerminalSuccess reports whether a vendor status string means done.
func isTerminalSuccess(state string) bool {
	switch strings.ToLower(state) {
	case "completed", "success", "done":
		return true
	}
	return false
}

// isTerminalFailure reports whether a vendor status string means failed.
func isTerminalFailure(state string) bool {
	switch strings.ToLower(state) {
	case "failed", "error":
		return true
	}
	return false
}
