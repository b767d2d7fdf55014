package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queuedFetch returns statuses from the queue in order, counting calls.
func queuedFetch(calls *int, statuses ...*pollStatus) pollFunc {
	return func(_ context.Context) (*pollStatus, error) {
		status := statuses[*calls]
		*calls++
		return status, nil
	}
}

func TestPollTask_SucceedsAfterRunning(t *testing.T) {
	calls := 0
	fetch := queuedFetch(&calls,
		&pollStatus{State: "pending"},
		&pollStatus{State: "processing"},
		&pollStatus{State: "completed", Output: map[string]any{"image_url": "https://cdn.example/img.png"}},
	)

	output, err := pollTask(context.Background(), NamePiAPI, "task-1", time.Millisecond, 10, fetch)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.png", output["image_url"])
	assert.Equal(t, 3, calls)
}

func TestPollTask_VendorFailure(t *testing.T) {
	calls := 0
	fetch := queuedFetch(&calls,
		&pollStatus{State: "processing"},
		&pollStatus{State: "failed", Message: "NSFW content detected"},
	)

	_, err := pollTask(context.Background(), NamePollo, "task-2", time.Millisecond, 10, fetch)
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, NamePollo, execErr.Provider)
	assert.Equal(t, "NSFW content detected", execErr.Message)
	assert.Equal(t, 2, calls)
}

func TestPollTask_FailureWithoutVendorMessage(t *testing.T) {
	calls := 0
	fetch := queuedFetch(&calls, &pollStatus{State: "error"})

	_, err := pollTask(context.Background(), NameA2E, "task-3", time.Millisecond, 10, fetch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task-3")
	assert.Contains(t, err.Error(), "error")
}

func TestPollTask_Timeout(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context) (*pollStatus, error) {
		calls++
		return &pollStatus{State: "processing"}, nil
	}

	_, err := pollTask(context.Background(), NamePiAPI, "task-4", time.Millisecond, 3, fetch)
	require.Error(t, err)

	var timeoutErr *PollTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, NamePiAPI, timeoutErr.Provider)
	assert.Equal(t, "task-4", timeoutErr.TaskID)
	assert.Equal(t, 3, timeoutErr.Attempts)
	assert.Equal(t, 3, calls)
}

func TestPollTask_FetchErrorPropagates(t *testing.T) {
	calls := 0
	fetchErr := errors.New("connection reset")
	fetch := func(_ context.Context) (*pollStatus, error) {
		calls++
		return nil, fetchErr
	}

	_, err := pollTask(context.Background(), NamePiAPI, "task-5", time.Millisecond, 10, fetch)
	require.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 1, calls)
}

func TestPollTask_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	fetch := func(_ context.Context) (*pollStatus, error) {
		calls++
		return &pollStatus{State: "processing"}, nil
	}

	_, err := pollTask(ctx, NamePollo, "task-6", 50*time.Millisecond, 10, fetch)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls, "cancelled context must short-circuit before fetching")
}

func TestTerminalStatuses(t *testing.T) {
	tests := []struct {
		state   string
		success bool
		failure bool
	}{
		{"completed", true, false},
		{"COMPLETED", true, false},
		{"success", true, false},
		{"Success", true, false},
		{"done", true, false},
		{"failed", false, true},
		{"FAILED", false, true},
		{"error", false, true},
		{"processing", false, false},
		{"pending", false, false},
		{"waiting", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			assert.Equal(t, tt.success, isTerminalSuccess(tt.state))
			assert.Equal(t, tt.failure, isTerminalFailure(tt.state))
		})
	}
}
