package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPollo(t *testing.T, handler http.HandlerFunc) *Pollo {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewPollo(Config{
		BaseURL:         server.URL,
		APIKey:          "test-key",
		PollInterval:    time.Millisecond,
		PollMaxAttempts: 5,
	})
}

func TestPollo_Execute_SubmitAndPoll(t *testing.T) {
	var statusCalls atomic.Int32
	client := newTestPollo(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/platform/generation/kling-v1.6/text-to-video":
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			input, ok := body["input"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "waves at sunset", input["prompt"])

			writeJSON(t, w, map[string]any{"taskId": "pt-1", "status": "waiting"})

		case r.Method == http.MethodGet && r.URL.Path == "/api/platform/generation/pt-1/status":
			if statusCalls.Add(1) == 1 {
				writeJSON(t, w, map[string]any{
					"taskId":      "pt-1",
					"generations": []map[string]any{{"id": "g-1", "status": "processing"}},
				})
				return
			}
			writeJSON(t, w, map[string]any{
				"taskId": "pt-1",
				"generations": []map[string]any{{
					"id":       "g-1",
					"status":   "succeed",
					"url":      "https://cdn.pollo.ai/video.mp4",
					"coverUrl": "https://cdn.pollo.ai/cover.jpg",
				}},
			})

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	result, err := client.Execute(context.Background(), &Task{
		Type:   TaskTextToVideo,
		Model:  "kling-v1.6",
		Params: map[string]any{"prompt": "waves at sunset"},
	})

	require.NoError(t, err)
	assert.Equal(t, "pt-1", result.TaskID)
	assert.Equal(t, "https://cdn.pollo.ai/video.mp4", result.Output["video_url"])
	assert.Equal(t, "https://cdn.pollo.ai/cover.jpg", result.Output["cover_url"])
	assert.Equal(t, "g-1", result.Output["generation_id"])
	assert.Equal(t, int32(2), statusCalls.Load())
}

func TestPollo_Execute_FailedGeneration(t *testing.T) {
	client := newTestPollo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(t, w, map[string]any{"taskId": "pt-2", "status": "waiting"})
			return
		}
		writeJSON(t, w, map[string]any{
			"taskId": "pt-2",
			"generations": []map[string]any{{
				"id":            "g-2",
				"status":        "failed",
				"failedMessage": "upstream model quota exhausted",
			}},
		})
	})

	_, err := client.Execute(context.Background(), &Task{
		Type:   TaskImageToVideo,
		Model:  "kling",
		Params: map[string]any{"image_url": "https://example.com/in.png"},
	})

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, NamePollo, execErr.Provider)
	assert.Contains(t, execErr.Message, "upstream model quota exhausted")
}

func TestPollo_Execute_MultipleGenerations(t *testing.T) {
	client := newTestPollo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(t, w, map[string]any{"taskId": "pt-3", "status": "waiting"})
			return
		}
		writeJSON(t, w, map[string]any{
			"taskId": "pt-3",
			"generations": []map[string]any{
				{"id": "g-3a", "status": "succeed", "url": "https://cdn.pollo.ai/a.mp4"},
				{"id": "g-3b", "status": "succeed", "url": "https://cdn.pollo.ai/b.mp4"},
			},
		})
	})

	result, err := client.Execute(context.Background(), &Task{
		Type:   TaskEffects,
		Model:  "vidu-effects",
		Params: map[string]any{"effect": "hug"},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.pollo.ai/a.mp4", result.Output["video_url"])
	urls, ok := result.Output["video_urls"].([]any)
	require.True(t, ok)
	assert.Len(t, urls, 2)
}

func TestPollo_Execute_CompletedOnSubmit(t *testing.T) {
	var statusCalls atomic.Int32
	client := newTestPollo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(t, w, map[string]any{
				"taskId": "pt-4",
				"generations": []map[string]any{{
					"id":     "g-4",
					"status": "succeed",
					"url":    "https://cdn.pollo.ai/cached.mp4",
				}},
			})
			return
		}
		statusCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	result, err := client.Execute(context.Background(), &Task{
		Type:   TaskTextToVideo,
		Model:  "kling-v1.6",
		Params: map[string]any{"prompt": "anything"},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.pollo.ai/cached.mp4", result.Output["video_url"])
	assert.Zero(t, statusCalls.Load())
}

func TestPollo_Execute_MissingTaskID(t *testing.T) {
	client := newTestPollo(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"status": "waiting"})
	})

	_, err := client.Execute(context.Background(), &Task{
		Type:  TaskTextToVideo,
		Model: "kling-v1.6",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing taskId")
}

func TestPollo_Execute_HTTPError(t *testing.T) {
	client := newTestPollo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	})

	_, err := client.Execute(context.Background(), &Task{
		Type:  TaskTextToVideo,
		Model: "kling-v1.6",
	})

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Message, "status 429")
	assert.Contains(t, execErr.Message, "rate limited")
}

func TestPolloOperation(t *testing.T) {
	tests := []struct {
		taskType TaskType
		want     string
	}{
		{TaskTextToVideo, "text-to-video"},
		{TaskImageToVideo, "image-to-video"},
		{TaskVideoToVideo, "video-to-video"},
		{TaskKeyframes, "keyframe"},
		{TaskEffects, "effect"},
		{TaskTextToImage, "text-to-image"},
		{TaskMultiModel, "text-to-image"},
		{TaskInterior, "text-to-image"},
	}

	for _, tt := range tests {
		t.Run(string(tt.taskType), func(t *testing.T) {
			assert.Equal(t, tt.want, polloOperation(tt.taskType))
		})
	}
}

func TestNormalizePolloStatus(t *testing.T) {
	assert.Equal(t, "success", normalizePolloStatus("succeed"))
	assert.Equal(t, "success", normalizePolloStatus("succeeded"))
	assert.Equal(t, "failed", normalizePolloStatus("fail"))
	assert.Equal(t, "failed", normalizePolloStatus("failed"))
	assert.Equal(t, "processing", normalizePolloStatus("processing"))
	assert.Equal(t, "waiting", normalizePolloStatus("waiting"))
}
