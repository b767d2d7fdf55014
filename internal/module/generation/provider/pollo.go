package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const polloDefaultTimeout = 180 * time.Second

// Pollo fronts the pollo.ai platform API. Submission is per model and
// operation; status responses nest per-task results in a generations
// array whose first element is authoritative.
type Pollo struct {
	cfg    Config
	client *http.Client
}

// NewPollo creates a Pollo client.
func NewPollo(cfg Config) *Pollo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://pollo.ai"
	}
	return &Pollo{
		cfg:    cfg,
		client: cfg.httpClient(polloDefaultTimeout),
	}
}

// Name returns the provider identity.
func (p *Pollo) Name() Name {
	return NamePollo
}

// HealthCheck probes the platform root. Any response below 500 counts as
// reachable.
func (p *Pollo) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Execute submits a generation and polls the status endpoint until the
// first generation in the response reaches a terminal state.
func (p *Pollo) Execute(ctx context.Context, task *Task) (*Result, error) {
	path := fmt.Sprintf("/api/platform/generation/%s/%s", task.Model, polloOperation(task.Type))

	submitted, err := p.doRequest(ctx, http.MethodPost, path, map[string]any{
		"input": task.Params,
	})
	if err != nil {
		return nil, err
	}
	if submitted.TaskID == "" {
		return nil, NewExecutionError(NamePollo, "submit response missing taskId", nil)
	}

	// A cached generation can come back finished on submit.
	if status := submitted.toPollStatus(); isTerminalSuccess(status.State) {
		return &Result{TaskID: submitted.TaskID, Output: status.Output}, nil
	}

	statusPath := fmt.Sprintf("/api/platform/generation/%s/status", submitted.TaskID)
	output, err := pollTask(ctx, NamePollo, submitted.TaskID, p.cfg.PollInterval, p.cfg.PollMaxAttempts,
		func(ctx context.Context) (*pollStatus, error) {
			data, err := p.doRequest(ctx, http.MethodGet, statusPath, nil)
			if err != nil {
				return nil, err
			}
			return data.toPollStatus(), nil
		})
	if err != nil {
		return nil, err
	}

	return &Result{TaskID: submitted.TaskID, Output: output}, nil
}

// polloGeneration is one entry of the vendor's generations array.
type polloGeneration struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	URL           string `json:"url"`
	CoverURL      string `json:"coverUrl"`
	FailedMessage string `json:"failedMessage"`
}

// polloResponse is the vendor task shape shared by submit and status.
type polloResponse struct {
	TaskID      string            `json:"taskId"`
	Status      string            `json:"status"`
	Generations []polloGeneration `json:"generations"`
}

// toPollStatus flattens the nested generations array into the common poll
// vocabulary. The first generation decides the task outcome.
func (r *polloResponse) toPollStatus() *pollStatus {
	if len(r.Generations) == 0 {
		return &pollStatus{State: normalizePolloStatus(r.Status)}
	}

	gen := r.Generations[0]
	status := &pollStatus{
		State:   normalizePolloStatus(gen.Status),
		Message: gen.FailedMessage,
	}
	if isTerminalSuccess(status.State) {
		output := map[string]any{
			"video_url":     gen.URL,
			"generation_id": gen.ID,
		}
		if gen.CoverURL != "" {
			output["cover_url"] = gen.CoverURL
		}
		if len(r.Generations) > 1 {
			urls := make([]any, 0, len(r.Generations))
			for _, g := range r.Generations {
				urls = append(urls, g.URL)
			}
			output["video_urls"] = urls
		}
		status.Output = output
	}
	return status
}

// normalizePolloStatus maps vendor statuses onto the shared poll
// vocabulary; unknown values pass through as still-running.
func normalizePolloStatus(status string) string {
	switch status {
	case "succeed", "succeeded":
		return "success"
	case "fail", "failed":
		return "failed"
	default:
		return status
	}
}

// doRequest performs an HTTP request against the Pollo platform API.
func (p *Pollo) doRequest(ctx context.Context, method, path string, body map[string]any) (*polloResponse, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewExecutionError(NamePollo, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, NewExecutionError(NamePollo,
			fmt.Sprintf("api error (status %d): %s", resp.StatusCode, respBody), nil)
	}

	var data polloResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, NewExecutionError(NamePollo, "decode response", err)
	}

	return &data, nil
}

// polloOperation maps task types to the vendor's operation path segment.
func polloOperation(t TaskType) string {
	switch t {
	case TaskTextToVideo:
		return "text-to-video"
	case TaskImageToVideo:
		return "image-to-video"
	case TaskVideoToVideo:
		return "video-to-video"
	case TaskKeyframes:
		return "keyframe"
	case TaskEffects:
		return "effect"
	case TaskTextToImage, TaskMultiModel, TaskInterior:
		return "text-to-image"
	default:
		return string(t)
	}
}

var _ Client = (*Pollo)(nil)
