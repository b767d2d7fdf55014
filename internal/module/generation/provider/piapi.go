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

const piapiDefaultTimeout = 120 * time.Second

// PiAPI fronts the api.piapi.ai unified task API. One endpoint creates
// tasks across models (flux, kling, image toolkit); a second returns task
// status until the output is ready.
type PiAPI struct {
	cfg    Config
	client *http.Client
}

// NewPiAPI creates a PiAPI client.
func NewPiAPI(cfg Config) *PiAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.piapi.ai"
	}
	return &PiAPI{
		cfg:    cfg,
		client: cfg.httpClient(piapiDefaultTimeout),
	}
}

// Name returns the provider identity.
func (p *PiAPI) Name() Name {
	return NamePiAPI
}

// HealthCheck probes the vendor health endpoint. Any response below 500
// counts as reachable; auth errors still prove the endpoint is up.
func (p *PiAPI) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", nil)
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

// Execute submits a task and polls until the vendor reports a terminal
// status.
func (p *PiAPI) Execute(ctx context.Context, task *Task) (*Result, error) {
	input := make(map[string]any, len(task.Params))
	for k, v := range task.Params {
		input[k] = v
	}

	body := map[string]any{
		"model":     task.Model,
		"task_type": piapiTaskType(task.Type),
		"input":     input,
	}
	if task.UserTier != "" && task.UserTier != "starter" {
		body["config"] = map[string]any{"service_mode": "private"}
	}

	created, err := p.doRequest(ctx, http.MethodPost, "/api/v1/task", body)
	if err != nil {
		return nil, err
	}
	if created.TaskID == "" {
		return nil, NewExecutionError(NamePiAPI, "create response missing task_id", nil)
	}

	// Some pipelines return the finished output inline.
	if isTerminalSuccess(created.Status) && created.Output != nil {
		return &Result{TaskID: created.TaskID, Output: created.Output}, nil
	}

	output, err := pollTask(ctx, NamePiAPI, created.TaskID, p.cfg.PollInterval, p.cfg.PollMaxAttempts,
		func(ctx context.Context) (*pollStatus, error) {
			data, err := p.doRequest(ctx, http.MethodGet, "/api/v1/task/"+created.TaskID, nil)
			if err != nil {
				return nil, err
			}
			return &pollStatus{
				State:   data.Status,
				Output:  data.Output,
				Message: data.Error.Message,
			}, nil
		})
	if err != nil {
		return nil, err
	}

	return &Result{TaskID: created.TaskID, Output: output}, nil
}

// piapiTask is the task object inside the vendor response envelope.
type piapiTask struct {
	TaskID string         `json:"task_id"`
	Status string         `json:"status"`
	Output map[string]any `json:"output"`
	Error  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// piapiEnvelope is the common {code, data, message} response shape.
type piapiEnvelope struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    piapiTask `json:"data"`
}

// doRequest performs an HTTP request against the PiAPI task API and
// unwraps the response envelope.
func (p *PiAPI) doRequest(ctx context.Context, method, path string, body map[string]any) (*piapiTask, error) {
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
		return nil, NewExecutionError(NamePiAPI, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, NewExecutionError(NamePiAPI,
			fmt.Sprintf("api error (status %d): %s", resp.StatusCode, respBody), nil)
	}

	var env piapiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, NewExecutionError(NamePiAPI, "decode response", err)
	}
	if env.Code != 0 && env.Code != http.StatusOK {
		return nil, NewExecutionError(NamePiAPI,
			fmt.Sprintf("api error (code %d): %s", env.Code, env.Message), nil)
	}

	return &env.Data, nil
}

// piapiTaskType maps task types to the vendor's task_type values.
func piapiTaskType(t TaskType) string {
	switch t {
	case TaskTextToImage, TaskMultiModel:
		return "txt2img"
	case TaskInterior:
		return "img2img"
	case TaskImageToVideo:
		return "img2video"
	case TaskUpscale:
		return "upscale"
	case TaskBackgroundRemoval:
		return "background-remove"
	case TaskEffects:
		return "effect"
	case TaskTextToVideo:
		return "txt2video"
	case TaskKeyframes:
		return "keyframe"
	default:
		return string(t)
	}
}

var _ Client = (*PiAPI)(nil)
