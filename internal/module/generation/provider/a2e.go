package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const a2eDefaultTimeout = 300 * time.Second

// a2eVoiceGenders is the static voice table. Voice IDs not listed here
// cannot be gender-checked and pass validation unverified.
var a2eVoiceGenders = map[string]string{
	"voice_en_f01": "female",
	"voice_en_f02": "female",
	"voice_en_m01": "male",
	"voice_en_m02": "male",
	"voice_zh_f01": "female",
	"voice_zh_f02": "female",
	"voice_zh_m01": "male",
	"voice_ja_f01": "female",
	"voice_ja_m01": "male",
	"voice_ko_f01": "female",
	"voice_ko_m01": "male",
}

// a2eAsianKeywords drive the Asian-only character filter, matched
// case-insensitively against character names and tags.
var a2eAsianKeywords = []string{
	"asian", "china", "chinese", "japan", "japanese", "korea", "korean",
}

// A2E fronts the a2e.ai avatar video API. Two business rules run before
// any network call: the avatar list can be narrowed to an Asian-only
// subset, and an explicit avatar gender must match the requested voice's
// gender from the static voice table.
type A2E struct {
	cfg    Config
	client *http.Client
}

// NewA2E creates an A2E client.
func NewA2E(cfg Config) *A2E {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://video.a2e.ai"
	}
	return &A2E{
		cfg:    cfg,
		client: cfg.httpClient(a2eDefaultTimeout),
	}
}

// Name returns the provider identity.
func (a *A2E) Name() Name {
	return NameA2E
}

// HealthCheck probes the API root. Any response below 500 counts as
// reachable.
func (a *A2E) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Execute validates the avatar request, submits it, and polls until the
// rendered video is ready.
func (a *A2E) Execute(ctx context.Context, task *Task) (*Result, error) {
	if err := validateVoiceGender(task.Params); err != nil {
		return nil, err
	}

	body := map[string]any{
		"anchor_id": stringParam(task.Params, "avatar_id"),
		"text":      stringParam(task.Params, "text"),
	}
	if voiceID := stringParam(task.Params, "voice_id"); voiceID != "" {
		body["voice_id"] = voiceID
	}
	if title := stringParam(task.Params, "title"); title != "" {
		body["title"] = title
	}
	if lang := stringParam(task.Params, "language"); lang != "" {
		body["language"] = lang
	}
	if task.Model != "" {
		body["resolution"] = task.Model
	}

	created, err := a.doRequest(ctx, http.MethodPost, "/api/v1/video/generate", body)
	if err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, NewExecutionError(NameA2E, "generate response missing task id", nil)
	}

	if status := created.toPollStatus(); isTerminalSuccess(status.State) {
		return &Result{TaskID: created.ID, Output: status.Output}, nil
	}

	output, err := pollTask(ctx, NameA2E, created.ID, a.cfg.PollInterval, a.cfg.PollMaxAttempts,
		func(ctx context.Context) (*pollStatus, error) {
			data, err := a.doRequest(ctx, http.MethodGet, "/api/v1/video/task/"+created.ID, nil)
			if err != nil {
				return nil, err
			}
			return data.toPollStatus(), nil
		})
	if err != nil {
		return nil, err
	}

	return &Result{TaskID: created.ID, Output: output}, nil
}

// validateVoiceGender enforces the gender/voice precondition: when the
// caller specifies both an avatar gender and a non-default voice, the
// voice's gender from the static table must match.
func validateVoiceGender(params map[string]any) error {
	avatarGender := strings.ToLower(stringParam(params, "avatar_gender"))
	voiceID := stringParam(params, "voice_id")

	if avatarGender == "" || voiceID == "" || voiceID == "default" {
		return nil
	}

	voiceGender, known := a2eVoiceGenders[voiceID]
	if !known {
		return nil
	}
	if voiceGender != avatarGender {
		return &GenderVoiceMismatchError{
			AvatarGender: avatarGender,
			VoiceID:      voiceID,
			VoiceGender:  voiceGender,
		}
	}
	return nil
}

// Avatar is one entry of the vendor character list.
type Avatar struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Gender   string   `json:"gender"`
	Tags     []string `json:"tags"`
	Preview  string   `json:"preview_url"`
	Language string   `json:"language"`
}

// ListAvatars fetches the vendor character list. With asianOnly set, the
// list is narrowed by a keyword match over character names and tags.
func (a *A2E) ListAvatars(ctx context.Context, asianOnly bool) ([]Avatar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/api/v1/anchor/character_list", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, NewExecutionError(NameA2E, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, NewExecutionError(NameA2E,
			fmt.Sprintf("api error (status %d): %s", resp.StatusCode, respBody), nil)
	}

	var env struct {
		Code int      `json:"code"`
		Data []Avatar `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, NewExecutionError(NameA2E, "decode response", err)
	}

	if !asianOnly {
		return env.Data, nil
	}

	filtered := make([]Avatar, 0, len(env.Data))
	for _, avatar := range env.Data {
		if isAsianAvatar(avatar) {
			filtered = append(filtered, avatar)
		}
	}
	return filtered, nil
}

// isAsianAvatar applies the keyword filter over character metadata.
func isAsianAvatar(avatar Avatar) bool {
	haystack := strings.ToLower(avatar.Name + " " + strings.Join(avatar.Tags, " "))
	for _, keyword := range a2eAsianKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

// a2eTask is the vendor task shape shared by generate and status.
type a2eTask struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
	Result string `json:"result"`
	Cover  string `json:"cover"`
	Msg    string `json:"msg"`
}

// toPollStatus maps the vendor task onto the common poll vocabulary.
func (t *a2eTask) toPollStatus() *pollStatus {
	status := &pollStatus{State: t.Status, Message: t.Msg}
	if isTerminalSuccess(t.Status) {
		output := map[string]any{"video_url": t.Result}
		if t.Cover != "" {
			output["cover_url"] = t.Cover
		}
		status.Output = output
	}
	return status
}

// doRequest performs an HTTP request against the A2E video API and
// unwraps the response envelope.
func (a *A2E) doRequest(ctx context.Context, method, path string, body map[string]any) (*a2eTask, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, NewExecutionError(NameA2E, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, NewExecutionError(NameA2E,
			fmt.Sprintf("api error (status %d): %s", resp.StatusCode, respBody), nil)
	}

	var env struct {
		Code int     `json:"code"`
		Data a2eTask `json:"data"`
		Msg  string  `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, NewExecutionError(NameA2E, "decode response", err)
	}
	if env.Code != 0 && env.Code != http.StatusOK {
		return nil, NewExecutionError(NameA2E,
			fmt.Sprintf("api error (code %d): %s", env.Code, env.Msg), nil)
	}

	return &env.Data, nil
}

var _ Client = (*A2E)(nil)
