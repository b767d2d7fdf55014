package provider

import (
	"context"
	"net/http"
	"time"
)

// Name identifies a generation vendor. The set is closed; the routing
// table dispatches through a Name-keyed client map instead of free-form
// strings.
type Name string

const (
	NamePiAPI  Name = "piapi"
	NamePollo  Name = "pollo"
	NameA2E    Name = "a2e"
	NameGemini Name = "gemini"
)

// AllNames returns every known provider name.
func AllNames() []Name {
	return []Name{NamePiAPI, NamePollo, NameA2E, NameGemini}
}

// String returns the wire value of the provider name.
func (n Name) String() string {
	return string(n)
}

// Task is a router-dispatched unit of work for a provider client.
type Task struct {
	// Type selects the vendor pipeline.
	Type TaskType

	// Model is the vendor model identifier from the routing table.
	Model string

	// Params carries the task-specific request mapping. Clients, not the
	// router, decide which keys they need and fail on what is missing.
	Params map[string]any

	// UserTier is the caller's subscription tier ("starter" by default).
	UserTier string
}

// Result is the normalized outcome of a provider execution.
type Result struct {
	// TaskID is the vendor-side task identifier, empty for synchronous
	// vendors.
	TaskID string

	// Output carries task-specific result fields (URLs, descriptions,
	// category scores).
	Output map[string]any
}

// Client is the interface every generation vendor implements.
type Client interface {
	// Name returns the provider identity used by the routing table.
	Name() Name

	// HealthCheck is a lightweight reachability probe, distinct from a
	// generation call. An error return means unhealthy.
	HealthCheck(ctx context.Context) error

	// Execute runs one generation task to completion, polling the vendor
	// when it is asynchronous.
	Execute(ctx context.Context, task *Task) (*Result, error)
}

// Config holds the settings shared by the HTTP-backed vendor clients.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// httpClient returns the configured HTTP client or builds one with the
// vendor timeout.
func (c Config) httpClient(defaultTimeout time.Duration) *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// stringParam returns the string value for key, or "" when absent.
func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
