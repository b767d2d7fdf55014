package routing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vidgo/server/internal/module/generation/provider"
	"github.com/vidgo/server/internal/utils/metrics"
)

// DefaultUserTier is assumed when a caller does not supply a tier.
const DefaultUserTier = "starter"

// Config tunes the router's health cache.
type Config struct {
	// HealthTTL is the freshness window of a cached health verdict.
	HealthTTL time.Duration

	// FailureThreshold is the consecutive execution failure count that
	// forces a provider's cached state to Down.
	FailureThreshold int
}

// Result is the normalized outcome handed back to callers. Failures are
// returned as errors, so Success is true on every returned Result; the
// field exists for serialization.
type Result struct {
	Success        bool           `json:"success"`
	TaskID         string         `json:"task_id,omitempty"`
	Output         map[string]any `json:"output,omitempty"`
	UsedBackup     bool           `json:"used_backup,omitempty"`
	BackupProvider string         `json:"backup_provider,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Router selects a provider per task type, gates dispatch on cached
// health, and applies one level of failover. One instance is constructed
// at process start and shared by every caller; the health cache is its
// only mutable state.
type Router struct {
	table   Table
	clients map[provider.Name]provider.Client
	health  *healthTracker
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New validates the routing table against the registered clients and
// builds a router.
func New(cfg Config, table Table, clients map[provider.Name]provider.Client, logger *zap.Logger, m *metrics.Metrics) (*Router, error) {
	if len(table) == 0 {
		table = DefaultTable()
	}
	if err := table.Validate(clients); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Router{
		table:   table,
		clients: clients,
		health:  newHealthTracker(cfg.HealthTTL, cfg.FailureThreshold),
		logger:  logger.Named("router"),
		metrics: m,
	}, nil
}

// Route dispatches one generation call: primary first, backup on primary
// failure, exactly one attempt per provider. The router imposes no
// timeout of its own; client timeouts bound each attempt.
func (r *Router) Route(ctx context.Context, taskType provider.TaskType, params map[string]any, userTier string) (*Result, error) {
	route, ok := r.table[taskType]
	if !ok {
		return nil, &UnknownTaskTypeError{Value: string(taskType)}
	}
	if userTier == "" {
		userTier = DefaultUserTier
	}

	primary := r.clients[route.Primary]

	var primaryErr error
	if r.checkHealth(ctx, primary) {
		result, err := r.execute(ctx, primary, taskType, route.Model, params, userTier)
		if err == nil {
			return &Result{Success: true, TaskID: result.TaskID, Output: result.Output}, nil
		}
		primaryErr = err
	} else {
		primaryErr = fmt.Errorf("provider %s is unhealthy", route.Primary)
	}

	if route.Backup == "" {
		r.logger.Error("no backup configured, call failed",
			zap.String("task_type", string(taskType)),
			zap.String("primary", string(route.Primary)),
			zap.Error(primaryErr))
		return nil, &AllProvidersFailedError{TaskType: taskType, PrimaryErr: primaryErr}
	}

	r.logger.Warn("primary provider failed, trying backup",
		zap.String("task_type", string(taskType)),
		zap.String("primary", string(route.Primary)),
		zap.String("backup", string(route.Backup)),
		zap.Error(primaryErr))

	backup := r.clients[route.Backup]
	if !r.checkHealth(ctx, backup) {
		return nil, &AllProvidersFailedError{
			TaskType:   taskType,
			PrimaryErr: primaryErr,
			BackupErr:  fmt.Errorf("provider %s is unhealthy", route.Backup),
		}
	}

	result, err := r.execute(ctx, backup, taskType, route.Model, params, userTier)
	if err != nil {
		return nil, &AllProvidersFailedError{TaskType: taskType, PrimaryErr: primaryErr, BackupErr: err}
	}

	r.metrics.RecordFailover(string(taskType))
	return &Result{
		Success:        true,
		TaskID:         result.TaskID,
		Output:         result.Output,
		UsedBackup:     true,
		BackupProvider: string(route.Backup),
	}, nil
}

// Lookup exposes the routing table entry for a task type.
func (r *Router) Lookup(taskType provider.TaskType) (Route, bool) {
	route, ok := r.table[taskType]
	return route, ok
}

// Snapshot returns the current health cache contents, for the admin
// surface.
func (r *Router) Snapshot() map[provider.Name]ProviderStatus {
	return r.health.snapshot()
}

// RefreshProvider probes one provider immediately, bypassing the TTL.
// Used by the background monitor.
func (r *Router) RefreshProvider(ctx context.Context, name provider.Name) (bool, error) {
	client, ok := r.clients[name]
	if !ok {
		return false, fmt.Errorf("unknown provider %s", name)
	}
	healthy := r.health.refresh(ctx, client)
	r.metrics.SetProviderHealth(string(name), healthy)
	return healthy, nil
}

// Providers lists the registered provider names.
func (r *Router) Providers() []provider.Name {
	names := make([]provider.Name, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// checkHealth wraps the cache-first health verdict and mirrors it to the
// health gauge.
func (r *Router) checkHealth(ctx context.Context, client provider.Client) bool {
	healthy := r.health.healthy(ctx, client)
	r.metrics.SetProviderHealth(string(client.Name()), healthy)
	return healthy
}

// execute runs exactly one attempt against one provider and does the
// failure bookkeeping.
func (r *Router) execute(ctx context.Context, client provider.Client, taskType provider.TaskType, model string, params map[string]any, userTier string) (*provider.Result, error) {
	start := time.Now()
	result, err := client.Execute(ctx, &provider.Task{
		Type:     taskType,
		Model:    model,
		Params:   params,
		UserTier: userTier,
	})
	duration := time.Since(start)

	if err != nil {
		r.health.recordFailure(client.Name())
		r.metrics.RecordGeneration(string(taskType), string(client.Name()), "failure", duration)
		return nil, err
	}

	r.health.recordSuccess(client.Name())
	r.metrics.RecordGeneration(string(taskType), string(client.Name()), "success", duration)
	return result, nil
}
