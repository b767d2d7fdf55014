package routing

import (
	"context"
	"sync"
	"time"

	"github.com/vidgo/server/internal/module/generation/provider"
)

// State is a provider's cached health state.
type State string

const (
	StateHealthy State = "healthy"
	// StateDegraded exists in the vocabulary but no current transition
	// assigns it; only probes and the failure threshold move state.
	StateDegraded State = "degraded"
	StateDown     State = "down"
)

// ProviderStatus is the externally visible health snapshot of one
// provider.
type ProviderStatus struct {
	State        State     `json:"state"`
	LastCheck    time.Time `json:"last_check"`
	FailureCount int       `json:"failure_count"`
}

type healthEntry struct {
	state        State
	lastCheck    time.Time
	failureCount int
}

// healthTracker is the process-wide health cache. Entries are created
// lazily on first probe and live for the process lifetime. The mutex
// covers map and entry access only; it is never held across a network
// probe, so concurrent callers hitting a stale entry may probe the same
// provider redundantly. Last write wins, which is acceptable for an
// advisory cache.
type healthTracker struct {
	mu        sync.Mutex
	ttl       time.Duration
	threshold int
	entries   map[provider.Name]*healthEntry
}

func newHealthTracker(ttl time.Duration, threshold int) *healthTracker {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if threshold <= 0 {
		threshold = 3
	}
	return &healthTracker{
		ttl:       ttl,
		threshold: threshold,
		entries:   make(map[provider.Name]*healthEntry),
	}
}

// healthy answers cache-first: a fresh entry decides without any network
// call, a stale or missing one triggers the provider's own probe.
func (h *healthTracker) healthy(ctx context.Context, client provider.Client) bool {
	name := client.Name()

	h.mu.Lock()
	if entry, ok := h.entries[name]; ok && time.Since(entry.lastCheck) < h.ttl {
		state := entry.state
		h.mu.Unlock()
		return state == StateHealthy
	}
	h.mu.Unlock()

	return h.refresh(ctx, client)
}

// refresh always probes, bypassing the TTL, and stores the outcome. A
// probe failure marks the provider down; it is never an error to the
// caller.
func (h *healthTracker) refresh(ctx context.Context, client provider.Client) bool {
	err := client.HealthCheck(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	entry := h.getOrCreate(client.Name())
	entry.lastCheck = time.Now()
	if err != nil {
		entry.state = StateDown
		return false
	}
	entry.state = StateHealthy
	return true
}

// recordFailure bumps the failure counter after a failed execution. At
// the threshold the state is forced to Down without refreshing the
// timestamp, so the next check after TTL expiry still performs a real
// probe.
func (h *healthTracker) recordFailure(name provider.Name) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := h.getOrCreate(name)
	entry.failureCount++
	if entry.failureCount >= h.threshold {
		entry.state = StateDown
	}
}

// recordSuccess resets the failure counter after a successful execution.
// State transitions stay with the probes.
func (h *healthTracker) recordSuccess(name provider.Name) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.getOrCreate(name).failureCount = 0
}

// snapshot copies the current status of every tracked provider.
func (h *healthTracker) snapshot() map[provider.Name]ProviderStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[provider.Name]ProviderStatus, len(h.entries))
	for name, entry := range h.entries {
		out[name] = ProviderStatus{
			State:        entry.state,
			LastCheck:    entry.lastCheck,
			FailureCount: entry.failureCount,
		}
	}
	return out
}

// getOrCreate must be called with the mutex held.
func (h *healthTracker) getOrCreate(name provider.Name) *healthEntry {
	entry, ok := h.entries[name]
	if !ok {
		entry = &healthEntry{state: StateHealthy}
		h.entries[name] = entry
	}
	return entry
}
