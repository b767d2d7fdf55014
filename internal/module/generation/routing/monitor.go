package routing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/vidgo/server/internal/module/generation/provider"
)

// errProbeUnhealthy marks a completed probe with a negative verdict so
// the breaker counts it as a failure.
var errProbeUnhealthy = errors.New("provider reported unhealthy")

// MonitorConfig tunes the background health sweeper.
type MonitorConfig struct {
	// SweepInterval is the pause between full sweeps.
	SweepInterval time.Duration

	// ProbeTimeout bounds one provider probe.
	ProbeTimeout time.Duration
}

// DefaultMonitorConfig returns the default sweeper configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SweepInterval: 2 * time.Minute,
		ProbeTimeout:  10 * time.Second,
	}
}

// Monitor keeps the router's health cache warm from the background, so a
// provider outage is usually known before the first user request pays for
// the probe. Probes run through per-provider circuit breakers: once a
// provider keeps failing, the breaker opens and sweeps skip it until the
// breaker's own cool-down lets a trial probe through.
type Monitor struct {
	mu       sync.Mutex
	router   *Router
	breakers map[provider.Name]*gobreaker.CircuitBreaker[bool]
	logger   *zap.Logger

	interval     time.Duration
	probeTimeout time.Duration
	stop         chan struct{}
	done         chan struct{}
}

// NewMonitor creates a sweeper for the router's providers.
func NewMonitor(router *Router, cfg MonitorConfig, logger *zap.Logger) *Monitor {
	def := DefaultMonitorConfig()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		router:       router,
		breakers:     make(map[provider.Name]*gobreaker.CircuitBreaker[bool]),
		logger:       logger.Named("health-monitor"),
		interval:     cfg.SweepInterval,
		probeTimeout: cfg.ProbeTimeout,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the sweep loop. An initial sweep runs immediately so the
// cache is warm before traffic arrives.
func (m *Monitor) Start() {
	go m.loop()
}

// Stop halts the sweep loop and waits for the in-flight sweep to finish.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) loop() {
	defer close(m.done)

	m.sweep()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep probes every registered provider once.
func (m *Monitor) sweep() {
	for _, name := range m.router.Providers() {
		m.probe(name)
	}
}

func (m *Monitor) probe(name provider.Name) {
	breaker := m.getOrCreateBreaker(name)

	healthy, err := breaker.Execute(func() (bool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), m.probeTimeout)
		defer cancel()

		ok, refreshErr := m.router.RefreshProvider(ctx, name)
		if refreshErr != nil {
			return false, refreshErr
		}
		if !ok {
			return false, errProbeUnhealthy
		}
		return true, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		m.logger.Debug("probe skipped, breaker open", zap.String("provider", string(name)))
	case err != nil:
		m.logger.Warn("provider probe failed",
			zap.String("provider", string(name)),
			zap.Error(err))
	default:
		m.logger.Debug("provider probe ok",
			zap.String("provider", string(name)),
			zap.Bool("healthy", healthy))
	}
}

func (m *Monitor) getOrCreateBreaker(name provider.Name) *gobreaker.CircuitBreaker[bool] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if breaker, ok := m.breakers[name]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        string(name),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	breaker := gobreaker.NewCircuitBreaker[bool](settings)
	m.breakers[name] = breaker
	return breaker
}

// BreakerState exposes a provider's breaker state for the admin surface.
func (m *Monitor) BreakerState(name provider.Name) gobreaker.State {
	return m.getOrCreateBreaker(name).State()
}
