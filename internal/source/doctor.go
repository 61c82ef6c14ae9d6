package source

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultDoctorTTL = 5 * time.Minute

// DoctorRunner is the probe half of a pose source.
type DoctorRunner interface {
	RunDoctor(ctx context.Context) (*Capabilities, error)
}

// CachedDoctor caches doctor probe results with a TTL so the status
// endpoint and the tray do not spawn a subprocess on every poll.
type CachedDoctor struct {
	runner DoctorRunner
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

// NewCachedDoctor creates a caching wrapper around doctor probes.
func NewCachedDoctor(runner DoctorRunner, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		runner: runner,
		ttl:    defaultDoctorTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Peek returns whatever is cached without probing.
func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new doctor probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.runner.RunDoctor(ctx)
	if err != nil {
		d.logger.Warn("doctor probe failed", "error", err)
		if d.cached != nil {
			d.logger.Info("returning stale capabilities cache")
			return d.cached, nil
		}
		return nil, err
	}

	d.cached = caps
	return caps, nil
}
