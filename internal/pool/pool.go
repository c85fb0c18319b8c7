package pool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/luismedel/protohackers-challenge/internal/metrics"
)

// Defaults for Config.
const (
	DefaultMaxTasks      = 1024
	DefaultAllocRetries  = 5
	DefaultRetryInterval = 10 * time.Millisecond
)

// Config holds pool configuration.
type Config struct {
	MaxTasks      int           // Max concurrently running tasks
	AllocRetries  int           // Admission retries when full
	RetryInterval time.Duration // Max wait per retry for a slot to free up
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTasks:      DefaultMaxTasks,
		AllocRetries:  DefaultAllocRetries,
		RetryInterval: DefaultRetryInterval,
	}
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Active    int
	Submitted uint64
	Completed uint64
	Rejected  uint64
	Retries   uint64
	Panics    uint64
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Service) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// handle tracks one outstanding task.
type handle struct {
	id      uint64
	started time.Time
	done    chan struct{}
}

// Pool is a bounded admission controller for goroutines.
type Pool struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Service

	sem *semaphore.Weighted

	mu     sync.Mutex
	tasks  map[uint64]*handle
	nextID uint64

	// freed is signalled whenever a task finishes.
	freed chan struct{}

	submitted atomic.Uint64
	completed atomic.Uint64
	rejected  atomic.Uint64
	retries   atomic.Uint64
	panics    atomic.Uint64
}

// New creates a Pool. Zero or negative config values fall back to defaults.
func New(cfg Config, opts ...Option) *Pool {
	if cfg.MaxTasks < 1 {
		cfg.MaxTasks = DefaultMaxTasks
	}
	if cfg.AllocRetries < 0 {
		cfg.AllocRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	p := &Pool{
		cfg:    cfg,
		logger: slog.Default(),
		sem:    semaphore.NewWeighted(int64(cfg.MaxTasks)),
		tasks:  make(map[uint64]*handle, cfg.MaxTasks),
		freed:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit starts task if the pool has capacity and reports whether it was
// admitted. When the pool is full it waits up to RetryInterval for a slot,
// at most AllocRetries times, before giving up.
func (p *Pool) Submit(task func()) bool {
	for attempt := 0; ; attempt++ {
		if p.sem.TryAcquire(1) {
			p.start(task)
			return true
		}

		// A signal left by a task that finished before the pool filled up
		// does not mean a slot is free now.
		if attempt == 0 {
			select {
			case <-p.freed:
				if p.sem.TryAcquire(1) {
					p.start(task)
					return true
				}
			default:
			}
		}

		if attempt >= p.cfg.AllocRetries {
			p.rejected.Add(1)
			return false
		}

		p.logger.Warn("max tasks reached",
			"max_tasks", p.cfg.MaxTasks,
			"retry", attempt+1,
		)
		p.retries.Add(1)
		p.metrics.PoolRetry()

		timer := time.NewTimer(p.cfg.RetryInterval)
		select {
		case <-p.freed:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Drain waits until every task outstanding at the time of the call has
// finished. It returns ctx.Err() if ctx is done first.
func (p *Pool) Drain(ctx context.Context) error {
	p.mu.Lock()
	pending := make([]*handle, 0, len(p.tasks))
	for _, h := range p.tasks {
		pending = append(pending, h)
	}
	p.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	p.logger.Info("awaiting tasks to complete", "pending", len(pending))

	for _, h := range pending {
		select {
		case <-h.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Len returns the number of outstanding tasks.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int {
	return p.cfg.MaxTasks
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Active:    p.Len(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
		Retries:   p.retries.Load(),
		Panics:    p.panics.Load(),
	}
}

// start registers a handle for task and runs it. The caller holds a slot.
func (p *Pool) start(task func()) {
	p.mu.Lock()
	p.nextID++
	h := &handle{
		id:      p.nextID,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	p.tasks[h.id] = h
	n := len(p.tasks)
	p.mu.Unlock()

	p.submitted.Add(1)
	p.metrics.PoolTasks(n)
	p.logger.Debug("task started", "task", h.id, "active", n)

	go func() {
		defer p.finish(h)
		task()
	}()
}

// finish removes h from the outstanding set and frees its slot.
func (p *Pool) finish(h *handle) {
	if r := recover(); r != nil {
		p.panics.Add(1)
		p.logger.Error("task panicked", "task", h.id, "panic", r)
	}

	p.mu.Lock()
	delete(p.tasks, h.id)
	n := len(p.tasks)
	p.mu.Unlock()

	p.sem.Release(1)
	p.completed.Add(1)
	p.metrics.PoolTasks(n)
	close(h.done)

	select {
	case p.freed <- struct{}{}:
	default:
	}

	p.logger.Debug("task finished", "task", h.id, "duration", time.Since(h.started))
}
