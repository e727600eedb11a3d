package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RefreshFunc refreshes one job's data.
type RefreshFunc func(ctx context.Context) error

// Config holds poller configuration.
type Config struct {
	Tick        time.Duration // How often due jobs are checked (default: 1s)
	Concurrency int           // Max concurrent refreshes (default: 8)
	Timeout     time.Duration // Per-refresh timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tick:        time.Second,
		Concurrency: 8,
		Timeout:     30 * time.Second,
	}
}

type job struct {
	name     string
	interval time.Duration
	refresh  RefreshFunc

	lastRun time.Time
	running atomic.Bool
}

// Poller periodically runs registered refresh jobs.
type Poller struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	jobs map[string]*job

	refreshed atomic.Int64
	failed    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, logger *slog.Logger) *Poller {
	def := DefaultConfig()
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		jobs:   make(map[string]*job),
		ctx:    context.Background(),
	}
}

// Register adds or replaces a job. A new job is due immediately.
func (p *Poller) Register(name string, interval time.Duration, fn RefreshFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs[name] = &job{name: name, interval: interval, refresh: fn}
}

// Unregister removes a job.
func (p *Poller) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.jobs, name)
}

// Jobs returns the number of registered jobs.
func (p *Poller) Jobs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// Stats returns the number of successful and failed refreshes so far.
func (p *Poller) Stats() (refreshed, failed int64) {
	return p.refreshed.Load(), p.failed.Load()
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("refresh poller started",
		"tick", p.cfg.Tick,
		"concurrency", p.cfg.Concurrency,
		"jobs", p.Jobs(),
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("refresh poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	// Refresh immediately on start.
	p.pollDue()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollDue()
		}
	}
}

// due returns jobs whose interval has elapsed and that are not running.
func (p *Poller) due() []*job {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*job
	for _, j := range p.jobs {
		if !j.lastRun.IsZero() && now.Sub(j.lastRun) < j.interval {
			continue
		}
		if !j.running.CompareAndSwap(false, true) {
			continue
		}
		j.lastRun = now
		out = append(out, j)
	}
	return out
}

// pollDue refreshes every due job concurrently and waits for them.
func (p *Poller) pollDue() {
	jobs := p.due()
	if len(jobs) == 0 {
		return
	}

	start := time.Now()

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var refreshed, errors atomic.Int64

	for _, j := range jobs {
		wg.Add(1)
		go func(j *job) {
			defer wg.Done()
			defer j.running.Store(false)

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			if err := p.refreshJob(j); err != nil {
				p.logger.Warn("failed to refresh",
					"job", j.name,
					"err", err,
				)
				errors.Add(1)
				return
			}

			refreshed.Add(1)
		}(j)
	}

	wg.Wait()

	p.refreshed.Add(refreshed.Load())
	p.failed.Add(errors.Load())

	p.logger.Debug("refresh cycle complete",
		"jobs", len(jobs),
		"refreshed", refreshed.Load(),
		"errors", errors.Load(),
		"duration", time.Since(start),
	)
}

// refreshJob runs one job with the per-refresh timeout.
func (p *Poller) refreshJob(j *job) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()
	return j.refresh(ctx)
}
