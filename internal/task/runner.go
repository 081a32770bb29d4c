package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/phrazzld/pillbox-api/internal/platform/logger"
	"github.com/phrazzld/pillbox-api/internal/redact"
	"github.com/robfig/cron/v3"
)

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers execute jobs
	WorkerCount int

	// BatchSize is the maximum number of due jobs claimed per poll
	BatchSize int

	// PollInterval is how often the store is polled for due jobs
	PollInterval time.Duration

	// StuckJobAge defines how long a job can be in processing state
	// before it's considered stuck and reset
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs
	StuckJobCheckInterval time.Duration

	// BackoffBase is the delay before the first retry of a job with backoff
	BackoffBase time.Duration

	// BackoffMax caps the retry delay
	BackoffMax time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           2,
		BatchSize:             10,
		PollInterval:          time.Second,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
		BackoffBase:           30 * time.Second,
		BackoffMax:            time.Hour,
	}
}

// withDefaults fills zero values from DefaultRunnerConfig.
func (c RunnerConfig) withDefaults() RunnerConfig {
	d := DefaultRunnerConfig()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.StuckJobAge <= 0 {
		c.StuckJobAge = d.StuckJobAge
	}
	if c.StuckJobCheckInterval <= 0 {
		c.StuckJobCheckInterval = d.StuckJobCheckInterval
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = d.BackoffBase
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = c.BackoffBase
	}
	return c
}

// RetryDelay returns how long to wait before the next attempt of a job that
// has failed attempt times: BackoffBase * 2^(attempt-1), capped at BackoffMax.
func (c RunnerConfig) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.BackoffMax {
			return c.BackoffMax
		}
	}
	if delay > c.BackoffMax {
		return c.BackoffMax
	}
	return delay
}

// Runner polls a JobStore for due jobs and executes them on a fixed pool of
// workers using the handler registered for each job type.
type Runner struct {
	store    JobStore
	config   RunnerConfig
	logger   *slog.Logger
	handlers map[string]Handler
	now      func() time.Time

	mu      sync.Mutex
	running bool
	jobs    chan *Job
	cancel  context.CancelFunc
	cron    *cron.Cron
	wg      sync.WaitGroup
}

// NewRunner creates a new Runner
func NewRunner(store JobStore, config RunnerConfig, logger *slog.Logger) (*Runner, error) {
	if store == nil {
		return nil, errors.New("job store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		config:   config.withDefaults(),
		logger:   logger.With(slog.String("component", "job_runner")),
		handlers: make(map[string]Handler),
		now:      time.Now,
	}, nil
}

// Register sets the handler for jobType. It must be called before Start.
func (r *Runner) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

// Start launches the workers, the poller and the stuck job reaper.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("job runner already started")
	}

	reaper := cron.New()
	schedule := fmt.Sprintf("@every %s", r.config.StuckJobCheckInterval)
	if _, err := reaper.AddFunc(schedule, r.reapStuckJobs); err != nil {
		return fmt.Errorf("failed to schedule stuck job check: %w", err)
	}

	// Jobs a crashed run left in processing are recovered before polling begins.
	r.reapStuckJobs()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.cron = reaper
	r.jobs = make(chan *Job)
	r.running = true

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.poll(ctx)

	reaper.Start()

	r.logger.Info("job runner started",
		slog.Int("workers", r.config.WorkerCount),
		slog.Duration("poll_interval", r.config.PollInterval))
	return nil
}

// Stop stops polling and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	reaper := r.cron
	r.mu.Unlock()

	cancel()
	<-reaper.Stop().Done()
	r.wg.Wait()

	r.logger.Info("job runner stopped")
}

// poll claims due jobs and hands them to the workers until ctx is cancelled.
// The jobs channel is closed on exit so workers drain and return.
func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		r.dispatchDue(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) dispatchDue(ctx context.Context) {
	jobs, err := r.store.ClaimDue(ctx, r.now().UTC(), r.config.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("failed to claim due jobs", slog.String("error", redact.Error(err)))
		}
		return
	}

	for i, job := range jobs {
		select {
		case r.jobs <- job:
		case <-ctx.Done():
			// Claimed but never started: hand the rest back.
			for _, j := range jobs[i:] {
				r.release(j)
			}
			return
		}
	}
}

func (r *Runner) release(job *Job) {
	now := r.now().UTC()
	if err := r.store.Reschedule(context.Background(), job.ID, now, "released on shutdown", now); err != nil {
		r.logger.Error("failed to release claimed job",
			slog.String("job_id", job.ID.String()),
			slog.String("error", redact.Error(err)))
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic in job worker",
				slog.Int("worker_id", id),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	r.logger.Debug("starting worker", slog.Int("worker_id", id))
	for job := range r.jobs {
		r.Process(context.Background(), job)
	}
	r.logger.Debug("stopping worker", slog.Int("worker_id", id))
}

// ProcessDue claims due jobs and executes them synchronously on the calling
// goroutine. It returns the number of jobs processed.
func (r *Runner) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := r.store.ClaimDue(ctx, r.now().UTC(), r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due jobs: %w", err)
	}
	for _, job := range jobs {
		r.Process(ctx, job)
	}
	return len(jobs), nil
}

// Process executes a claimed job and records the outcome: completed on
// success, rescheduled while attempts remain, failed otherwise.
func (r *Runner) Process(ctx context.Context, job *Job) {
	log := r.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.Type),
		slog.Int("attempt", job.Attempts),
		slog.Int("max_attempts", job.MaxAttempts),
	)
	ctx = logger.WithLogger(ctx, log)

	r.mu.Lock()
	h, ok := r.handlers[job.Type]
	r.mu.Unlock()

	var err error
	if !ok {
		err = Permanent(fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type))
	} else {
		err = r.safeHandle(ctx, h, job)
	}

	now := r.now().UTC()
	if err == nil {
		log.Info("job completed")
		if markErr := r.store.MarkCompleted(ctx, job.ID, now); markErr != nil {
			log.Error("failed to mark job completed", slog.String("error", redact.Error(markErr)))
		}
		return
	}

	msg := redact.Error(err)
	if IsPermanent(err) || !job.CanRetry() {
		log.Error("job failed", slog.String("error", msg))
		if markErr := r.store.MarkFailed(ctx, job.ID, msg, now); markErr != nil {
			log.Error("failed to mark job failed", slog.String("error", redact.Error(markErr)))
		}
		return
	}

	runAt := now
	if job.Backoff {
		runAt = now.Add(r.config.RetryDelay(job.Attempts))
	}
	log.Warn("job attempt failed, retrying",
		slog.String("error", msg),
		slog.Time("run_at", runAt))
	if markErr := r.store.Reschedule(ctx, job.ID, runAt, msg, now); markErr != nil {
		log.Error("failed to reschedule job", slog.String("error", redact.Error(markErr)))
	}
}

// safeHandle turns a handler panic into a retryable error.
func (r *Runner) safeHandle(ctx context.Context, h Handler, job *Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return h.Handle(ctx, job)
}

// reapStuckJobs resets jobs stuck in processing back to pending.
func (r *Runner) reapStuckJobs() {
	now := r.now().UTC()
	n, err := r.store.ResetStuck(context.Background(), now.Add(-r.config.StuckJobAge), now)
	if err != nil {
		r.logger.Error("failed to reset stuck jobs", slog.String("error", redact.Error(err)))
		return
	}
	if n > 0 {
		r.logger.Info("reset stuck jobs", slog.Int64("count", n))
	}
}
