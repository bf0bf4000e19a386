// Package tasks runs periodic background jobs for the lifetime of the server.
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per run; zero means Interval
	Run      func(ctx context.Context) error
}

// Runner owns one goroutine per job. Start it once; Stop cancels the jobs and
// waits for in-flight runs to return.
type Runner struct {
	log    *zap.Logger
	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRunner returns a runner for jobs.
func NewRunner(logger *zap.Logger, jobs ...Job) *Runner {
	return &Runner{log: logger, jobs: jobs}
}

// Start launches every job. Each job first runs after one interval.
func (r *Runner) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	for _, job := range r.jobs {
		if job.Interval <= 0 || job.Run == nil {
			r.log.Warn("skipping invalid job", zap.String("job", job.Name))
			continue
		}
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.log.Info("background jobs started", zap.Int("jobs", len(r.jobs)))
}

// Stop cancels all jobs and waits for them. It is safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.log.Info("background jobs stopped")
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx, job)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = job.Interval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			return
		}
		r.log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	r.log.Debug("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}
