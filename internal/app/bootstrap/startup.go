// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"

	"github.com/dalemusser/waffle/config"
	auditstore "github.com/zerlake/thesisai/internal/app/store/audit"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	ratelimitstore "github.com/zerlake/thesisai/internal/app/store/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/tasks"
	"go.uber.org/zap"
)

// appState holds what Startup and BuildHandler create and Shutdown stops.
type appState struct {
	mu      sync.Mutex
	jobs    *tasks.Runner
	limiter *ratelimit.MemoryLimiter
}

func (s *appState) setLimiter(l *ratelimit.MemoryLimiter) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.limiter = l
	s.mu.Unlock()
}

// stop halts the background jobs and the memory limiter's cleanup loop.
func (s *appState) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	jobs, limiter := s.jobs, s.limiter
	s.jobs, s.limiter = nil, nil
	s.mu.Unlock()
	if jobs != nil {
		jobs.Stop()
	}
	if limiter != nil {
		limiter.Stop()
	}
}

// backgroundJobs lists the periodic maintenance work.
func backgroundJobs(deps DBDeps, appCfg AppConfig, logger *zap.Logger) []tasks.Job {
	db := deps.MongoDatabase
	return []tasks.Job{
		tasks.NotificationSweepJob(notificationstore.New(db, appCfg.NotificationTTL), logger),
		tasks.AuditRetentionJob(auditstore.New(db), appCfg.AuditRetention, logger),
		tasks.UsagePurgeJob(ratelimitstore.New(db), logger),
	}
}

// Startup starts the background jobs. They run until Shutdown.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	runner := tasks.NewRunner(logger.Named("tasks"), backgroundJobs(deps, appCfg, logger)...)
	runner.Start(context.Background())
	if deps.state != nil {
		deps.state.mu.Lock()
		deps.state.jobs = runner
		deps.state.mu.Unlock()
	}
	return nil
}
