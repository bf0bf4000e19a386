// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// UsageRetention is how long daily usage counters and violation records are
// kept.
const UsageRetention = 35 * 24 * time.Hour

type notificationPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type auditPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type usagePurger interface {
	PurgeUsageBefore(ctx context.Context, day string) (int64, error)
	PurgeViolationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationSweepJob deletes expired notifications. It backs up the TTL
// index, whose monitor runs only once a minute and may lag under load.
func NotificationSweepJob(store notificationPurger, logger *zap.Logger) Job {
	return Job{
		Name:     "notification-sweep",
		Interval: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Debug("expired notifications removed", zap.Int64("count", n))
			}
			return nil
		},
	}
}

// AuditRetentionJob deletes general audit events older than retention. The
// financial trail is never touched.
func AuditRetentionJob(store auditPurger, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "audit-retention",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			n, err := store.PurgeBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("old audit events purged",
					zap.Int64("count", n),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}

// UsagePurgeJob deletes feature usage counters and violation records older
// than UsageRetention.
func UsagePurgeJob(store usagePurger, logger *zap.Logger) Job {
	return Job{
		Name:     "usage-purge",
		Interval: 24 * time.Hour,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().UTC().Add(-UsageRetention)
			usage, err := store.PurgeUsageBefore(ctx, cutoff.Format("2006-01-02"))
			if err != nil {
				return err
			}
			violations, err := store.PurgeViolationsBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			logger.Info("usage records purged",
				zap.Int64("usage", usage),
				zap.Int64("violations", violations))
			return nil
		},
	}
}
