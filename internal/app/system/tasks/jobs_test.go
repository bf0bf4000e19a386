package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePurger struct {
	cutoff time.Time
	day    string
	err    error
	calls  int
}

func (f *fakePurger) PurgeExpired(context.Context) (int64, error) {
	f.calls++
	return 3, f.err
}

func (f *fakePurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 1, f.err
}

func (f *fakePurger) PurgeUsageBefore(_ context.Context, day string) (int64, error) {
	f.calls++
	f.day = day
	return 2, f.err
}

func (f *fakePurger) PurgeViolationsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 0, nil
}

func TestNotificationSweepJob(t *testing.T) {
	p := &fakePurger{}
	job := NotificationSweepJob(p, zap.NewNop())
	assert.Equal(t, 10*time.Minute, job.Interval)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, p.calls)
}

func TestAuditRetentionJob_Cutoff(t *testing.T) {
	p := &fakePurger{}
	job := AuditRetentionJob(p, 7*24*time.Hour, zap.NewNop())
	require.NoError(t, job.Run(context.Background()))

	want := time.Now().UTC().Add(-7 * 24 * time.Hour)
	assert.WithinDuration(t, want, p.cutoff, time.Minute)
}

func TestUsagePurgeJob(t *testing.T) {
	p := &fakePurger{}
	job := UsagePurgeJob(p, zap.NewNop())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, time.Now().UTC().Add(-UsageRetention).Format("2006-01-02"), p.day)
	assert.Equal(t, 2, p.calls)
}

func TestUsagePurgeJob_StopsOnError(t *testing.T) {
	p := &fakePurger{err: errors.New("boom")}
	job := UsagePurgeJob(p, zap.NewNop())
	require.Error(t, job.Run(context.Background()))
	assert.Equal(t, 1, p.calls, "violations are not purged after a usage failure")
}
