package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestRunner_RunsJobsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	r := NewRunner(zap.NewNop(), Job{
		Name:     "count",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	r.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()

	if got := runs.Load(); got < 3 {
		t.Errorf("runs: got %d, want at least 3", got)
	}
}

func TestRunner_FailingJobKeepsRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	r := NewRunner(zap.NewNop(), Job{
		Name:     "fails",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("boom")
		},
	})
	r.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()

	if got := runs.Load(); got < 2 {
		t.Errorf("runs: got %d, want at least 2", got)
	}
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRunner(zap.NewNop(), Job{Name: "idle", Interval: time.Hour, Run: func(context.Context) error { return nil }})
	r.Start(context.Background())
	r.Stop()
	r.Stop()
}

func TestRunner_SkipsInvalidJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRunner(zap.NewNop(), Job{Name: "no interval", Run: func(context.Context) error { return nil }}, Job{Name: "no func", Interval: time.Second})
	r.Start(context.Background())
	r.Stop()
}
