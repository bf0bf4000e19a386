package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps fixed windows in process memory. It is safe for
// concurrent use. Counters are not shared between instances; use RedisLimiter
// behind a load balancer.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// NewMemory returns a limiter that sweeps expired windows every cleanupEvery.
// Call Stop to end the sweeper.
func NewMemory(cleanupEvery time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	go l.cleanupLoop(cleanupEvery)
	return l
}

// Allow counts a hit for key. Denied hits are still counted so the violation
// record reflects how far over the limit the caller went.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, d time.Duration) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(d)}
		l.windows[key] = w
	}
	w.count++
	return decide(w.count, limit, w.expiresAt), nil
}

// Reset clears key, for example after a successful sign-in.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// Len reports how many windows are tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the cleanup goroutine and waits for it to exit.
func (l *MemoryLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
	<-l.done
}

func (l *MemoryLimiter) cleanupLoop(every time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *MemoryLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, key)
		}
	}
}
