package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrDispatcherBusy is returned when no generation slot frees up in time.
var ErrDispatcherBusy = errors.New("dispatcher busy")

// Limiter caps the number of concurrent upstream generations. A nil Limiter
// admits everything.
type Limiter struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

// NewLimiter returns nil when max <= 0, meaning unlimited.
func NewLimiter(max int, wait time.Duration) *Limiter {
	if max <= 0 {
		return nil
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(max)), wait: wait}
}

// Acquire blocks for at most the configured wait. The returned release must be called once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	if l.sem.TryAcquire(1) {
		debugLog("[limiter] slot acquired immediately")
		return l.release, nil
	}
	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}
	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		debugLog("[limiter] gave up after %s", l.wait)
		return nil, ErrDispatcherBusy
	}
	return l.release, nil
}

func (l *Limiter) release() {
	l.sem.Release(1)
}
