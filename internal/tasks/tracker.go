package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"dreamdoc-backend/internal/shared/telemetry"
)

// Tracker runs named background jobs and lets shutdown wait for them.
// Jobs get their own context detached from the request that spawned
// them, bounded by a per-job timeout.
type Tracker struct {
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Go runs fn on a new goroutine. It returns false when the tracker has
// already been shut down. Panics are recovered and logged, never
// propagated.
func (t *Tracker) Go(name string, timeout time.Duration, fn func(ctx context.Context)) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		telemetry.Warn("task.rejected", map[string]any{"task": name})
		return false
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("task.panic", map[string]any{
					"task":  name,
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				})
			}
		}()

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		fn(ctx)
		telemetry.Info("task.complete", map[string]any{
			"task":       name,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}()
	return true
}

// Wait blocks until every running job finishes or ctx expires. New jobs
// are refused from the first call on.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
