package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDetachedTimeout bounds fire-and-forget calls.
const DefaultDetachedTimeout = 10 * time.Second

// detachedTasks runs best-effort work that the caller does not await.
// Errors go to the logger only. Wait blocks until all spawned tasks finish.
type detachedTasks struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *slog.Logger
}

func newDetachedTasks(timeout time.Duration, logger *slog.Logger) *detachedTasks {
	if timeout <= 0 {
		timeout = DefaultDetachedTimeout
	}
	return &detachedTasks{timeout: timeout, logger: logger}
}

// Go spawns fn with a context detached from the caller's cancellation but keeping its values.
func (d *detachedTasks) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := fn(dctx); err != nil {
			d.logger.WarnContext(dctx, "detached task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until every spawned task has returned.
func (d *detachedTasks) Wait() {
	d.wg.Wait()
}
