package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher runs best-effort side effects (counters, notifications) detached
// from the request that triggered them. Failures and panics are logged and
// dropped.
type Dispatcher struct {
	log *zap.Logger
	wg  sync.WaitGroup
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{log: orNop(log)}
}

// Go starts task on its own goroutine with a context that outlives the caller's.
func (d *Dispatcher) Go(ctx context.Context, task string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("best-effort task panicked", zap.String("task", task), zap.String("panic", fmt.Sprint(r)))
			}
		}()
		if err := fn(detached); err != nil {
			d.log.Warn("best-effort task failed", zap.String("task", task), zap.Error(err))
		}
	}()
}

// Wait blocks until every started task has returned. Used on shutdown and in tests.
func (d *Dispatcher) Wait() { d.wg.Wait() }
