package docstore

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Subscription is the handle returned by Subscribe and SubscribeDoc. Once
// Cancel returns no further callback starts.
type Subscription struct {
	cancel     context.CancelFunc
	mu         sync.Mutex
	stopped    atomic.Bool
	delivering atomic.Bool
	done       chan struct{}
	closeOnce  sync.Once
	err        error
}

// NewSubscription returns a live subscription bound to a child of ctx. The
// returned context is cancelled together with the subscription and should
// drive the backend's change feed.
func NewSubscription(ctx context.Context) (*Subscription, context.Context) {
	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	return s, subCtx
}

// Deliver runs fn unless the subscription has been cancelled. Backends call
// it for every snapshot, serially.
func (s *Subscription) Deliver(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped.Load() {
		return false
	}
	s.delivering.Store(true)
	defer s.delivering.Store(false)
	fn()
	return true
}

// Cancel stops delivery. It is safe to call more than once and from inside a callback.
func (s *Subscription) Cancel() {
	s.stopped.Store(true)
	s.cancel()
	if !s.delivering.Load() {
		// wait out a callback that checked the flag just before we set it
		s.mu.Lock()
		s.mu.Unlock()
	}
	s.finish(nil)
}

// Fail terminates the subscription with a backend error.
func (s *Subscription) Fail(err error) {
	s.stopped.Store(true)
	s.cancel()
	s.finish(err)
}

func (s *Subscription) finish(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the subscription, if any.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Active reports whether the subscription still delivers.
func (s *Subscription) Active() bool { return !s.stopped.Load() }

// Poll is the fallback change feed for backends without a native one: it
// runs fetch every interval and delivers the result whenever it differs from
// the last delivered snapshot. The first result is always delivered.
func Poll(ctx context.Context, interval time.Duration, fetch func(context.Context) ([]Doc, error), fn func([]Doc)) (*Subscription, error) {
	first, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	sub, subCtx := NewSubscription(ctx)
	sub.Deliver(func() { fn(first) })

	go func() {
		last := first
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				sub.finish(nil)
				return
			case <-ticker.C:
			}
			docs, err := fetch(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					sub.finish(nil)
					return
				}
				sub.Fail(err)
				return
			}
			if reflect.DeepEqual(docs, last) {
				continue
			}
			last = docs
			sub.Deliver(func() { fn(docs) })
		}
	}()
	return sub, nil
}
