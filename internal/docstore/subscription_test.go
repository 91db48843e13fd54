package docstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollDeliversInitialAndChanges(t *testing.T) {
	var version atomic.Int64
	fetch := func(context.Context) ([]Doc, error) {
		return []Doc{{ID: "x", Data: Data{"v": version.Load()}}}, nil
	}

	var mu sync.Mutex
	var seen []int64
	sub, err := Poll(context.Background(), 5*time.Millisecond, fetch, func(docs []Doc) {
		mu.Lock()
		seen = append(seen, docs[0].Data.Int("v"))
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Cancel()

	mu.Lock()
	assert.Equal(t, []int64{0}, seen)
	mu.Unlock()

	version.Store(1)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2 && seen[1] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPollInitialError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Poll(context.Background(), time.Millisecond, func(context.Context) ([]Doc, error) {
		return nil, boom
	}, func([]Doc) {})
	assert.ErrorIs(t, err, boom)
}

func TestCancelStopsDelivery(t *testing.T) {
	var version atomic.Int64
	var calls atomic.Int64
	sub, err := Poll(context.Background(), time.Millisecond, func(context.Context) ([]Doc, error) {
		return []Doc{{ID: "x", Data: Data{"v": version.Add(1)}}}, nil
	}, func([]Doc) { calls.Add(1) })
	require.NoError(t, err)

	sub.Cancel()
	// a callback already running when Cancel was called may still finish
	time.Sleep(5 * time.Millisecond)
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
	assert.False(t, sub.Active())

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not finish")
	}
	assert.NoError(t, sub.Err())
}

func TestCancelFromCallback(t *testing.T) {
	var sub *Subscription
	var calls atomic.Int64
	var version atomic.Int64
	ready := make(chan struct{})
	var err error
	sub, err = Poll(context.Background(), time.Millisecond, func(context.Context) ([]Doc, error) {
		return []Doc{{ID: "x", Data: Data{"v": version.Add(1)}}}, nil
	}, func([]Doc) {
		if calls.Add(1) == 2 {
			<-ready
			sub.Cancel()
		}
	})
	require.NoError(t, err)
	close(ready)

	assert.Eventually(t, func() bool { return !sub.Active() }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(2), calls.Load())
}

func TestFailRecordsError(t *testing.T) {
	sub, _ := NewSubscription(context.Background())
	boom := errors.New("stream broke")
	sub.Fail(boom)
	<-sub.Done()
	assert.ErrorIs(t, sub.Err(), boom)
	assert.False(t, sub.Deliver(func() { t.Fatal("delivered after fail") }))
}
