package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Create(ctx, "users", "u1", docstore.Data{"handle": "alice"}))
	assert.ErrorIs(t, s.Create(ctx, "users", "u1", docstore.Data{}), docstore.ErrAlreadyExists)

	data, err := s.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", data.String("handle"))

	// returned data is a copy
	data["handle"] = "mallory"
	again, _ := s.Get(ctx, "users", "u1")
	assert.Equal(t, "alice", again.String("handle"))

	require.NoError(t, s.Update(ctx, "users", "u1", docstore.ArrayUnion("followerIds", "u2"), docstore.Increment("followerCount", 1)))
	data, _ = s.Get(ctx, "users", "u1")
	assert.Equal(t, []string{"u2"}, data.Strings("followerIds"))
	assert.Equal(t, int64(1), data.Int("followerCount"))

	assert.ErrorIs(t, s.Update(ctx, "users", "nobody", docstore.Set("x", 1)), docstore.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "users", "u1"))
	require.NoError(t, s.Delete(ctx, "users", "u1"))
	_, err = s.Get(ctx, "users", "u1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestQueryFiltersAndInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Create(ctx, "posts", id, docstore.Data{"authorId": "x", "parentId": nil}))
	}
	require.NoError(t, s.Create(ctx, "posts", "r", docstore.Data{"authorId": "x", "parentId": "a"}))

	docs, err := s.Query(ctx, docstore.Query{Collection: "posts", Filters: []docstore.Filter{docstore.Eq("parentId", nil)}})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)
	assert.Equal(t, "b", docs[2].ID)
}

func TestBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "n", "exists", docstore.Data{}))

	err := s.Batch(ctx, []docstore.BatchOp{
		docstore.CreateOp("n", "fresh", docstore.Data{"k": "v"}),
		docstore.CreateOp("n", "exists", docstore.Data{}),
	})
	assert.ErrorIs(t, err, docstore.ErrAlreadyExists)
	assert.Equal(t, 1, s.Len("n"))

	err = s.Batch(ctx, []docstore.BatchOp{
		docstore.CreateOp("n", "fresh", docstore.Data{"read": false}),
		docstore.UpdateOp("n", "fresh", docstore.Set("read", true)),
		docstore.DeleteOp("n", "exists"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len("n"))
	data, err := s.Get(ctx, "n", "fresh")
	require.NoError(t, err)
	assert.True(t, data.Bool("read"))
}

func TestSubscribeDeliversEveryChange(t *testing.T) {
	ctx := context.Background()
	s := New()

	var mu sync.Mutex
	var sizes []int
	sub, err := s.Subscribe(ctx, docstore.Query{Collection: "posts"}, func(docs []docstore.Doc) {
		mu.Lock()
		sizes = append(sizes, len(docs))
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Cancel()

	mu.Lock()
	assert.Equal(t, []int{0}, sizes)
	mu.Unlock()

	require.NoError(t, s.Create(ctx, "posts", "p1", docstore.Data{}))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return sizes[len(sizes)-1] == 1
	}, time.Second, time.Millisecond)
}

func TestSubscribeDocAndCancel(t *testing.T) {
	ctx := context.Background()
	s := New()

	updates := make(chan docstore.Data, 16)
	sub, err := s.SubscribeDoc(ctx, "users", "u1", func(d docstore.Data) { updates <- d })
	require.NoError(t, err)

	assert.Nil(t, <-updates)

	require.NoError(t, s.Create(ctx, "users", "u1", docstore.Data{"bio": "hi"}))
	select {
	case d := <-updates:
		assert.Equal(t, "hi", d.String("bio"))
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	sub.Cancel()
	time.Sleep(5 * time.Millisecond)
	for len(updates) > 0 {
		<-updates
	}
	require.NoError(t, s.Update(ctx, "users", "u1", docstore.Set("bio", "bye")))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, updates)
}

func TestCloseCancelsSubscriptions(t *testing.T) {
	s := New()
	sub, err := s.Subscribe(context.Background(), docstore.Query{Collection: "posts"}, func([]docstore.Doc) {})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.False(t, sub.Active())
}

func TestCancelledContextStopsSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New()
	sub, err := s.Subscribe(ctx, docstore.Query{Collection: "posts"}, func([]docstore.Doc) {})
	require.NoError(t, err)
	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not stopped by context")
	}
}
