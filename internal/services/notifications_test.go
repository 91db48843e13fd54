package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/chirp/backend/internal/models"
)

func TestNotifyLikeDedupesAndSkipsSelf(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	p := e.write(a, strings.Repeat("x", 150))
	actor := e.account(b)

	require.NoError(t, e.notifier.NotifyLike(e.ctx, e.account(a), a, p))
	assert.Empty(t, e.inbox(a))

	require.NoError(t, e.notifier.NotifyLike(e.ctx, actor, a, p))
	require.NoError(t, e.notifier.NotifyLike(e.ctx, actor, a, p))
	inbox := e.inbox(a)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.KindLike, inbox[0].Kind)
	assert.Len(t, []rune(inbox[0].Preview), models.LikePreviewLength)
	assert.False(t, inbox[0].Read)
}

func TestNotifyNewPostCapsFanout(t *testing.T) {
	e := newTestEnv(t)
	n := NewNotificationService(e.notifications, e.users, nil, Options{FanoutCap: 2})
	author := e.account(e.register("alice"))
	f1, f2, f3 := e.register("bob"), e.register("carol"), e.register("dave")
	p := &models.Post{ID: "p1", Author: author.Snapshot(), Body: "hi"}

	require.NoError(t, n.NotifyNewPost(e.ctx, author, nil, p))
	require.NoError(t, n.NotifyNewPost(e.ctx, author, []string{f1, f2, f3}, p))

	assert.Len(t, e.inbox(f1), 1)
	assert.Len(t, e.inbox(f2), 1)
	assert.Empty(t, e.inbox(f3))
}

func TestNotifyNewPostBatchIsAllOrNothing(t *testing.T) {
	e := newTestEnv(t)
	author := e.account(e.register("alice"))
	f1, f2 := e.register("bob"), e.register("carol")
	e.store.fail("batch", models.NotificationsCollection, "")

	err := e.notifier.NotifyNewPost(e.ctx, author, []string{f1, f2}, &models.Post{ID: "p1", Body: "hi"})
	require.Error(t, err)
	e.store.heal()
	assert.Empty(t, e.inbox(f1))
	assert.Empty(t, e.inbox(f2))
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	c := e.register("carol")
	p := e.write(a, "popular")
	_, err := e.engagement.ToggleLike(e.ctx, p.ID, b, false)
	require.NoError(t, err)
	_, err = e.engagement.ToggleLike(e.ctx, p.ID, c, false)
	require.NoError(t, err)

	inbox := e.inbox(a)
	require.Len(t, inbox, 2)
	count, err := e.notifier.UnreadCount(e.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.ErrorIs(t, e.notifier.MarkRead(e.ctx, b, inbox[0].ID), ErrNotOwner)
	assert.ErrorIs(t, e.notifier.MarkRead(e.ctx, a, "missing"), ErrNotFound)
	require.NoError(t, e.notifier.MarkRead(e.ctx, a, inbox[0].ID))
	count, err = e.notifier.UnreadCount(e.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, e.notifier.MarkAllRead(e.ctx, a))
	count, err = e.notifier.UnreadCount(e.ctx, a)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBlockedAccountCannotMarkRead(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	p := e.write(a, "hello")
	_, err := e.engagement.ToggleLike(e.ctx, p.ID, b, false)
	require.NoError(t, err)
	inbox := e.inbox(a)
	require.Len(t, inbox, 1)

	require.NoError(t, e.users.SetBlocked(e.ctx, a, true))
	assert.ErrorIs(t, e.notifier.MarkRead(e.ctx, a, inbox[0].ID), ErrBlocked)
	assert.ErrorIs(t, e.notifier.MarkAllRead(e.ctx, a), ErrBlocked)
	count, err := e.notifier.UnreadCount(e.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.ErrorIs(t, e.notifier.MarkAllRead(e.ctx, "nobody"), ErrNotFound)
}
