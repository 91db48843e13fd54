package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/chirp/backend/internal/models"
)

func TestRootFeedReadsSelfAndFirstTenFollowings(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	own := e.write(a, "mine")

	want := []string{own.ID}
	var left []string
	for i := range 12 {
		id := e.register(fmt.Sprintf("user_%02d", i))
		require.NoError(t, e.graph.Follow(e.ctx, a, id))
		p := e.write(id, fmt.Sprintf("post %d", i))
		if i < DefaultFeedFollowCap {
			want = append(want, p.ID)
		} else {
			left = append(left, p.ID)
		}
	}

	feed, err := e.timeline.HomeFeed(e.ctx, a, 0)
	require.NoError(t, err)
	got := ids(feed)
	assert.ElementsMatch(t, want, got)
	for _, id := range left {
		assert.NotContains(t, got, id)
	}
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].CreatedAt.After(feed[i-1].CreatedAt), "newest first")
	}
}

func TestRepliesStayOutOfFeedsAndOrderOldestFirst(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	root := e.write(a, "root")
	r1 := e.reply(b, root.ID, "first")
	r2 := e.reply(a, root.ID, "second")

	replies, err := e.timeline.Replies(e.ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID, r2.ID}, ids(replies))
	assert.NotContains(t, ids(replies), root.ID)

	feed, err := e.timeline.RootFeed(e.ctx, []string{b}, a, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{root.ID}, ids(feed))

	byAuthor, err := e.timeline.AuthorFeed(e.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{root.ID}, ids(byAuthor))

	e.dispatcher.Wait()
	assert.Equal(t, int64(1), e.account(a).PostCount, "replies are not counted")
	assert.Zero(t, e.account(b).PostCount)
}

func TestCreatePostValidation(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")

	_, err := e.timeline.CreatePost(e.ctx, a, CreatePostInput{Body: "   "})
	assert.ErrorIs(t, err, ErrEmptyPost)

	_, err = e.timeline.CreatePost(e.ctx, a, CreatePostInput{Body: strings.Repeat("é", models.MaxPostLength+1)})
	assert.ErrorIs(t, err, ErrPostTooLong)

	p, err := e.timeline.CreatePost(e.ctx, a, CreatePostInput{Body: strings.Repeat("é", models.MaxPostLength)})
	require.NoError(t, err)
	assert.True(t, p.IsRoot())

	img, err := e.timeline.CreatePost(e.ctx, a, CreatePostInput{ImageRef: "https://cdn.example.com/x.png"})
	require.NoError(t, err)
	assert.Empty(t, img.Body)

	ghost := "missing"
	_, err = e.timeline.CreatePost(e.ctx, a, CreatePostInput{Body: "hi", ParentID: &ghost})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePostSnapshotsAuthorAndNotifiesFollowers(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	require.NoError(t, e.graph.Follow(e.ctx, b, a))

	p := e.write(a, "hello followers")
	assert.Equal(t, "alice", p.Author.Handle)
	assert.Nil(t, p.ParentID)

	inbox := e.inbox(b)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.KindNewPost, inbox[0].Kind)
	assert.Equal(t, p.ID, inbox[0].ContentID)
	assert.Equal(t, a, inbox[0].Actor.ID)
	assert.Empty(t, e.inbox(a))
	assert.Equal(t, int64(1), e.account(a).PostCount)
}

func TestCreatePostSurvivesCounterFailure(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	e.store.fail("update", models.AccountsCollection, a)

	p := e.write(a, "still posted")
	e.dispatcher.Wait()
	assert.Equal(t, "still posted", e.post(p.ID).Body)
	assert.Zero(t, e.account(a).PostCount)
}

func TestRepostThenUndoRestoresState(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	orig := e.write(a, "worth sharing")

	repost, err := e.timeline.Repost(e.ctx, orig.ID, b)
	require.NoError(t, err)
	assert.True(t, repost.IsRepost)
	require.NotNil(t, repost.Original)
	assert.Equal(t, orig.ID, repost.Original.ID)
	assert.Equal(t, "alice", repost.Original.Author.Handle)
	assert.Equal(t, "bob", repost.Author.Handle)
	assert.Equal(t, []string{b}, e.post(orig.ID).ReposterIDs)

	_, err = e.timeline.Repost(e.ctx, repost.ID, a)
	assert.ErrorIs(t, err, ErrCannotRepostRepost)

	inbox := e.inbox(a)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.KindRepost, inbox[0].Kind)

	require.NoError(t, e.timeline.UndoRepost(e.ctx, orig.ID, b))
	assert.Empty(t, e.post(orig.ID).ReposterIDs)
	gone, err := e.posts.GetPostByID(e.ctx, repost.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	require.NoError(t, e.timeline.UndoRepost(e.ctx, orig.ID, b))
	assert.Empty(t, e.post(orig.ID).ReposterIDs)
}

func TestUndoRepostRemovesDuplicates(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	orig := e.write(a, "twice")

	_, err := e.timeline.Repost(e.ctx, orig.ID, b)
	require.NoError(t, err)
	_, err = e.timeline.Repost(e.ctx, orig.ID, b)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, e.post(orig.ID).ReposterIDs)

	require.NoError(t, e.timeline.UndoRepost(e.ctx, orig.ID, b))
	left, err := e.posts.FindReposts(e.ctx, orig.ID, b)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRepostReposterFailureIsPartial(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	orig := e.write(a, "flaky")

	e.store.fail("update", models.PostsCollection, orig.ID)
	repost, err := e.timeline.Repost(e.ctx, orig.ID, b)
	assert.ErrorIs(t, err, ErrPartialFailure)
	require.NotNil(t, repost)
	assert.True(t, e.post(repost.ID).IsRepost)
	assert.Empty(t, e.post(orig.ID).ReposterIDs)

	e.store.heal()
	require.NoError(t, e.timeline.UndoRepost(e.ctx, orig.ID, b))
	left, err := e.posts.FindReposts(e.ctx, orig.ID, b)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDeletePostByOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	p := e.write(a, "mine")

	assert.ErrorIs(t, e.timeline.DeletePost(e.ctx, p.ID, b), ErrNotOwner)
	require.NoError(t, e.timeline.DeletePost(e.ctx, p.ID, a))
	require.NoError(t, e.timeline.DeletePost(e.ctx, p.ID, a))

	deleted := e.post(p.ID)
	assert.True(t, deleted.Deleted)
	require.NotNil(t, deleted.DeletedBy)
	assert.Equal(t, a, *deleted.DeletedBy)

	feed, err := e.timeline.AuthorFeed(e.ctx, a)
	require.NoError(t, err)
	assert.Empty(t, feed)
	all, err := e.moderation.AllPosts(e.ctx, e.admin("root"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, ids(all))
	_, err = e.moderation.AllPosts(e.ctx, b, 0)
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestWatchRootFeedSeesNewPosts(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")

	updates := make(chan []*models.Post, 8)
	sub, err := e.timeline.WatchRootFeed(e.ctx, nil, a, 0, func(ps []*models.Post) { updates <- ps })
	require.NoError(t, err)
	defer sub.Cancel()

	assert.Empty(t, <-updates)
	p := e.write(a, "live")
	for ps := range updates {
		if len(ps) == 1 {
			assert.Equal(t, p.ID, ps[0].ID)
			break
		}
	}
}
