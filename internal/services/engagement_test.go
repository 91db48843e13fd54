package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/chirp/backend/internal/models"
)

func TestToggleLikeRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	u := e.register("bob")
	p := e.write(a, "like me")
	before := e.post(p.ID).LikerIDs

	state, err := e.engagement.ToggleLike(e.ctx, p.ID, u, false)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, []string{u}, e.post(p.ID).LikerIDs)

	state, err = e.engagement.ToggleLike(e.ctx, p.ID, u, true)
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Equal(t, before, e.post(p.ID).LikerIDs)
}

func TestToggleLikeTwiceKeepsOneEntry(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	u := e.register("bob")
	p := e.write(a, "like me twice")

	_, err := e.engagement.ToggleLike(e.ctx, p.ID, u, false)
	require.NoError(t, err)
	// the notification dedupe reads before it writes
	e.dispatcher.Wait()
	_, err = e.engagement.ToggleLike(e.ctx, p.ID, u, false)
	require.NoError(t, err)
	assert.Equal(t, []string{u}, e.post(p.ID).LikerIDs)

	liked, err := e.engagement.HasLiked(e.ctx, p.ID, u)
	require.NoError(t, err)
	assert.True(t, liked)

	likes := 0
	for _, n := range e.inbox(a) {
		if n.Kind == models.KindLike {
			likes++
		}
	}
	assert.Equal(t, 1, likes, "a repeated like is notified once")
}

func TestLikeOnRepostAppliesToOriginal(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	c := e.register("carol")
	orig := e.write(a, "original")
	repost, err := e.timeline.Repost(e.ctx, orig.ID, b)
	require.NoError(t, err)

	state, err := e.engagement.ToggleLike(e.ctx, repost.ID, c, false)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, state.ContentID)
	assert.Equal(t, []string{c}, e.post(orig.ID).LikerIDs)
	assert.Empty(t, e.post(repost.ID).LikerIDs)

	reposted, err := e.engagement.HasReposted(e.ctx, repost.ID, b)
	require.NoError(t, err)
	assert.True(t, reposted)

	var kinds []string
	for _, n := range e.inbox(a) {
		kinds = append(kinds, n.Kind)
	}
	assert.ElementsMatch(t, []string{models.KindRepost, models.KindLike}, kinds)
}

func TestLikeOnDeletedContentIsNotFound(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	orig := e.write(a, "original")
	repost, err := e.timeline.Repost(e.ctx, orig.ID, b)
	require.NoError(t, err)
	require.NoError(t, e.timeline.DeletePost(e.ctx, orig.ID, a))

	_, err = e.engagement.ToggleLike(e.ctx, orig.ID, b, false)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.engagement.ToggleLike(e.ctx, repost.ID, b, false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, e.post(orig.ID).LikerIDs)
}

func TestSelfLikeIsSilent(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	p := e.write(a, "me")

	_, err := e.engagement.ToggleLike(e.ctx, p.ID, a, false)
	require.NoError(t, err)
	assert.Empty(t, e.inbox(a))
}

func TestToggleLikeUnknownPost(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")

	_, err := e.engagement.ToggleLike(e.ctx, "nope", a, false)
	assert.ErrorIs(t, err, ErrNotFound)
}
