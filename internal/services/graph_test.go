package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/chirp/backend/internal/models"
)

func TestFollowUnfollowRestoresState(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	beforeA, beforeB := e.account(a), e.account(b)

	require.NoError(t, e.graph.Follow(e.ctx, a, b))
	assert.Equal(t, []string{b}, e.account(a).FollowingIDs)
	assert.Equal(t, []string{a}, e.account(b).FollowerIDs)
	assert.Equal(t, int64(1), e.account(a).FollowingCount)
	assert.Equal(t, int64(1), e.account(b).FollowerCount)

	require.NoError(t, e.graph.Unfollow(e.ctx, a, b))
	afterA, afterB := e.account(a), e.account(b)
	assert.Equal(t, beforeA.FollowingIDs, afterA.FollowingIDs)
	assert.Equal(t, beforeA.FollowingCount, afterA.FollowingCount)
	assert.Equal(t, beforeB.FollowerIDs, afterB.FollowerIDs)
	assert.Equal(t, beforeB.FollowerCount, afterB.FollowerCount)
}

func TestFollowTwiceIsFollowOnce(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")

	require.NoError(t, e.graph.Follow(e.ctx, a, b))
	require.NoError(t, e.graph.Follow(e.ctx, a, b))

	assert.Equal(t, []string{b}, e.account(a).FollowingIDs)
	assert.Equal(t, int64(1), e.account(a).FollowingCount)
	assert.Equal(t, int64(1), e.account(b).FollowerCount)

	// unfollowing a stranger changes nothing
	c := e.register("carol")
	require.NoError(t, e.graph.Unfollow(e.ctx, a, c))
	assert.Equal(t, int64(1), e.account(a).FollowingCount)
	assert.Zero(t, e.account(c).FollowerCount)
}

func TestFollowSelfAndUnknown(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")

	assert.ErrorIs(t, e.graph.Follow(e.ctx, a, a), ErrSelfFollow)
	assert.ErrorIs(t, e.graph.Follow(e.ctx, a, "ghost"), ErrNotFound)
	assert.Empty(t, e.account(a).FollowingIDs)
}

func TestFollowSecondSideFailureIsRepairable(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")

	e.store.fail("update", models.AccountsCollection, b)
	err := e.graph.Follow(e.ctx, a, b)
	assert.ErrorIs(t, err, ErrPartialFailure)
	assert.Equal(t, []string{b}, e.account(a).FollowingIDs)
	assert.Empty(t, e.account(b).FollowerIDs)

	e.store.heal()
	require.NoError(t, e.graph.Follow(e.ctx, a, b))
	assert.Equal(t, int64(1), e.account(a).FollowingCount, "re-run must not double count")
	assert.Equal(t, []string{a}, e.account(b).FollowerIDs)
	assert.Equal(t, int64(1), e.account(b).FollowerCount)
}

func TestFollowFirstSideFailureCommitsNothing(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")

	e.store.fail("update", models.AccountsCollection, a)
	err := e.graph.Follow(e.ctx, a, b)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Empty(t, e.account(b).FollowerIDs)
}

func TestRemoveFollower(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	require.NoError(t, e.graph.Follow(e.ctx, b, a))

	require.NoError(t, e.graph.RemoveFollower(e.ctx, a, b))
	assert.Empty(t, e.account(a).FollowerIDs)
	assert.Zero(t, e.account(a).FollowerCount)
	assert.Empty(t, e.account(b).FollowingIDs)
	assert.Zero(t, e.account(b).FollowingCount)
}

func TestFollowersMostRecentFirst(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	c := e.register("carol")
	require.NoError(t, e.graph.Follow(e.ctx, b, a))
	require.NoError(t, e.graph.Follow(e.ctx, c, a))
	require.NoError(t, e.graph.Follow(e.ctx, a, c))

	followers, err := e.graph.Followers(e.ctx, a)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, c, followers[0].ID)
	assert.Equal(t, b, followers[1].ID)

	following, err := e.graph.Following(e.ctx, a)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "carol", following[0].Handle)
}
