package repositories

import (
	"context"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
)

// FollowRepository defines the interface for follow edge writes. Each method
// touches one account document with a set operation plus a counter increment
// in a single atomic update.
type FollowRepository interface {
	AddFollowing(ctx context.Context, accountID, targetID string) error
	RemoveFollowing(ctx context.Context, accountID, targetID string) error
	AddFollower(ctx context.Context, accountID, followerID string) error
	RemoveFollower(ctx context.Context, accountID, followerID string) error
}

// DocFollowRepository implements FollowRepository on a document store
type DocFollowRepository struct {
	store docstore.Store
}

// NewDocFollowRepository creates a new DocFollowRepository
func NewDocFollowRepository(store docstore.Store) *DocFollowRepository {
	return &DocFollowRepository{store: store}
}

func (r *DocFollowRepository) AddFollowing(ctx context.Context, accountID, targetID string) error {
	return r.store.Update(ctx, models.AccountsCollection, accountID,
		docstore.ArrayUnion("followingIds", targetID), docstore.Increment("followingCount", 1))
}

func (r *DocFollowRepository) RemoveFollowing(ctx context.Context, accountID, targetID string) error {
	return r.store.Update(ctx, models.AccountsCollection, accountID,
		docstore.ArrayRemove("followingIds", targetID), docstore.Increment("followingCount", -1))
}

func (r *DocFollowRepository) AddFollower(ctx context.Context, accountID, followerID string) error {
	return r.store.Update(ctx, models.AccountsCollection, accountID,
		docstore.ArrayUnion("followerIds", followerID), docstore.Increment("followerCount", 1))
}

func (r *DocFollowRepository) RemoveFollower(ctx context.Context, accountID, followerID string) error {
	return r.store.Update(ctx, models.AccountsCollection, accountID,
		docstore.ArrayRemove("followerIds", followerID), docstore.Increment("followerCount", -1))
}
