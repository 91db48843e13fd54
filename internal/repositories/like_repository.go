package repositories

import (
	"context"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
)

// LikeRepository defines the interface for like and repost set writes on posts
type LikeRepository interface {
	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error
	AddReposter(ctx context.Context, postID, userID string) error
	RemoveReposter(ctx context.Context, postID, userID string) error
}

// DocLikeRepository implements LikeRepository on a document store. Every
// method is a single set-union or set-difference, so repeats are harmless.
type DocLikeRepository struct {
	store docstore.Store
}

// NewDocLikeRepository creates a new DocLikeRepository
func NewDocLikeRepository(store docstore.Store) *DocLikeRepository {
	return &DocLikeRepository{store: store}
}

// AddLike adds userID to the post's liker set
func (r *DocLikeRepository) AddLike(ctx context.Context, postID, userID string) error {
	return r.store.Update(ctx, models.PostsCollection, postID, docstore.ArrayUnion("likerIds", userID))
}

// RemoveLike removes userID from the post's liker set
func (r *DocLikeRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	return r.store.Update(ctx, models.PostsCollection, postID, docstore.ArrayRemove("likerIds", userID))
}

// AddReposter adds userID to the post's reposter set
func (r *DocLikeRepository) AddReposter(ctx context.Context, postID, userID string) error {
	return r.store.Update(ctx, models.PostsCollection, postID, docstore.ArrayUnion("reposterIds", userID))
}

// RemoveReposter removes userID from the post's reposter set
func (r *DocLikeRepository) RemoveReposter(ctx context.Context, postID, userID string) error {
	return r.store.Update(ctx, models.PostsCollection, postID, docstore.ArrayRemove("reposterIds", userID))
}
