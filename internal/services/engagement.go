package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/repositories"
)

// EngagementService toggles likes. Every toggle is one atomic set operation on
// the target, so concurrent likers never lose each other's writes.
type EngagementService struct {
	posts      repositories.PostRepository
	users      repositories.UserRepository
	likes      repositories.LikeRepository
	notifier   Notifier
	dispatcher *Dispatcher
	log        *zap.Logger
}

// NewEngagementService creates a new EngagementService
func NewEngagementService(posts repositories.PostRepository, users repositories.UserRepository, likes repositories.LikeRepository, notifier Notifier, dispatcher *Dispatcher, log *zap.Logger) *EngagementService {
	return &EngagementService{
		posts:      posts,
		users:      users,
		likes:      likes,
		notifier:   notifier,
		dispatcher: dispatcher,
		log:        orNop(log),
	}
}

// ResolveTarget returns the post a like on contentID applies to: the original
// for a repost item, the item itself otherwise. A deleted post or original is
// not found.
func (s *EngagementService) ResolveTarget(ctx context.Context, contentID string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, contentID)
	if err != nil {
		return nil, Internal("load post", err)
	}
	if post == nil || post.Deleted {
		return nil, New(ErrNotFound, "post not found")
	}
	if !post.IsRepost || post.Original == nil {
		return post, nil
	}
	original, err := s.posts.GetPostByID(ctx, post.Original.ID)
	if err != nil {
		return nil, Internal("load original", err)
	}
	if original == nil || original.Deleted {
		return nil, New(ErrNotFound, "original post not found")
	}
	return original, nil
}

// ToggleLike removes userID from the liker set when currentlyLiked and adds it
// otherwise. The caller's view decides the direction; the stored set is never
// read back to count. A new like notifies the owner in the background.
func (s *EngagementService) ToggleLike(ctx context.Context, contentID, userID string, currentlyLiked bool) (*models.LikeState, error) {
	actor, err := activeAccount(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	target, err := s.ResolveTarget(ctx, contentID)
	if err != nil {
		return nil, err
	}

	if currentlyLiked {
		if err := s.likes.RemoveLike(ctx, target.ID, userID); err != nil {
			return nil, writeErr("remove like", err)
		}
		return &models.LikeState{ContentID: target.ID, Liked: false}, nil
	}

	if err := s.likes.AddLike(ctx, target.ID, userID); err != nil {
		return nil, writeErr("add like", err)
	}
	s.dispatcher.Go(ctx, "notify like", func(ctx context.Context) error {
		return s.notifier.NotifyLike(ctx, actor, target.Author.ID, target)
	})
	return &models.LikeState{ContentID: target.ID, Liked: true}, nil
}

// HasLiked reports whether userID is in the liker set of the like target.
func (s *EngagementService) HasLiked(ctx context.Context, contentID, userID string) (bool, error) {
	target, err := s.ResolveTarget(ctx, contentID)
	if err != nil {
		return false, err
	}
	return target.LikedBy(userID), nil
}

// HasReposted reports whether userID is in the reposter set of contentID.
func (s *EngagementService) HasReposted(ctx context.Context, contentID, userID string) (bool, error) {
	target, err := s.ResolveTarget(ctx, contentID)
	if err != nil {
		return false, err
	}
	return target.RepostedBy(userID), nil
}
