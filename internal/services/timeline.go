package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/repositories"
)

// CreatePostInput is the content of a new post or reply.
type CreatePostInput struct {
	Body     string
	ImageRef string
	ParentID *string
}

// TimelineService composes feeds and threads and writes posts and reposts
type TimelineService struct {
	posts      repositories.PostRepository
	users      repositories.UserRepository
	likes      repositories.LikeRepository
	notifier   Notifier
	dispatcher *Dispatcher
	log        *zap.Logger
	opts       Options
}

// NewTimelineService creates a new TimelineService
func NewTimelineService(posts repositories.PostRepository, users repositories.UserRepository, likes repositories.LikeRepository, notifier Notifier, dispatcher *Dispatcher, log *zap.Logger, opts Options) *TimelineService {
	return &TimelineService{
		posts:      posts,
		users:      users,
		likes:      likes,
		notifier:   notifier,
		dispatcher: dispatcher,
		log:        orNop(log),
		opts:       opts.withDefaults(),
	}
}

// feedAuthors returns self plus the first FeedFollowCap followed ids. Accounts
// beyond the cap are left out of the feed.
func (s *TimelineService) feedAuthors(followingIDs []string, selfID string) []string {
	authors := make([]string, 0, s.opts.FeedFollowCap+1)
	authors = append(authors, selfID)
	for _, id := range followingIDs {
		if len(authors) == s.opts.FeedFollowCap+1 {
			break
		}
		if id != selfID {
			authors = append(authors, id)
		}
	}
	return authors
}

func (s *TimelineService) feedLimit(limit int) int {
	if limit <= 0 {
		return s.opts.FeedLimit
	}
	return limit
}

// RootFeed returns non-deleted root posts by selfID and the first
// FeedFollowCap entries of followingIDs, newest first.
func (s *TimelineService) RootFeed(ctx context.Context, followingIDs []string, selfID string, limit int) ([]*models.Post, error) {
	posts, err := s.posts.GetFeed(ctx, s.feedAuthors(followingIDs, selfID), s.feedLimit(limit))
	if err != nil {
		return nil, Internal("load feed", err)
	}
	return posts, nil
}

// HomeFeed is RootFeed for an account's own following set.
func (s *TimelineService) HomeFeed(ctx context.Context, userID string, limit int) ([]*models.Post, error) {
	account, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, Internal("load account", err)
	}
	if account == nil {
		return nil, New(ErrNotFound, "account not found")
	}
	return s.RootFeed(ctx, account.FollowingIDs, userID, limit)
}

// AuthorFeed returns every non-deleted root post of one author, newest first.
func (s *TimelineService) AuthorFeed(ctx context.Context, authorID string) ([]*models.Post, error) {
	posts, err := s.posts.GetPostsByAuthor(ctx, authorID)
	if err != nil {
		return nil, Internal("load author feed", err)
	}
	return posts, nil
}

// Replies returns the non-deleted replies of a post, oldest first.
func (s *TimelineService) Replies(ctx context.Context, parentID string) ([]*models.Post, error) {
	posts, err := s.posts.GetReplies(ctx, parentID)
	if err != nil {
		return nil, Internal("load replies", err)
	}
	return posts, nil
}

// Get returns one post, nil when it does not exist or was deleted.
func (s *TimelineService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, Internal("load post", err)
	}
	if post == nil || post.Deleted {
		return nil, nil
	}
	return post, nil
}

// RecentPosts returns the latest non-deleted root posts of everyone.
func (s *TimelineService) RecentPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	posts, err := s.posts.GetRecentPosts(ctx, s.feedLimit(limit))
	if err != nil {
		return nil, Internal("load recent posts", err)
	}
	return posts, nil
}

// CreatePost writes a root post or a reply with a snapshot of the author.
// For root posts the post counter and the follower fan-out run detached; their
// failure never fails the post.
func (s *TimelineService) CreatePost(ctx context.Context, authorID string, in CreatePostInput) (*models.Post, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" && in.ImageRef == "" {
		return nil, ErrEmptyPost
	}
	if utf8.RuneCountInString(body) > models.MaxPostLength {
		return nil, ErrPostTooLong
	}
	author, err := activeAccount(ctx, s.users, authorID)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent, err := s.posts.GetPostByID(ctx, *in.ParentID)
		if err != nil {
			return nil, Internal("load parent", err)
		}
		if parent == nil || parent.Deleted {
			return nil, New(ErrNotFound, "parent post not found")
		}
	}

	post := &models.Post{
		Author:      author.Snapshot(),
		Body:        body,
		ImageRef:    in.ImageRef,
		LikerIDs:    []string{},
		ReposterIDs: []string{},
		ParentID:    in.ParentID,
		CreatedAt:   s.opts.Clock(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, Internal("create post", err)
	}

	if post.IsRoot() {
		s.dispatcher.Go(ctx, "increment post count", func(ctx context.Context) error {
			return s.users.IncrementPostCount(ctx, author.ID, 1)
		})
		followers := append([]string(nil), author.FollowerIDs...)
		s.dispatcher.Go(ctx, "notify new post", func(ctx context.Context) error {
			return s.notifier.NotifyNewPost(ctx, author, followers, post)
		})
	}
	return post, nil
}

// Repost writes a repost item snapshotting the original, then adds the
// reposter to the original's reposter set. Reposts cannot be reposted.
func (s *TimelineService) Repost(ctx context.Context, originalID, reposterID string) (*models.Post, error) {
	reposter, err := activeAccount(ctx, s.users, reposterID)
	if err != nil {
		return nil, err
	}
	original, err := s.posts.GetPostByID(ctx, originalID)
	if err != nil {
		return nil, Internal("load post", err)
	}
	if original == nil || original.Deleted {
		return nil, New(ErrNotFound, "post not found")
	}
	if original.IsRepost {
		return nil, ErrCannotRepostRepost
	}

	repost := &models.Post{
		Author:      reposter.Snapshot(),
		Body:        original.Body,
		ImageRef:    original.ImageRef,
		LikerIDs:    []string{},
		ReposterIDs: []string{},
		CreatedAt:   s.opts.Clock(),
		IsRepost:    true,
		Original: &models.RepostedItem{
			ID:        original.ID,
			Author:    original.Author,
			Body:      original.Body,
			ImageRef:  original.ImageRef,
			CreatedAt: original.CreatedAt,
		},
	}
	if err := s.posts.CreatePost(ctx, repost); err != nil {
		return nil, Internal("create repost", err)
	}
	if err := s.likes.AddReposter(ctx, original.ID, reposter.ID); err != nil {
		s.log.Warn("repost item written without reposter entry", zap.String("post", original.ID), zap.Error(err))
		return repost, Partial("add reposter", err)
	}

	s.dispatcher.Go(ctx, "notify repost", func(ctx context.Context) error {
		return s.notifier.NotifyRepost(ctx, reposter, original.Author.ID, original)
	})
	return repost, nil
}

// UndoRepost deletes every repost item of the pair, then removes the reposter
// from the original's reposter set. Repeating it is a no-op.
func (s *TimelineService) UndoRepost(ctx context.Context, originalID, reposterID string) error {
	if _, err := activeAccount(ctx, s.users, reposterID); err != nil {
		return err
	}
	reposts, err := s.posts.FindReposts(ctx, originalID, reposterID)
	if err != nil {
		return Internal("find reposts", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range reposts {
		g.Go(func() error { return s.posts.DeletePost(gctx, p.ID) })
	}
	if err := g.Wait(); err != nil {
		// some items may be gone; running again finishes the job
		return Partial("delete repost items", err)
	}

	err = s.likes.RemoveReposter(ctx, originalID, reposterID)
	switch {
	case err == nil:
		return nil
	case len(reposts) == 0 && isNotFound(err):
		return nil
	case len(reposts) == 0:
		return writeErr("remove reposter", err)
	default:
		return Partial("remove reposter", err)
	}
}

// DeletePost soft-deletes a post on behalf of its author.
func (s *TimelineService) DeletePost(ctx context.Context, postID, actorID string) error {
	if _, err := activeAccount(ctx, s.users, actorID); err != nil {
		return err
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return Internal("load post", err)
	}
	if post == nil {
		return New(ErrNotFound, "post not found")
	}
	if post.Author.ID != actorID {
		return ErrNotOwner
	}
	if post.Deleted {
		return nil
	}
	if err := s.posts.SoftDeletePost(ctx, postID, actorID); err != nil {
		return writeErr("delete post", err)
	}
	return nil
}

// WatchRootFeed streams RootFeed until the subscription is cancelled.
func (s *TimelineService) WatchRootFeed(ctx context.Context, followingIDs []string, selfID string, limit int, fn func([]*models.Post)) (*docstore.Subscription, error) {
	sub, err := s.posts.WatchFeed(ctx, s.feedAuthors(followingIDs, selfID), s.feedLimit(limit), fn)
	if err != nil {
		return nil, Internal("watch feed", err)
	}
	return sub, nil
}

// WatchAuthorFeed streams AuthorFeed until the subscription is cancelled.
func (s *TimelineService) WatchAuthorFeed(ctx context.Context, authorID string, fn func([]*models.Post)) (*docstore.Subscription, error) {
	sub, err := s.posts.WatchPostsByAuthor(ctx, authorID, fn)
	if err != nil {
		return nil, Internal("watch author feed", err)
	}
	return sub, nil
}

// WatchReplies streams Replies until the subscription is cancelled.
func (s *TimelineService) WatchReplies(ctx context.Context, parentID string, fn func([]*models.Post)) (*docstore.Subscription, error) {
	sub, err := s.posts.WatchReplies(ctx, parentID, fn)
	if err != nil {
		return nil, Internal("watch replies", err)
	}
	return sub, nil
}
