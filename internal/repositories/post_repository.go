package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetFeed(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error)
	GetPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)
	GetReplies(ctx context.Context, parentID string) ([]*models.Post, error)
	GetRecentPosts(ctx context.Context, limit int) ([]*models.Post, error)
	GetAllPosts(ctx context.Context, limit int) ([]*models.Post, error)
	FindReposts(ctx context.Context, originalID, reposterID string) ([]*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	SoftDeletePost(ctx context.Context, id, actorID string) error
	IncrementReportCount(ctx context.Context, id string) error
	WatchFeed(ctx context.Context, authorIDs []string, limit int, fn func([]*models.Post)) (*docstore.Subscription, error)
	WatchPostsByAuthor(ctx context.Context, authorID string, fn func([]*models.Post)) (*docstore.Subscription, error)
	WatchReplies(ctx context.Context, parentID string, fn func([]*models.Post)) (*docstore.Subscription, error)
}

// DocPostRepository implements PostRepository on a document store
type DocPostRepository struct {
	store docstore.Store
}

// NewDocPostRepository creates a new DocPostRepository
func NewDocPostRepository(store docstore.Store) *DocPostRepository {
	return &DocPostRepository{store: store}
}

// CreatePost writes a new post. The id and creation time are filled in when empty.
func (r *DocPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = newID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now()
	}
	return r.store.Create(ctx, models.PostsCollection, post.ID, post.ToData())
}

// GetPostByID retrieves a post by id. A missing post is nil, nil.
func (r *DocPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	data, err := r.store.Get(ctx, models.PostsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return models.PostFromData(id, data), nil
}

func feedQuery(authorIDs []string, limit int) docstore.Query {
	return docstore.Query{
		Collection: models.PostsCollection,
		Filters: []docstore.Filter{
			docstore.In("authorId", authorIDs),
			docstore.Eq("deleted", false),
			docstore.Eq("parentId", nil),
		},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	}
}

func authorQuery(authorID string) docstore.Query {
	return docstore.Query{
		Collection: models.PostsCollection,
		Filters: []docstore.Filter{
			docstore.Eq("authorId", authorID),
			docstore.Eq("deleted", false),
			docstore.Eq("parentId", nil),
		},
		OrderBy:    "createdAt",
		Descending: true,
	}
}

func repliesQuery(parentID string) docstore.Query {
	return docstore.Query{
		Collection: models.PostsCollection,
		Filters: []docstore.Filter{
			docstore.Eq("parentId", parentID),
			docstore.Eq("deleted", false),
		},
		OrderBy: "createdAt",
	}
}

func (r *DocPostRepository) list(ctx context.Context, q docstore.Query) ([]*models.Post, error) {
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return models.PostsFromDocs(docs), nil
}

// GetFeed retrieves non-deleted root posts by any of authorIDs, newest first
func (r *DocPostRepository) GetFeed(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error) {
	if len(authorIDs) == 0 {
		return []*models.Post{}, nil
	}
	return r.list(ctx, feedQuery(authorIDs, limit))
}

// GetPostsByAuthor retrieves every non-deleted root post of one author, newest first
func (r *DocPostRepository) GetPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	return r.list(ctx, authorQuery(authorID))
}

// GetReplies retrieves the non-deleted replies of a post, oldest first
func (r *DocPostRepository) GetReplies(ctx context.Context, parentID string) ([]*models.Post, error) {
	return r.list(ctx, repliesQuery(parentID))
}

// GetRecentPosts retrieves the latest non-deleted root posts
func (r *DocPostRepository) GetRecentPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	return r.list(ctx, docstore.Query{
		Collection: models.PostsCollection,
		Filters:    []docstore.Filter{docstore.Eq("deleted", false), docstore.Eq("parentId", nil)},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	})
}

// GetAllPosts retrieves posts of every kind, deleted ones included, newest first
func (r *DocPostRepository) GetAllPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	return r.list(ctx, docstore.Query{
		Collection: models.PostsCollection,
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	})
}

// FindReposts retrieves every repost of originalID made by reposterID
func (r *DocPostRepository) FindReposts(ctx context.Context, originalID, reposterID string) ([]*models.Post, error) {
	return r.list(ctx, docstore.Query{
		Collection: models.PostsCollection,
		Filters: []docstore.Filter{
			docstore.Eq("isRepost", true),
			docstore.Eq("originalId", originalID),
			docstore.Eq("authorId", reposterID),
		},
	})
}

// DeletePost removes a post document
func (r *DocPostRepository) DeletePost(ctx context.Context, id string) error {
	return r.store.Delete(ctx, models.PostsCollection, id)
}

// SoftDeletePost marks a post deleted by actorID
func (r *DocPostRepository) SoftDeletePost(ctx context.Context, id, actorID string) error {
	return r.store.Update(ctx, models.PostsCollection, id,
		docstore.Set("deleted", true), docstore.Set("deletedBy", actorID))
}

// IncrementReportCount bumps the report counter of a post
func (r *DocPostRepository) IncrementReportCount(ctx context.Context, id string) error {
	return r.store.Update(ctx, models.PostsCollection, id, docstore.Increment("reportCount", 1))
}

func (r *DocPostRepository) watch(ctx context.Context, q docstore.Query, fn func([]*models.Post)) (*docstore.Subscription, error) {
	return r.store.Subscribe(ctx, q, func(docs []docstore.Doc) { fn(models.PostsFromDocs(docs)) })
}

// WatchFeed streams GetFeed
func (r *DocPostRepository) WatchFeed(ctx context.Context, authorIDs []string, limit int, fn func([]*models.Post)) (*docstore.Subscription, error) {
	return r.watch(ctx, feedQuery(authorIDs, limit), fn)
}

// WatchPostsByAuthor streams GetPostsByAuthor
func (r *DocPostRepository) WatchPostsByAuthor(ctx context.Context, authorID string, fn func([]*models.Post)) (*docstore.Subscription, error) {
	return r.watch(ctx, authorQuery(authorID), fn)
}

// WatchReplies streams GetReplies
func (r *DocPostRepository) WatchReplies(ctx context.Context, parentID string, fn func([]*models.Post)) (*docstore.Subscription, error) {
	return r.watch(ctx, repliesQuery(parentID), fn)
}
