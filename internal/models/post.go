package models

import (
	"time"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

// PostsCollection holds root posts, replies and reposts.
const PostsCollection = "posts"

// MaxPostLength is the longest body accepted, in characters.
const MaxPostLength = 280

// Post is a content item: a root post, a reply or a repost
type Post struct {
	ID          string         `json:"id"`
	Author      AuthorSnapshot `json:"author"`
	Body        string         `json:"body"`
	ImageRef    string         `json:"imageRef,omitempty"`
	LikerIDs    []string       `json:"likerIds"`
	ReposterIDs []string       `json:"reposterIds"`
	ParentID    *string        `json:"parentId"` // nil for root posts
	Deleted     bool           `json:"deleted"`
	DeletedBy   *string        `json:"deletedBy,omitempty"`
	ReportCount int64          `json:"reportCount"`
	CreatedAt   time.Time      `json:"createdAt"`

	IsRepost bool          `json:"isRepost"`
	Original *RepostedItem `json:"original,omitempty"`
}

// RepostedItem is the snapshot of the reposted content carried by a repost.
type RepostedItem struct {
	ID        string         `json:"id"`
	Author    AuthorSnapshot `json:"author"`
	Body      string         `json:"body"`
	ImageRef  string         `json:"imageRef,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// IsRoot reports whether the post has no parent.
func (p *Post) IsRoot() bool { return p.ParentID == nil }

// LikedBy reports whether id is in the liker set.
func (p *Post) LikedBy(id string) bool { return contains(p.LikerIDs, id) }

// RepostedBy reports whether id is in the reposter set.
func (p *Post) RepostedBy(id string) bool { return contains(p.ReposterIDs, id) }

// ToData converts the post to its stored form. parentId is always written,
// as null for root posts.
func (p *Post) ToData() docstore.Data {
	d := docstore.Data{
		"authorId":     p.Author.ID,
		"authorHandle": p.Author.Handle,
		"authorName":   p.Author.DisplayName,
		"authorAvatar": p.Author.AvatarRef,
		"body":         p.Body,
		"imageRef":     p.ImageRef,
		"likerIds":     nonNil(p.LikerIDs),
		"reposterIds":  nonNil(p.ReposterIDs),
		"parentId":     p.ParentID,
		"deleted":      p.Deleted,
		"deletedBy":    p.DeletedBy,
		"reportCount":  p.ReportCount,
		"createdAt":    p.CreatedAt,
		"isRepost":     p.IsRepost,
	}
	if p.Original != nil {
		d["originalId"] = p.Original.ID
		d["originalAuthorId"] = p.Original.Author.ID
		d["originalAuthorHandle"] = p.Original.Author.Handle
		d["originalAuthorName"] = p.Original.Author.DisplayName
		d["originalAuthorAvatar"] = p.Original.Author.AvatarRef
		d["originalBody"] = p.Original.Body
		d["originalImageRef"] = p.Original.ImageRef
		d["originalCreatedAt"] = p.Original.CreatedAt
	}
	return d
}

// PostFromData builds a post from a stored document.
func PostFromData(id string, d docstore.Data) *Post {
	p := &Post{
		ID: id,
		Author: AuthorSnapshot{
			ID:          d.String("authorId"),
			Handle:      d.String("authorHandle"),
			DisplayName: d.String("authorName"),
			AvatarRef:   d.String("authorAvatar"),
		},
		Body:        d.String("body"),
		ImageRef:    d.String("imageRef"),
		LikerIDs:    d.Strings("likerIds"),
		ReposterIDs: d.Strings("reposterIds"),
		ParentID:    d.OptString("parentId"),
		Deleted:     d.Bool("deleted"),
		DeletedBy:   d.OptString("deletedBy"),
		ReportCount: d.Int("reportCount"),
		CreatedAt:   d.Time("createdAt"),
		IsRepost:    d.Bool("isRepost"),
	}
	if p.IsRepost {
		p.Original = &RepostedItem{
			ID: d.String("originalId"),
			Author: AuthorSnapshot{
				ID:          d.String("originalAuthorId"),
				Handle:      d.String("originalAuthorHandle"),
				DisplayName: d.String("originalAuthorName"),
				AvatarRef:   d.String("originalAuthorAvatar"),
			},
			Body:      d.String("originalBody"),
			ImageRef:  d.String("originalImageRef"),
			CreatedAt: d.Time("originalCreatedAt"),
		}
	}
	return p
}

// PostsFromDocs converts query results.
func PostsFromDocs(docs []docstore.Doc) []*Post {
	posts := make([]*Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, PostFromData(doc.ID, doc.Data))
	}
	return posts
}

// CreatePostRequest defines the request body for creating a new post or reply
type CreatePostRequest struct {
	Body     string  `json:"body"`
	ImageRef string  `json:"imageRef,omitempty" validate:"omitempty,url"`
	ParentID *string `json:"parentId,omitempty"`
}
