package models

import (
	"time"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

// NotificationsCollection holds notification documents.
const NotificationsCollection = "notifications"

// Notification kinds
const (
	KindLike    = "like"
	KindNewPost = "newPost"
	KindRepost  = "repost"
)

// Preview lengths, in characters.
const (
	LikePreviewLength    = 100
	NewPostPreviewLength = 120
)

// Notification tells a recipient that an actor engaged with content. Only Read ever changes.
type Notification struct {
	ID           string         `json:"id"`
	RecipientID  string         `json:"recipientId"`
	Actor        AuthorSnapshot `json:"actor"`
	Kind         string         `json:"kind"` // like, newPost, repost
	ContentID    string         `json:"contentId"`
	Preview      string         `json:"preview"`
	PreviewImage string         `json:"previewImage,omitempty"`
	Read         bool           `json:"read"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// ToData converts the notification to its stored form.
func (n *Notification) ToData() docstore.Data {
	return docstore.Data{
		"recipientId":  n.RecipientID,
		"actorId":      n.Actor.ID,
		"actorHandle":  n.Actor.Handle,
		"actorName":    n.Actor.DisplayName,
		"actorAvatar":  n.Actor.AvatarRef,
		"kind":         n.Kind,
		"contentId":    n.ContentID,
		"preview":      n.Preview,
		"previewImage": n.PreviewImage,
		"read":         n.Read,
		"createdAt":    n.CreatedAt,
	}
}

// NotificationFromData builds a notification from a stored document.
func NotificationFromData(id string, d docstore.Data) *Notification {
	return &Notification{
		ID:          id,
		RecipientID: d.String("recipientId"),
		Actor: AuthorSnapshot{
			ID:          d.String("actorId"),
			Handle:      d.String("actorHandle"),
			DisplayName: d.String("actorName"),
			AvatarRef:   d.String("actorAvatar"),
		},
		Kind:         d.String("kind"),
		ContentID:    d.String("contentId"),
		Preview:      d.String("preview"),
		PreviewImage: d.String("previewImage"),
		Read:         d.Bool("read"),
		CreatedAt:    d.Time("createdAt"),
	}
}

// NotificationsFromDocs converts query results.
func NotificationsFromDocs(docs []docstore.Doc) []*Notification {
	out := make([]*Notification, 0, len(docs))
	for _, doc := range docs {
		out = append(out, NotificationFromData(doc.ID, doc.Data))
	}
	return out
}

// Truncate shortens s to at most n characters.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
