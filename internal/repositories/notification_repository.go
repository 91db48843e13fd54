package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateNotifications(ctx context.Context, ns []*models.Notification) error
	GetNotificationByID(ctx context.Context, id string) (*models.Notification, error)
	HasLikeNotification(ctx context.Context, actorID, recipientID, contentID string) (bool, error)
	GetByRecipientID(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)
	GetUnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context, recipientID string) error
	WatchRecipient(ctx context.Context, recipientID string, limit int, fn func([]*models.Notification)) (*docstore.Subscription, error)
}

// DocNotificationRepository implements NotificationRepository on a document store
type DocNotificationRepository struct {
	store docstore.Store
}

// NewDocNotificationRepository creates a new DocNotificationRepository
func NewDocNotificationRepository(store docstore.Store) *DocNotificationRepository {
	return &DocNotificationRepository{store: store}
}

func prepare(n *models.Notification) {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
}

// CreateNotification writes a single notification
func (r *DocNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	prepare(n)
	return r.store.Create(ctx, models.NotificationsCollection, n.ID, n.ToData())
}

// CreateNotifications writes every notification in one all-or-nothing batch
func (r *DocNotificationRepository) CreateNotifications(ctx context.Context, ns []*models.Notification) error {
	ops := make([]docstore.BatchOp, 0, len(ns))
	for _, n := range ns {
		prepare(n)
		ops = append(ops, docstore.CreateOp(models.NotificationsCollection, n.ID, n.ToData()))
	}
	return r.store.Batch(ctx, ops)
}

// GetNotificationByID retrieves one notification. A missing one is nil, nil.
func (r *DocNotificationRepository) GetNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	data, err := r.store.Get(ctx, models.NotificationsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return models.NotificationFromData(id, data), nil
}

// HasLikeNotification reports whether a like notification already exists for
// the (actor, recipient, content) triple
func (r *DocNotificationRepository) HasLikeNotification(ctx context.Context, actorID, recipientID, contentID string) (bool, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: models.NotificationsCollection,
		Filters: []docstore.Filter{
			docstore.Eq("recipientId", recipientID),
			docstore.Eq("actorId", actorID),
			docstore.Eq("kind", models.KindLike),
			docstore.Eq("contentId", contentID),
		},
		Limit: 1,
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func recipientQuery(recipientID string, limit int) docstore.Query {
	return docstore.Query{
		Collection: models.NotificationsCollection,
		Filters:    []docstore.Filter{docstore.Eq("recipientId", recipientID)},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	}
}

// GetByRecipientID lists a recipient's notifications, newest first
func (r *DocNotificationRepository) GetByRecipientID(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	docs, err := r.store.Query(ctx, recipientQuery(recipientID, limit))
	if err != nil {
		return nil, err
	}
	return models.NotificationsFromDocs(docs), nil
}

func (r *DocNotificationRepository) unread(ctx context.Context, recipientID string) ([]docstore.Doc, error) {
	return r.store.Query(ctx, docstore.Query{
		Collection: models.NotificationsCollection,
		Filters:    []docstore.Filter{docstore.Eq("recipientId", recipientID), docstore.Eq("read", false)},
	})
}

// GetUnreadCount counts a recipient's unread notifications
func (r *DocNotificationRepository) GetUnreadCount(ctx context.Context, recipientID string) (int, error) {
	docs, err := r.unread(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// MarkAsRead flips the read flag of one notification
func (r *DocNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	return r.store.Update(ctx, models.NotificationsCollection, id, docstore.Set("read", true))
}

// MarkAllAsRead flips the read flag of every unread notification of a
// recipient, in batches of at most docstore.MaxBatchOps
func (r *DocNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) error {
	docs, err := r.unread(ctx, recipientID)
	if err != nil {
		return err
	}
	for start := 0; start < len(docs); start += docstore.MaxBatchOps {
		end := min(start+docstore.MaxBatchOps, len(docs))
		ops := make([]docstore.BatchOp, 0, end-start)
		for _, doc := range docs[start:end] {
			ops = append(ops, docstore.UpdateOp(models.NotificationsCollection, doc.ID, docstore.Set("read", true)))
		}
		if err := r.store.Batch(ctx, ops); err != nil {
			return err
		}
	}
	return nil
}

// WatchRecipient streams GetByRecipientID
func (r *DocNotificationRepository) WatchRecipient(ctx context.Context, recipientID string, limit int, fn func([]*models.Notification)) (*docstore.Subscription, error) {
	return r.store.Subscribe(ctx, recipientQuery(recipientID, limit), func(docs []docstore.Doc) {
		fn(models.NotificationsFromDocs(docs))
	})
}
