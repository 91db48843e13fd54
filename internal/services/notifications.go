package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/repositories"
)

// Notifier is the fan-out surface the timeline and engagement services trigger.
type Notifier interface {
	NotifyLike(ctx context.Context, actor *models.Account, recipientID string, content *models.Post) error
	NotifyNewPost(ctx context.Context, author *models.Account, followerIDs []string, content *models.Post) error
	NotifyRepost(ctx context.Context, actor *models.Account, recipientID string, content *models.Post) error
}

// NotificationService writes and reads notifications
type NotificationService struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	log           *zap.Logger
	opts          Options
}

var _ Notifier = (*NotificationService)(nil)

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications repositories.NotificationRepository, users repositories.UserRepository, log *zap.Logger, opts Options) *NotificationService {
	return &NotificationService{notifications: notifications, users: users, log: orNop(log), opts: opts.withDefaults()}
}

// NotifyLike tells the content owner about a like. Self-likes are silent and
// an existing like notification for the same actor and content is not
// repeated. The duplicate check is a read before the write, so two concurrent
// calls may both write.
func (s *NotificationService) NotifyLike(ctx context.Context, actor *models.Account, recipientID string, content *models.Post) error {
	if actor.ID == recipientID {
		return nil
	}
	exists, err := s.notifications.HasLikeNotification(ctx, actor.ID, recipientID, content.ID)
	if err != nil {
		return Internal("check like notification", err)
	}
	if exists {
		return nil
	}
	n := s.build(actor, recipientID, models.KindLike, content, models.LikePreviewLength)
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return Internal("create like notification", err)
	}
	return nil
}

// NotifyNewPost tells the first FanoutCap followers about a new root post in
// one all-or-nothing batch.
func (s *NotificationService) NotifyNewPost(ctx context.Context, author *models.Account, followerIDs []string, content *models.Post) error {
	if len(followerIDs) == 0 {
		return nil
	}
	if len(followerIDs) > s.opts.FanoutCap {
		followerIDs = followerIDs[:s.opts.FanoutCap]
	}
	batch := make([]*models.Notification, 0, len(followerIDs))
	for _, id := range followerIDs {
		if id == author.ID {
			continue
		}
		batch = append(batch, s.build(author, id, models.KindNewPost, content, models.NewPostPreviewLength))
	}
	if len(batch) == 0 {
		return nil
	}
	if err := s.notifications.CreateNotifications(ctx, batch); err != nil {
		return Internal("fan out new post", err)
	}
	s.log.Debug("new post fanned out", zap.String("post", content.ID), zap.Int("recipients", len(batch)))
	return nil
}

// NotifyRepost tells the original author about a repost. Self-reposts are silent.
func (s *NotificationService) NotifyRepost(ctx context.Context, actor *models.Account, recipientID string, content *models.Post) error {
	if actor.ID == recipientID {
		return nil
	}
	n := s.build(actor, recipientID, models.KindRepost, content, models.LikePreviewLength)
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return Internal("create repost notification", err)
	}
	return nil
}

func (s *NotificationService) build(actor *models.Account, recipientID, kind string, content *models.Post, previewLen int) *models.Notification {
	return &models.Notification{
		RecipientID:  recipientID,
		Actor:        actor.Snapshot(),
		Kind:         kind,
		ContentID:    content.ID,
		Preview:      models.Truncate(content.Body, previewLen),
		PreviewImage: content.ImageRef,
		CreatedAt:    s.opts.Clock(),
	}
}

// List returns the latest notifications of a user, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	ns, err := s.notifications.GetByRecipientID(ctx, userID, NotificationsLimit)
	if err != nil {
		return nil, Internal("list notifications", err)
	}
	return ns, nil
}

// UnreadCount counts unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.notifications.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, Internal("count unread", err)
	}
	return n, nil
}

// MarkRead sets the read flag of one of the user's notifications.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := activeAccount(ctx, s.users, userID); err != nil {
		return err
	}
	n, err := s.notifications.GetNotificationByID(ctx, id)
	if err != nil {
		return Internal("load notification", err)
	}
	if n == nil {
		return New(ErrNotFound, "notification not found")
	}
	if n.RecipientID != userID {
		return ErrNotOwner
	}
	if err := s.notifications.MarkAsRead(ctx, id); err != nil {
		return writeErr("mark read", err)
	}
	return nil
}

// MarkAllRead sets the read flag of every unread notification of a user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := activeAccount(ctx, s.users, userID); err != nil {
		return err
	}
	if err := s.notifications.MarkAllAsRead(ctx, userID); err != nil {
		return Internal("mark all read", err)
	}
	return nil
}

// Watch streams List until the subscription is cancelled.
func (s *NotificationService) Watch(ctx context.Context, userID string, fn func([]*models.Notification)) (*docstore.Subscription, error) {
	sub, err := s.notifications.WatchRecipient(ctx, userID, NotificationsLimit, fn)
	if err != nil {
		return nil, Internal("watch notifications", err)
	}
	return sub, nil
}
