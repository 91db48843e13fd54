// Package services holds the social graph and feed consistency rules: every
// operation is an ordered sequence of single-document atomic writes, with the
// user-visible effect first and bookkeeping after.
package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/repositories"
)

// Defaults for Options.
const (
	DefaultFeedFollowCap = 10
	DefaultFeedLimit     = 50
	DefaultFanoutCap     = 50
	NotificationsLimit   = 60
	ReportsLimit         = 100
	AuditLogLimit        = 50
)

// Options tunes the engine limits.
type Options struct {
	// FeedFollowCap is how many followed accounts the root feed reads from.
	FeedFollowCap int
	// FeedLimit caps the root feed when the caller gives no limit.
	FeedLimit int
	// FanoutCap is how many followers are notified of a new post.
	FanoutCap int
	// Clock stamps new documents. Defaults to time.Now in UTC.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.FeedFollowCap <= 0 {
		o.FeedFollowCap = DefaultFeedFollowCap
	}
	if o.FeedFollowCap+1 > docstore.MaxInFilter {
		o.FeedFollowCap = docstore.MaxInFilter - 1
	}
	if o.FeedLimit <= 0 {
		o.FeedLimit = DefaultFeedLimit
	}
	if o.FanoutCap <= 0 {
		o.FanoutCap = DefaultFanoutCap
	}
	if o.FanoutCap > docstore.MaxBatchOps {
		o.FanoutCap = docstore.MaxBatchOps
	}
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	return o
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// activeAccount loads the acting account and refuses blocked ones.
func activeAccount(ctx context.Context, users repositories.UserRepository, id string) (*models.Account, error) {
	account, err := users.GetUserByID(ctx, id)
	if err != nil {
		return nil, Internal("load account", err)
	}
	if account == nil {
		return nil, New(ErrNotFound, "account not found")
	}
	if account.Blocked {
		return nil, ErrBlocked
	}
	return account, nil
}

// requireAdmin loads the acting account and refuses anything but an active admin.
func requireAdmin(ctx context.Context, users repositories.UserRepository, id string) (*models.Account, error) {
	account, err := activeAccount(ctx, users, id)
	if err != nil {
		return nil, err
	}
	if !account.IsAdmin() {
		return nil, ErrNotAdmin
	}
	return account, nil
}

func isNotFound(err error) bool { return errors.Is(err, docstore.ErrNotFound) }

// writeErr maps a failed first write. Nothing has been committed yet.
func writeErr(step string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return Wrap(ErrNotFound, step, err)
	}
	return Internal(step, err)
}
