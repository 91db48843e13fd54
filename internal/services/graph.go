package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/repositories"
)

// GraphService maintains follow edges. An edge lives redundantly on both
// accounts; each side is checked for membership before it is written, so
// re-running an operation after a partial failure repairs the missing side
// without double counting.
type GraphService struct {
	users   repositories.UserRepository
	follows repositories.FollowRepository
	log     *zap.Logger
}

// NewGraphService creates a new GraphService
func NewGraphService(users repositories.UserRepository, follows repositories.FollowRepository, log *zap.Logger) *GraphService {
	return &GraphService{users: users, follows: follows, log: orNop(log)}
}

func (s *GraphService) pair(ctx context.Context, actorID, otherID string) (*models.Account, *models.Account, error) {
	actor, err := activeAccount(ctx, s.users, actorID)
	if err != nil {
		return nil, nil, err
	}
	other, err := s.users.GetUserByID(ctx, otherID)
	if err != nil {
		return nil, nil, Internal("load account", err)
	}
	if other == nil {
		return nil, nil, New(ErrNotFound, "account not found")
	}
	return actor, other, nil
}

// Follow makes a follow b: b joins a's following set, then a joins b's follower set.
func (s *GraphService) Follow(ctx context.Context, a, b string) error {
	if a == b {
		return ErrSelfFollow
	}
	follower, target, err := s.pair(ctx, a, b)
	if err != nil {
		return err
	}
	committed := false
	if !follower.Follows(b) {
		if err := s.follows.AddFollowing(ctx, a, b); err != nil {
			return writeErr("add following", err)
		}
		committed = true
	}
	if !target.FollowedBy(a) {
		if err := s.follows.AddFollower(ctx, b, a); err != nil {
			return s.secondSide("add follower", committed, a, b, err)
		}
	}
	return nil
}

// Unfollow is the exact inverse of Follow.
func (s *GraphService) Unfollow(ctx context.Context, a, b string) error {
	if a == b {
		return ErrSelfFollow
	}
	follower, target, err := s.pair(ctx, a, b)
	if err != nil {
		return err
	}
	committed := false
	if follower.Follows(b) {
		if err := s.follows.RemoveFollowing(ctx, a, b); err != nil {
			return writeErr("remove following", err)
		}
		committed = true
	}
	if target.FollowedBy(a) {
		if err := s.follows.RemoveFollower(ctx, b, a); err != nil {
			return s.secondSide("remove follower", committed, a, b, err)
		}
	}
	return nil
}

// RemoveFollower drops follower from a's followers. The end state equals
// Unfollow(follower, a); only the initiating side differs.
func (s *GraphService) RemoveFollower(ctx context.Context, a, follower string) error {
	if a == follower {
		return ErrSelfFollow
	}
	owner, other, err := s.pair(ctx, a, follower)
	if err != nil {
		return err
	}
	committed := false
	if owner.FollowedBy(follower) {
		if err := s.follows.RemoveFollower(ctx, a, follower); err != nil {
			return writeErr("remove follower", err)
		}
		committed = true
	}
	if other.Follows(a) {
		if err := s.follows.RemoveFollowing(ctx, follower, a); err != nil {
			return s.secondSide("remove following", committed, follower, a, err)
		}
	}
	return nil
}

func (s *GraphService) secondSide(step string, committed bool, a, b string, err error) error {
	if !committed {
		return writeErr(step, err)
	}
	s.log.Warn("follow edge left one-sided", zap.String("step", step),
		zap.String("from", a), zap.String("to", b), zap.Error(err))
	return Partial(step, err)
}

// Followers resolves the follower set to accounts, most recent first.
func (s *GraphService) Followers(ctx context.Context, id string) ([]*models.Account, error) {
	return s.resolve(ctx, id, func(a *models.Account) []string { return a.FollowerIDs })
}

// Following resolves the following set to accounts, most recent first.
func (s *GraphService) Following(ctx context.Context, id string) ([]*models.Account, error) {
	return s.resolve(ctx, id, func(a *models.Account) []string { return a.FollowingIDs })
}

func (s *GraphService) resolve(ctx context.Context, id string, ids func(*models.Account) []string) ([]*models.Account, error) {
	account, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, Internal("load account", err)
	}
	if account == nil {
		return nil, New(ErrNotFound, "account not found")
	}
	set := ids(account)
	reversed := make([]string, len(set))
	for i, v := range set {
		reversed[len(set)-1-i] = v
	}
	accounts, err := s.users.GetUsersByIDs(ctx, reversed)
	if err != nil {
		return nil, Internal("resolve accounts", err)
	}
	return accounts, nil
}
