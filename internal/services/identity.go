package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/repositories"
)

// HandlePattern is the accepted handle format.
var HandlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// IdentityProvider owns credentials. It returns the stable account id.
type IdentityProvider interface {
	CreateCredential(ctx context.Context, email, password, displayName string) (string, error)
}

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Handle      string
	DisplayName string
	Email       string
	Password    string
}

// IdentityService manages accounts, handles and profile state
type IdentityService struct {
	users    repositories.UserRepository
	handles  repositories.HandleRepository
	actions  repositories.AdminActionRepository
	provider IdentityProvider
	log      *zap.Logger
	opts     Options
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(users repositories.UserRepository, handles repositories.HandleRepository, actions repositories.AdminActionRepository, provider IdentityProvider, log *zap.Logger, opts Options) *IdentityService {
	return &IdentityService{users: users, handles: handles, actions: actions, provider: provider, log: orNop(log), opts: opts.withDefaults()}
}

// Register opens an account. The account document is written before the
// handle index entry; if the index write fails the account is left orphaned
// and a partial failure is returned.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (string, error) {
	if !HandlePattern.MatchString(in.Handle) {
		return "", ErrHandleInvalid
	}
	owner, err := s.handles.ResolveHandle(ctx, in.Handle)
	if err != nil {
		return "", Internal("resolve handle", err)
	}
	if owner != "" {
		return "", ErrHandleTaken
	}

	uid, err := s.provider.CreateCredential(ctx, in.Email, in.Password, in.DisplayName)
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return "", svcErr
		}
		return "", Internal("create credential", err)
	}

	account := &models.Account{
		ID:           uid,
		Handle:       in.Handle,
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		AvatarRef:    models.DefaultAvatarURL + in.Handle,
		Role:         models.RoleMember,
		FollowerIDs:  []string{},
		FollowingIDs: []string{},
		CreatedAt:    s.opts.Clock(),
	}
	if err := s.users.CreateUser(ctx, account); err != nil {
		return "", Internal("create account", err)
	}
	if err := s.handles.ReserveHandle(ctx, in.Handle, uid); err != nil {
		s.log.Warn("orphan account: handle index write failed",
			zap.String("uid", uid), zap.String("handle", in.Handle), zap.Error(err))
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return uid, Partial("reserve handle", ErrHandleTaken)
		}
		return uid, Partial("reserve handle", err)
	}
	s.log.Info("account registered", zap.String("uid", uid), zap.String("handle", in.Handle))
	return uid, nil
}

// LookupByHandle resolves a handle in any letter case. Unknown handles are nil, nil.
func (s *IdentityService) LookupByHandle(ctx context.Context, handle string) (*models.Account, error) {
	uid, err := s.handles.ResolveHandle(ctx, handle)
	if err != nil {
		return nil, Internal("resolve handle", err)
	}
	if uid == "" {
		return nil, nil
	}
	return s.Get(ctx, uid)
}

// Get returns one account, nil when it does not exist.
func (s *IdentityService) Get(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, Internal("load account", err)
	}
	return account, nil
}

// UpdateProfile merges the provided fields into the profile. Posts and
// notifications keep the snapshot taken when they were written.
func (s *IdentityService) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) error {
	if _, err := activeAccount(ctx, s.users, id); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	if err := s.users.UpdateProfile(ctx, id, patch); err != nil {
		return writeErr("update profile", err)
	}
	return nil
}

// CheckLogin refuses missing and blocked accounts. Sign-in and uploads,
// which write nothing through the services, both go through it.
func (s *IdentityService) CheckLogin(ctx context.Context, id string) (*models.Account, error) {
	return activeAccount(ctx, s.users, id)
}

// SetBlocked blocks or unblocks an account, then appends the audit record.
func (s *IdentityService) SetBlocked(ctx context.Context, adminID, targetID string, blocked bool) error {
	admin, err := requireAdmin(ctx, s.users, adminID)
	if err != nil {
		return err
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return Internal("load account", err)
	}
	if target == nil {
		return New(ErrNotFound, "account not found")
	}
	if err := s.users.SetBlocked(ctx, targetID, blocked); err != nil {
		return writeErr("set blocked", err)
	}
	kind := models.ActionBlock
	if !blocked {
		kind = models.ActionUnblock
	}
	return s.audit(ctx, admin, kind, target)
}

// SetRole promotes or demotes an account, then appends the audit record.
func (s *IdentityService) SetRole(ctx context.Context, adminID, targetID, role string) error {
	if role != models.RoleMember && role != models.RoleAdmin {
		return New(ErrInvalidRole, "role must be member or admin")
	}
	admin, err := requireAdmin(ctx, s.users, adminID)
	if err != nil {
		return err
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return Internal("load account", err)
	}
	if target == nil {
		return New(ErrNotFound, "account not found")
	}
	if err := s.users.SetRole(ctx, targetID, role); err != nil {
		return writeErr("set role", err)
	}
	kind := models.ActionPromote
	if role == models.RoleMember {
		kind = models.ActionDemote
	}
	return s.audit(ctx, admin, kind, target)
}

func (s *IdentityService) audit(ctx context.Context, admin *models.Account, kind string, target *models.Account) error {
	err := s.actions.CreateAction(ctx, &models.AdminAction{
		AdminID:           admin.ID,
		AdminHandle:       admin.Handle,
		ActionKind:        kind,
		TargetType:        models.TargetUser,
		TargetID:          target.ID,
		TargetDescription: "@" + target.Handle,
		CreatedAt:         s.opts.Clock(),
	})
	if err != nil {
		s.log.Warn("audit record lost", zap.String("action", kind), zap.String("target", target.ID), zap.Error(err))
		return Partial("append audit record", err)
	}
	return nil
}

// Search runs a prefix search on handles and display names.
func (s *IdentityService) Search(ctx context.Context, term string, limit int) ([]*models.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	accounts, err := s.users.SearchUsers(ctx, strings.TrimPrefix(term, "@"), limit)
	if err != nil {
		return nil, Internal("search accounts", err)
	}
	return accounts, nil
}

// ListAccounts lists accounts, newest first.
func (s *IdentityService) ListAccounts(ctx context.Context, limit int) ([]*models.Account, error) {
	accounts, err := s.users.GetUsers(ctx, limit)
	if err != nil {
		return nil, Internal("list accounts", err)
	}
	return accounts, nil
}

// WatchAccount streams one account until the subscription is cancelled.
func (s *IdentityService) WatchAccount(ctx context.Context, id string, fn func(*models.Account)) (*docstore.Subscription, error) {
	sub, err := s.users.WatchUser(ctx, id, fn)
	if err != nil {
		return nil, Internal("watch account", err)
	}
	return sub, nil
}
