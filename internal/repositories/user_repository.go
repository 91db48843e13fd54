package repositories

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
)

// lookupChunk is the size of one id lookup query.
const lookupChunk = 10

// UserRepository defines the interface for account data operations
type UserRepository interface {
	CreateUser(ctx context.Context, account *models.Account) error
	GetUserByID(ctx context.Context, id string) (*models.Account, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*models.Account, error)
	GetUsers(ctx context.Context, limit int) ([]*models.Account, error)
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetRole(ctx context.Context, id, role string) error
	IncrementPostCount(ctx context.Context, id string, delta int64) error
	SearchUsers(ctx context.Context, term string, limit int) ([]*models.Account, error)
	WatchUser(ctx context.Context, id string, fn func(*models.Account)) (*docstore.Subscription, error)
}

// DocUserRepository implements UserRepository on a document store
type DocUserRepository struct {
	store docstore.Store
}

// NewDocUserRepository creates a new DocUserRepository
func NewDocUserRepository(store docstore.Store) *DocUserRepository {
	return &DocUserRepository{store: store}
}

// CreateUser writes a new account document keyed by the account id
func (r *DocUserRepository) CreateUser(ctx context.Context, account *models.Account) error {
	return r.store.Create(ctx, models.AccountsCollection, account.ID, account.ToData())
}

// GetUserByID retrieves an account by id. A missing account is nil, nil.
func (r *DocUserRepository) GetUserByID(ctx context.Context, id string) (*models.Account, error) {
	data, err := r.store.Get(ctx, models.AccountsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return models.AccountFromData(id, data), nil
}

// GetUsersByIDs resolves ids to accounts in chunks of ten, in the order given.
// Unknown ids are skipped.
func (r *DocUserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]*models.Account, error) {
	chunks := make([][]*models.Account, (len(ids)+lookupChunk-1)/lookupChunk)
	g, gctx := errgroup.WithContext(ctx)
	for i := range chunks {
		start := i * lookupChunk
		end := min(start+lookupChunk, len(ids))
		g.Go(func() error {
			docs, err := r.store.Query(gctx, docstore.Query{
				Collection: models.AccountsCollection,
				Filters:    []docstore.Filter{docstore.In("uid", ids[start:end])},
			})
			if err != nil {
				return err
			}
			chunks[i] = models.AccountsFromDocs(docs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Account, len(ids))
	for _, chunk := range chunks {
		for _, a := range chunk {
			byID[a.ID] = a
		}
	}
	accounts := make([]*models.Account, 0, len(byID))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

// GetUsers lists accounts, newest first
func (r *DocUserRepository) GetUsers(ctx context.Context, limit int) ([]*models.Account, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: models.AccountsCollection,
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return models.AccountsFromDocs(docs), nil
}

// UpdateProfile merges only the fields present in the patch
func (r *DocUserRepository) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) error {
	var updates []docstore.Update
	if patch.DisplayName != nil {
		updates = append(updates, docstore.Set("displayName", *patch.DisplayName))
	}
	if patch.Bio != nil {
		updates = append(updates, docstore.Set("bio", *patch.Bio))
	}
	if patch.AvatarRef != nil {
		updates = append(updates, docstore.Set("avatarRef", *patch.AvatarRef))
	}
	if len(updates) == 0 {
		return nil
	}
	return r.store.Update(ctx, models.AccountsCollection, id, updates...)
}

// SetBlocked sets the blocked flag of an account
func (r *DocUserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.store.Update(ctx, models.AccountsCollection, id, docstore.Set("blocked", blocked))
}

// SetRole sets the role of an account
func (r *DocUserRepository) SetRole(ctx context.Context, id, role string) error {
	return r.store.Update(ctx, models.AccountsCollection, id, docstore.Set("role", role))
}

// IncrementPostCount adds delta to the account's post counter
func (r *DocUserRepository) IncrementPostCount(ctx context.Context, id string, delta int64) error {
	return r.store.Update(ctx, models.AccountsCollection, id, docstore.Increment("postCount", delta))
}

// SearchUsers runs a prefix search on the handle and on the display name and
// merges both result sets, handle matches first, without duplicates
func (r *DocUserRepository) SearchUsers(ctx context.Context, term string, limit int) ([]*models.Account, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*models.Account{}, nil
	}
	byHandle, err := r.prefix(ctx, "handleLower", strings.ToLower(term), limit)
	if err != nil {
		return nil, err
	}
	byName, err := r.prefix(ctx, "displayName", term, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	merged := make([]*models.Account, 0, len(byHandle)+len(byName))
	for _, a := range append(byHandle, byName...) {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		merged = append(merged, a)
	}
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (r *DocUserRepository) prefix(ctx context.Context, field, prefix string, limit int) ([]*models.Account, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: models.AccountsCollection,
		Filters:    []docstore.Filter{docstore.Gte(field, prefix), docstore.Lte(field, prefix+"\uf8ff")},
		OrderBy:    field,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return models.AccountsFromDocs(docs), nil
}

// WatchUser streams one account document. fn receives nil while it does not exist.
func (r *DocUserRepository) WatchUser(ctx context.Context, id string, fn func(*models.Account)) (*docstore.Subscription, error) {
	return r.store.SubscribeDoc(ctx, models.AccountsCollection, id, func(d docstore.Data) {
		if d == nil {
			fn(nil)
			return
		}
		fn(models.AccountFromData(id, d))
	})
}
