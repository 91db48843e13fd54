package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
)

// HandleRepository defines the interface for the handle uniqueness index
type HandleRepository interface {
	ReserveHandle(ctx context.Context, handle, accountID string) error
	ResolveHandle(ctx context.Context, handle string) (string, error)
}

// DocHandleRepository implements HandleRepository on a document store. Entries
// are keyed by the lowercased handle.
type DocHandleRepository struct {
	store docstore.Store
}

// NewDocHandleRepository creates a new DocHandleRepository
func NewDocHandleRepository(store docstore.Store) *DocHandleRepository {
	return &DocHandleRepository{store: store}
}

// ReserveHandle creates the index entry. It fails with docstore.ErrAlreadyExists
// when the handle is taken in any letter case.
func (r *DocHandleRepository) ReserveHandle(ctx context.Context, handle, accountID string) error {
	entry := &models.HandleIndex{Handle: strings.ToLower(handle), AccountID: accountID, CreatedAt: now()}
	return r.store.Create(ctx, models.HandlesCollection, entry.Handle, entry.ToData())
}

// ResolveHandle returns the account id owning handle, or "" when unknown
func (r *DocHandleRepository) ResolveHandle(ctx context.Context, handle string) (string, error) {
	key := strings.ToLower(handle)
	data, err := r.store.Get(ctx, models.HandlesCollection, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return models.HandleIndexFromData(key, data).AccountID, nil
}
