package repositories

import (
	"context"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
)

// AdminActionRepository defines the interface for the append-only audit log
type AdminActionRepository interface {
	CreateAction(ctx context.Context, action *models.AdminAction) error
	GetRecentActions(ctx context.Context, limit int) ([]*models.AdminAction, error)
}

// DocAdminActionRepository implements AdminActionRepository on a document store
type DocAdminActionRepository struct {
	store docstore.Store
}

// NewDocAdminActionRepository creates a new DocAdminActionRepository
func NewDocAdminActionRepository(store docstore.Store) *DocAdminActionRepository {
	return &DocAdminActionRepository{store: store}
}

// CreateAction appends an audit record
func (r *DocAdminActionRepository) CreateAction(ctx context.Context, action *models.AdminAction) error {
	if action.ID == "" {
		action.ID = newID()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = now()
	}
	return r.store.Create(ctx, models.AdminActionsCollection, action.ID, action.ToData())
}

// GetRecentActions lists the latest audit records, newest first
func (r *DocAdminActionRepository) GetRecentActions(ctx context.Context, limit int) ([]*models.AdminAction, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: models.AdminActionsCollection,
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return models.AdminActionsFromDocs(docs), nil
}
