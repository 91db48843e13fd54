package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
)

// ReportRepository defines the interface for moderation report operations
type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReportByID(ctx context.Context, id string) (*models.Report, error)
	GetPendingReports(ctx context.Context) ([]*models.Report, error)
	GetReports(ctx context.Context, limit int) ([]*models.Report, error)
	SetStatus(ctx context.Context, id, status, adminID string, at time.Time) error
	WatchPendingReports(ctx context.Context, fn func([]*models.Report)) (*docstore.Subscription, error)
}

// DocReportRepository implements ReportRepository on a document store
type DocReportRepository struct {
	store docstore.Store
}

// NewDocReportRepository creates a new DocReportRepository
func NewDocReportRepository(store docstore.Store) *DocReportRepository {
	return &DocReportRepository{store: store}
}

// CreateReport writes a new report
func (r *DocReportRepository) CreateReport(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = newID()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now()
	}
	return r.store.Create(ctx, models.ReportsCollection, report.ID, report.ToData())
}

// GetReportByID retrieves a report by id. A missing report is nil, nil.
func (r *DocReportRepository) GetReportByID(ctx context.Context, id string) (*models.Report, error) {
	data, err := r.store.Get(ctx, models.ReportsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return models.ReportFromData(id, data), nil
}

func pendingQuery() docstore.Query {
	return docstore.Query{
		Collection: models.ReportsCollection,
		Filters:    []docstore.Filter{docstore.Eq("status", models.ReportPending)},
		OrderBy:    "createdAt",
		Descending: true,
	}
}

// GetPendingReports lists reports awaiting a decision, newest first
func (r *DocReportRepository) GetPendingReports(ctx context.Context) ([]*models.Report, error) {
	docs, err := r.store.Query(ctx, pendingQuery())
	if err != nil {
		return nil, err
	}
	return models.ReportsFromDocs(docs), nil
}

// GetReports lists reports of every status, newest first
func (r *DocReportRepository) GetReports(ctx context.Context, limit int) ([]*models.Report, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: models.ReportsCollection,
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return models.ReportsFromDocs(docs), nil
}

// SetStatus records the final decision on a report
func (r *DocReportRepository) SetStatus(ctx context.Context, id, status, adminID string, at time.Time) error {
	return r.store.Update(ctx, models.ReportsCollection, id,
		docstore.Set("status", status),
		docstore.Set("resolvedBy", adminID),
		docstore.Set("resolvedAt", at))
}

// WatchPendingReports streams GetPendingReports
func (r *DocReportRepository) WatchPendingReports(ctx context.Context, fn func([]*models.Report)) (*docstore.Subscription, error) {
	return r.store.Subscribe(ctx, pendingQuery(), func(docs []docstore.Doc) {
		fn(models.ReportsFromDocs(docs))
	})
}
