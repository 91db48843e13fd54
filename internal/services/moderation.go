package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/repositories"
)

// ModerationService runs the report workflow and admin deletes. Every admin
// decision appends one audit record after its effect is written.
type ModerationService struct {
	reports repositories.ReportRepository
	actions repositories.AdminActionRepository
	posts   repositories.PostRepository
	users   repositories.UserRepository
	log     *zap.Logger
	opts    Options
}

// NewModerationService creates a new ModerationService
func NewModerationService(reports repositories.ReportRepository, actions repositories.AdminActionRepository, posts repositories.PostRepository, users repositories.UserRepository, log *zap.Logger, opts Options) *ModerationService {
	return &ModerationService{
		reports: reports,
		actions: actions,
		posts:   posts,
		users:   users,
		log:     orNop(log),
		opts:    opts.withDefaults(),
	}
}

// CreateReport flags a post. The report counter on the post is bumped first,
// then the pending report is written; the two writes are independent.
func (s *ModerationService) CreateReport(ctx context.Context, reporterID, contentID, reason, details string) (*models.Report, error) {
	details = strings.TrimSpace(details)
	if !models.ValidReason(reason) || utf8.RuneCountInString(details) > models.MaxReportDetails {
		return nil, ErrInvalidReason
	}
	reporter, err := activeAccount(ctx, s.users, reporterID)
	if err != nil {
		return nil, err
	}
	content, err := s.posts.GetPostByID(ctx, contentID)
	if err != nil {
		return nil, Internal("load post", err)
	}
	if content == nil || content.Deleted {
		return nil, New(ErrNotFound, "post not found")
	}

	if err := s.posts.IncrementReportCount(ctx, contentID); err != nil {
		return nil, writeErr("increment report count", err)
	}
	report := &models.Report{
		ContentID:           content.ID,
		ContentPreview:      models.Truncate(content.Body, models.LikePreviewLength),
		ContentAuthorID:     content.Author.ID,
		ContentAuthorHandle: content.Author.Handle,
		ReporterID:          reporter.ID,
		ReporterHandle:      reporter.Handle,
		Reason:              reason,
		Details:             details,
		Status:              models.ReportPending,
		CreatedAt:           s.opts.Clock(),
	}
	if err := s.reports.CreateReport(ctx, report); err != nil {
		s.log.Warn("report count bumped without a report", zap.String("post", contentID), zap.Error(err))
		return nil, Partial("create report", err)
	}
	return report, nil
}

func (s *ModerationService) pendingReport(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.reports.GetReportByID(ctx, id)
	if err != nil {
		return nil, Internal("load report", err)
	}
	if report == nil {
		return nil, New(ErrNotFound, "report not found")
	}
	if !report.Pending() {
		return nil, ErrReportNotPending
	}
	return report, nil
}

// ResolveReport deletes the reported thread, marks the report resolved and
// appends a resolveReport record. Nothing is rolled back; a failure after the
// delete is a partial failure.
func (s *ModerationService) ResolveReport(ctx context.Context, reportID, adminID string) error {
	admin, err := requireAdmin(ctx, s.users, adminID)
	if err != nil {
		return err
	}
	report, err := s.pendingReport(ctx, reportID)
	if err != nil {
		return err
	}

	deleted, err := s.deleteThread(ctx, report.ContentID, admin.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.reports.SetStatus(ctx, report.ID, models.ReportResolved, admin.ID, s.opts.Clock()); err != nil {
		if deleted {
			return Partial("mark report resolved", err)
		}
		return writeErr("mark report resolved", err)
	}
	return s.audit(ctx, admin, models.ActionResolveReport, models.TargetReport, report.ID, report.Reason+" on @"+report.ContentAuthorHandle)
}

// DismissReport closes a pending report without touching its content.
func (s *ModerationService) DismissReport(ctx context.Context, reportID, adminID string) error {
	admin, err := requireAdmin(ctx, s.users, adminID)
	if err != nil {
		return err
	}
	report, err := s.pendingReport(ctx, reportID)
	if err != nil {
		return err
	}
	if err := s.reports.SetStatus(ctx, report.ID, models.ReportDismissed, admin.ID, s.opts.Clock()); err != nil {
		return writeErr("mark report dismissed", err)
	}
	return s.audit(ctx, admin, models.ActionDismissReport, models.TargetReport, report.ID, report.Reason+" on @"+report.ContentAuthorHandle)
}

// DeleteThread soft-deletes a root post and its direct replies. Deeper
// descendants are left alone.
func (s *ModerationService) DeleteThread(ctx context.Context, rootID, adminID string) error {
	admin, err := requireAdmin(ctx, s.users, adminID)
	if err != nil {
		return err
	}
	_, err = s.deleteThread(ctx, rootID, admin.ID)
	return err
}

// AdminDeleteThread is DeleteThread followed by a deleteContent audit record.
func (s *ModerationService) AdminDeleteThread(ctx context.Context, rootID, adminID string) error {
	admin, err := requireAdmin(ctx, s.users, adminID)
	if err != nil {
		return err
	}
	root, err := s.posts.GetPostByID(ctx, rootID)
	if err != nil {
		return Internal("load post", err)
	}
	if root == nil {
		return New(ErrNotFound, "post not found")
	}
	if _, err := s.deleteThread(ctx, rootID, admin.ID); err != nil {
		return err
	}
	return s.audit(ctx, admin, models.ActionDeleteContent, models.TargetPost, rootID, models.Truncate(root.Body, models.LikePreviewLength))
}

// deleteThread reports whether the root write committed, so callers can tell
// a clean failure from a partial one.
func (s *ModerationService) deleteThread(ctx context.Context, rootID, actorID string) (bool, error) {
	if err := s.posts.SoftDeletePost(ctx, rootID, actorID); err != nil {
		return false, writeErr("delete root", err)
	}
	replies, err := s.posts.GetReplies(ctx, rootID)
	if err != nil {
		return true, Partial("load replies", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, reply := range replies {
		g.Go(func() error { return s.posts.SoftDeletePost(gctx, reply.ID, actorID) })
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("thread root deleted with replies left", zap.String("post", rootID), zap.Error(err))
		return true, Partial("delete replies", err)
	}
	return true, nil
}

func (s *ModerationService) audit(ctx context.Context, admin *models.Account, kind, targetType, targetID, description string) error {
	err := s.actions.CreateAction(ctx, &models.AdminAction{
		AdminID:           admin.ID,
		AdminHandle:       admin.Handle,
		ActionKind:        kind,
		TargetType:        targetType,
		TargetID:          targetID,
		TargetDescription: description,
		CreatedAt:         s.opts.Clock(),
	})
	if err != nil {
		s.log.Warn("audit record lost", zap.String("action", kind), zap.String("target", targetID), zap.Error(err))
		return Partial("append audit record", err)
	}
	return nil
}

// PendingReports lists open reports, newest first.
func (s *ModerationService) PendingReports(ctx context.Context, adminID string) ([]*models.Report, error) {
	if _, err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	reports, err := s.reports.GetPendingReports(ctx)
	if err != nil {
		return nil, Internal("load pending reports", err)
	}
	return reports, nil
}

// AllReports lists the latest reports of every status.
func (s *ModerationService) AllReports(ctx context.Context, adminID string) ([]*models.Report, error) {
	if _, err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	reports, err := s.reports.GetReports(ctx, ReportsLimit)
	if err != nil {
		return nil, Internal("load reports", err)
	}
	return reports, nil
}

// AllPosts returns posts of every kind, deleted ones included.
func (s *ModerationService) AllPosts(ctx context.Context, adminID string, limit int) ([]*models.Post, error) {
	if _, err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = ReportsLimit
	}
	posts, err := s.posts.GetAllPosts(ctx, limit)
	if err != nil {
		return nil, Internal("load posts", err)
	}
	return posts, nil
}

// AuditLog lists the latest admin actions.
func (s *ModerationService) AuditLog(ctx context.Context, adminID string) ([]*models.AdminAction, error) {
	if _, err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	actions, err := s.actions.GetRecentActions(ctx, AuditLogLimit)
	if err != nil {
		return nil, Internal("load audit log", err)
	}
	return actions, nil
}

// StaleReports returns pending reports whose content is already gone. These
// are left behind when a resolve failed after the delete.
func (s *ModerationService) StaleReports(ctx context.Context, adminID string) ([]*models.Report, error) {
	pending, err := s.PendingReports(ctx, adminID)
	if err != nil {
		return nil, err
	}
	var stale []*models.Report
	for _, r := range pending {
		post, err := s.posts.GetPostByID(ctx, r.ContentID)
		if err != nil {
			return nil, Internal("load post", err)
		}
		if post == nil || post.Deleted {
			stale = append(stale, r)
		}
	}
	return stale, nil
}

// WatchPendingReports streams PendingReports until the subscription is cancelled.
func (s *ModerationService) WatchPendingReports(ctx context.Context, adminID string, fn func([]*models.Report)) (*docstore.Subscription, error) {
	if _, err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	sub, err := s.reports.WatchPendingReports(ctx, fn)
	if err != nil {
		return nil, Internal("watch reports", err)
	}
	return sub, nil
}
