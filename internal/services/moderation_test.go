package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/chirp/backend/internal/models"
)

type thread struct {
	root, r1, r2, nested *models.Post
}

func (e *testEnv) thread(author, replier string) thread {
	e.t.Helper()
	root := e.write(author, "bad take")
	r1 := e.reply(replier, root.ID, "agree")
	r2 := e.reply(author, root.ID, "thanks")
	nested := e.reply(replier, r1.ID, "deeper")
	return thread{root: root, r1: r1, r2: r2, nested: nested}
}

func TestResolveReportDeletesThread(t *testing.T) {
	e := newTestEnv(t)
	admin := e.admin("root")
	a := e.register("alice")
	b := e.register("bob")
	th := e.thread(a, b)

	report, err := e.moderation.CreateReport(e.ctx, b, th.root.ID, "spam", "  buy now  ")
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status)
	assert.Equal(t, "buy now", report.Details)
	assert.Equal(t, int64(1), e.post(th.root.ID).ReportCount)

	require.NoError(t, e.moderation.ResolveReport(e.ctx, report.ID, admin))

	assert.True(t, e.post(th.root.ID).Deleted)
	assert.True(t, e.post(th.r1.ID).Deleted)
	assert.True(t, e.post(th.r2.ID).Deleted)
	assert.False(t, e.post(th.nested.ID).Deleted, "only direct replies are removed")

	resolved, err := e.reports.GetReportByID(e.ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, admin, *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)

	log, err := e.moderation.AuditLog(e.ctx, admin)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, models.ActionResolveReport, log[0].ActionKind)
	assert.Equal(t, report.ID, log[0].TargetID)

	assert.ErrorIs(t, e.moderation.ResolveReport(e.ctx, report.ID, admin), ErrReportNotPending)
	assert.ErrorIs(t, e.moderation.DismissReport(e.ctx, report.ID, admin), ErrReportNotPending)
}

func TestResolvedThreadLeavesReadPaths(t *testing.T) {
	e := newTestEnv(t)
	admin := e.admin("root")
	a := e.register("alice")
	b := e.register("bob")
	th := e.thread(a, b)
	keep := e.write(a, "still here")

	report, err := e.moderation.CreateReport(e.ctx, b, th.root.ID, "spam", "")
	require.NoError(t, err)
	require.NoError(t, e.moderation.ResolveReport(e.ctx, report.ID, admin))

	feed, err := e.timeline.RootFeed(e.ctx, []string{a}, b, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids(feed))
	feed, err = e.timeline.AuthorFeed(e.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids(feed))

	got, err := e.timeline.Get(e.ctx, th.root.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = e.timeline.Get(e.ctx, th.nested.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	replies, err := e.timeline.Replies(e.ctx, th.root.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)
	replies, err = e.timeline.Replies(e.ctx, th.r1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{th.nested.ID}, ids(replies))

	_, err = e.engagement.ToggleLike(e.ctx, th.root.ID, b, false)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.moderation.CreateReport(e.ctx, b, th.root.ID, "spam", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(1), e.post(th.root.ID).ReportCount)
}

func TestDismissReportOnlyChangesStatus(t *testing.T) {
	e := newTestEnv(t)
	admin := e.admin("root")
	a := e.register("alice")
	b := e.register("bob")
	th := e.thread(a, b)

	report, err := e.moderation.CreateReport(e.ctx, b, th.root.ID, "other", "")
	require.NoError(t, err)
	require.NoError(t, e.moderation.DismissReport(e.ctx, report.ID, admin))

	for _, p := range []*models.Post{th.root, th.r1, th.r2, th.nested} {
		assert.False(t, e.post(p.ID).Deleted)
	}
	dismissed, err := e.reports.GetReportByID(e.ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportDismissed, dismissed.Status)

	log, err := e.moderation.AuditLog(e.ctx, admin)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, models.ActionDismissReport, log[0].ActionKind)
}

func TestModerationRequiresAdmin(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	b := e.register("bob")
	p := e.write(a, "fine")
	report, err := e.moderation.CreateReport(e.ctx, b, p.ID, "harassment", "")
	require.NoError(t, err)

	assert.ErrorIs(t, e.moderation.ResolveReport(e.ctx, report.ID, b), ErrNotAdmin)
	assert.ErrorIs(t, e.moderation.DismissReport(e.ctx, report.ID, b), ErrNotAdmin)
	assert.ErrorIs(t, e.moderation.DeleteThread(e.ctx, p.ID, b), ErrNotAdmin)
	_, err = e.moderation.PendingReports(e.ctx, b)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.False(t, e.post(p.ID).Deleted)
}

func TestCreateReportValidation(t *testing.T) {
	e := newTestEnv(t)
	a := e.register("alice")
	p := e.write(a, "ok")

	_, err := e.moderation.CreateReport(e.ctx, a, p.ID, "boring", "")
	assert.ErrorIs(t, err, ErrInvalidReason)
	long := make([]rune, models.MaxReportDetails+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = e.moderation.CreateReport(e.ctx, a, p.ID, "spam", string(long))
	assert.ErrorIs(t, err, ErrInvalidReason)
	_, err = e.moderation.CreateReport(e.ctx, a, "missing", "spam", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, e.post(p.ID).ReportCount)
}

func TestResolveFailureLeavesStaleReport(t *testing.T) {
	e := newTestEnv(t)
	admin := e.admin("root")
	a := e.register("alice")
	b := e.register("bob")
	p := e.write(a, "bad")
	report, err := e.moderation.CreateReport(e.ctx, b, p.ID, "spam", "")
	require.NoError(t, err)

	e.store.fail("update", models.ReportsCollection, report.ID)
	err = e.moderation.ResolveReport(e.ctx, report.ID, admin)
	assert.ErrorIs(t, err, ErrPartialFailure)
	assert.True(t, e.post(p.ID).Deleted)

	stale, err := e.moderation.StaleReports(e.ctx, admin)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, report.ID, stale[0].ID)

	e.store.heal()
	require.NoError(t, e.moderation.ResolveReport(e.ctx, report.ID, admin))
	stale, err = e.moderation.StaleReports(e.ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestAdminDeleteThreadIsAudited(t *testing.T) {
	e := newTestEnv(t)
	admin := e.admin("root")
	a := e.register("alice")
	b := e.register("bob")
	th := e.thread(a, b)

	require.NoError(t, e.moderation.AdminDeleteThread(e.ctx, th.root.ID, admin))
	assert.True(t, e.post(th.root.ID).Deleted)
	assert.True(t, e.post(th.r1.ID).Deleted)

	log, err := e.moderation.AuditLog(e.ctx, admin)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, models.ActionDeleteContent, log[0].ActionKind)
	assert.Equal(t, models.TargetPost, log[0].TargetType)

	assert.ErrorIs(t, e.moderation.AdminDeleteThread(e.ctx, "missing", admin), ErrNotFound)
}
