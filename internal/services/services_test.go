package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anonto42/chirp/backend/internal/docstore"
	"github.com/anonto42/chirp/backend/internal/docstore/memory"
	"github.com/anonto42/chirp/backend/internal/models"
	"github.com/anonto42/chirp/backend/internal/repositories"
)

var errInjected = errors.New("injected fault")

// faultStore fails selected writes of the wrapped store. An empty id matches
// every document of the collection.
type faultStore struct {
	docstore.Store
	mu     sync.Mutex
	faults map[string]bool
}

func newFaultStore(inner docstore.Store) *faultStore {
	return &faultStore{Store: inner, faults: map[string]bool{}}
}

func (f *faultStore) fail(op, collection, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op+"/"+collection+"/"+id] = true
}

func (f *faultStore) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = map[string]bool{}
}

func (f *faultStore) check(op, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.faults[op+"/"+collection+"/"+id] || f.faults[op+"/"+collection+"/"] {
		return errInjected
	}
	return nil
}

func (f *faultStore) Create(ctx context.Context, collection, id string, data docstore.Data) error {
	if err := f.check("create", collection, id); err != nil {
		return err
	}
	return f.Store.Create(ctx, collection, id, data)
}

func (f *faultStore) Update(ctx context.Context, collection, id string, updates ...docstore.Update) error {
	if err := f.check("update", collection, id); err != nil {
		return err
	}
	return f.Store.Update(ctx, collection, id, updates...)
}

func (f *faultStore) Delete(ctx context.Context, collection, id string) error {
	if err := f.check("delete", collection, id); err != nil {
		return err
	}
	return f.Store.Delete(ctx, collection, id)
}

func (f *faultStore) Batch(ctx context.Context, ops []docstore.BatchOp) error {
	for _, op := range ops {
		if err := f.check("batch", op.Collection, ""); err != nil {
			return err
		}
	}
	return f.Store.Batch(ctx, ops)
}

type fakeProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *fakeProvider) CreateCredential(_ context.Context, email, password, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(password) < 6 {
		return "", ErrWeakCredential
	}
	return fmt.Sprintf("uid-%d-%s", p.calls, email), nil
}

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	store *faultStore

	users         repositories.UserRepository
	posts         repositories.PostRepository
	reports       repositories.ReportRepository
	actions       repositories.AdminActionRepository
	notifications repositories.NotificationRepository

	provider   *fakeProvider
	dispatcher *Dispatcher
	identity   *IdentityService
	graph      *GraphService
	timeline   *TimelineService
	engagement *EngagementService
	notifier   *NotificationService
	moderation *ModerationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := memory.New()
	t.Cleanup(func() { _ = mem.Close() })
	store := newFaultStore(mem)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	opts := Options{Clock: func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Millisecond)
	}}

	e := &testEnv{
		t:             t,
		ctx:           context.Background(),
		store:         store,
		users:         repositories.NewDocUserRepository(store),
		posts:         repositories.NewDocPostRepository(store),
		reports:       repositories.NewDocReportRepository(store),
		actions:       repositories.NewDocAdminActionRepository(store),
		notifications: repositories.NewDocNotificationRepository(store),
		provider:      &fakeProvider{},
		dispatcher:    NewDispatcher(nil),
	}
	handles := repositories.NewDocHandleRepository(store)
	follows := repositories.NewDocFollowRepository(store)
	likes := repositories.NewDocLikeRepository(store)

	e.identity = NewIdentityService(e.users, handles, e.actions, e.provider, nil, opts)
	e.graph = NewGraphService(e.users, follows, nil)
	e.notifier = NewNotificationService(e.notifications, e.users, nil, opts)
	e.timeline = NewTimelineService(e.posts, e.users, likes, e.notifier, e.dispatcher, nil, opts)
	e.engagement = NewEngagementService(e.posts, e.users, likes, e.notifier, e.dispatcher, nil)
	e.moderation = NewModerationService(e.reports, e.actions, e.posts, e.users, nil, opts)
	return e
}

func (e *testEnv) register(handle string) string {
	e.t.Helper()
	uid, err := e.identity.Register(e.ctx, RegisterInput{
		Handle:      handle,
		DisplayName: handle,
		Email:       handle + "@example.com",
		Password:    "hunter22",
	})
	require.NoError(e.t, err)
	return uid
}

func (e *testEnv) admin(handle string) string {
	e.t.Helper()
	uid := e.register(handle)
	require.NoError(e.t, e.users.SetRole(e.ctx, uid, models.RoleAdmin))
	return uid
}

func (e *testEnv) account(id string) *models.Account {
	e.t.Helper()
	a, err := e.users.GetUserByID(e.ctx, id)
	require.NoError(e.t, err)
	require.NotNil(e.t, a)
	return a
}

func (e *testEnv) post(id string) *models.Post {
	e.t.Helper()
	p, err := e.posts.GetPostByID(e.ctx, id)
	require.NoError(e.t, err)
	require.NotNil(e.t, p)
	return p
}

func (e *testEnv) write(authorID, body string) *models.Post {
	e.t.Helper()
	p, err := e.timeline.CreatePost(e.ctx, authorID, CreatePostInput{Body: body})
	require.NoError(e.t, err)
	return p
}

func (e *testEnv) reply(authorID, parentID, body string) *models.Post {
	e.t.Helper()
	p, err := e.timeline.CreatePost(e.ctx, authorID, CreatePostInput{Body: body, ParentID: &parentID})
	require.NoError(e.t, err)
	return p
}

func (e *testEnv) inbox(userID string) []*models.Notification {
	e.t.Helper()
	e.dispatcher.Wait()
	ns, err := e.notifier.List(e.ctx, userID)
	require.NoError(e.t, err)
	return ns
}

func ids(posts []*models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
