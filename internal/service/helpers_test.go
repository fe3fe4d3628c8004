package service

import (
	"context"
	"sync"
	"testing"

	"ravencube/internal/featureflags"
	"ravencube/internal/models"
	"ravencube/internal/notifications"
	"ravencube/internal/repository"
	"ravencube/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// emitterStub is a stub for Emitter that records every call.
type emitterStub struct {
	mu     sync.Mutex
	calls  []EmitInput
	emitFn func(context.Context, EmitInput) (*models.Notification, error)
}

func (s *emitterStub) Emit(ctx context.Context, in EmitInput) (*models.Notification, error) {
	s.mu.Lock()
	s.calls = append(s.calls, in)
	s.mu.Unlock()
	if s.emitFn == nil {
		return &models.Notification{}, nil
	}
	return s.emitFn(ctx, in)
}

func (s *emitterStub) Calls() []EmitInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmitInput(nil), s.calls...)
}

// publisherStub is a stub for Publisher.
type publisherStub struct {
	publishFn func(context.Context, notifications.Event) error
}

func (s *publisherStub) PublishEvent(ctx context.Context, ev notifications.Event) error {
	return s.publishFn(ctx, ev)
}

type fixture struct {
	db            *gorm.DB
	users         repository.UserRepository
	posts         repository.PostRepository
	comments      repository.CommentRepository
	likes         repository.LikeRepository
	follows       repository.FollowRepository
	notifications repository.NotificationRepository
	emitter       *NotificationEmitter
	images        *testutil.ImageStoreStub
	coordinator   *Coordinator
	content       *ContentService
	graph         *GraphService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	emitter Emitter
	rdb     *redis.Client
	flags   string
}

func withEmitter(e Emitter) fixtureOption {
	return func(c *fixtureConfig) { c.emitter = e }
}

func withRedis(rdb *redis.Client) fixtureOption {
	return func(c *fixtureConfig) { c.rdb = rdb }
}

func withFlags(raw string) fixtureOption {
	return func(c *fixtureConfig) { c.flags = raw }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := &fixtureConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	db := testutil.NewTestDB(t)
	f := &fixture{
		db:            db,
		users:         repository.NewUserRepository(db),
		posts:         repository.NewPostRepository(db),
		comments:      repository.NewCommentRepository(db),
		likes:         repository.NewLikeRepository(db),
		follows:       repository.NewFollowRepository(db),
		notifications: repository.NewNotificationRepository(db),
		images:        testutil.NewImageStoreStub(),
	}
	f.emitter = NewNotificationEmitter(f.notifications, notifications.NewNotifier(cfg.rdb))

	var emitter Emitter = f.emitter
	if cfg.emitter != nil {
		emitter = cfg.emitter
	}
	flags := featureflags.NewManager(cfg.flags)
	uow := repository.NewUnitOfWork(db)

	f.coordinator = NewCoordinator(uow, f.users, f.posts, f.comments, f.likes, emitter, f.images, flags, cfg.rdb)
	f.content = NewContentService(f.users, f.posts, f.comments, f.images, emitter, flags, cfg.rdb, ContentOptions{})
	f.graph = NewGraphService(uow, f.users, f.follows, emitter, cfg.rdb, 0)
	return f
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, f.db, username)
}

func (f *fixture) post(t *testing.T, owner *models.User, content string) *models.Post {
	t.Helper()
	return testutil.CreatePost(t, f.db, owner.ID, content)
}

func (f *fixture) allNotifications(t *testing.T) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, f.db.Order("id ASC").Find(&out).Error)
	return out
}

func (f *fixture) reloadPost(t *testing.T, id uint) *models.Post {
	t.Helper()
	p, err := f.posts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}
