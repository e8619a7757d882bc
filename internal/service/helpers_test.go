package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"vidtube/internal/model"
	"vidtube/internal/repository"
	"vidtube/internal/testutil"
	"vidtube/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu       sync.Mutex
	requests []ReconcileRequest
}

func (p *recordingPublisher) PublishReconcile(_ context.Context, req ReconcileRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return nil
}

func (p *recordingPublisher) Requests() []ReconcileRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ReconcileRequest(nil), p.requests...)
}

type testEnv struct {
	db        *gorm.DB
	mr        *miniredis.Miniredis
	store     *repository.Store
	cache     *repository.CommentPageCache
	cascade   *CascadeCoordinator
	comments  CommentService
	likes     LikeService
	publisher *recordingPublisher
	failLikes *atomic.Bool
}

func newTestEnv(t *testing.T, mode CascadeMode) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rc := util.WrapRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rc.Close() })

	store := repository.NewStore(db, rc)
	cache := repository.NewCommentPageCache(rc)
	publisher := &recordingPublisher{}
	cascade := NewCascadeCoordinator(store, mode, publisher)

	failLikes := &atomic.Bool{}
	err := db.Callback().Delete().Before("gorm:delete").Register("test:fail_like_deletes", func(tx *gorm.DB) {
		if failLikes.Load() && tx.Statement.Table == "likes" {
			_ = tx.AddError(errors.New("injected like delete failure"))
		}
	})
	require.NoError(t, err)

	return &testEnv{
		db:        db,
		mr:        mr,
		store:     store,
		cache:     cache,
		cascade:   cascade,
		comments:  NewCommentService(store, repository.NewUserRepository(db), cache, cascade, CommentOptions{}),
		likes:     NewLikeService(store, cache),
		publisher: publisher,
		failLikes: failLikes,
	}
}

func (e *testEnv) user(t *testing.T, name string) string {
	return testutil.CreateUser(t, e.db, name)
}

func (e *testEnv) comment(t *testing.T, videoID, owner, content string) *model.Comment {
	t.Helper()
	c, err := e.comments.AddComment(context.Background(), videoID, owner, content)
	require.NoError(t, err)
	return c
}

func (e *testEnv) replyToComment(t *testing.T, commentID, owner string) *model.Reply {
	t.Helper()
	r, err := e.comments.AddReply(context.Background(), AddReplyRequest{ReplyContent: "a reply", ParentCommentID: commentID}, owner)
	require.NoError(t, err)
	return r
}

func (e *testEnv) replyToReply(t *testing.T, replyID, owner string) *model.Reply {
	t.Helper()
	r, err := e.comments.AddReply(context.Background(), AddReplyRequest{ReplyContent: "nested reply", ParentReplyID: replyID}, owner)
	require.NoError(t, err)
	return r
}

func (e *testEnv) like(t *testing.T, owner, targetID string) {
	t.Helper()
	res, err := e.likes.ToggleLike(context.Background(), owner, model.TargetKindComment, targetID)
	require.NoError(t, err)
	require.True(t, res.Liked)
}

func (e *testEnv) count(t *testing.T, m interface{}, query ...interface{}) int64 {
	return testutil.Count(t, e.db, m, query...)
}

func requireKind(t *testing.T, err error, kind util.ErrorKind, status int) *util.ApiError {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := util.AsApiError(err)
	require.True(t, ok, "expected ApiError, got %v", err)
	require.Equal(t, kind, apiErr.Kind)
	require.Equal(t, status, apiErr.StatusCode)
	return apiErr
}
