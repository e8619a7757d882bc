package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidtube/internal/config"
	"vidtube/internal/testutil"
	"vidtube/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) (*testServer, func(name string) string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	cfg := &config.Config{
		ClientURL:            "http://localhost:3000",
		JWTSecret:            testSecret,
		CommentPageSize:      5,
		NestedReplyDepth:     3,
		CascadeTransactional: true,
	}
	engine, _ := buildEngine(cfg, db, nil, nil)

	login := func(name string) string {
		id := testutil.CreateUser(t, db, name)
		token, err := util.GenerateToken(id, testSecret, time.Hour)
		require.NoError(t, err)
		return token
	}
	return &testServer{t: t, engine: engine}, login
}

func (s *testServer) do(method, path, token, body string) (int, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type idDoc struct {
	ID string `json:"id"`
}

func TestHealthcheck(t *testing.T) {
	srv, _ := newTestServer(t)

	code, env := srv.do(http.MethodGet, "/api/v1/healthcheck", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	assert.JSONEq(t, `{"status":"OK"}`, string(env.Data))
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	videoID := uuid.New().String()

	code, env := srv.do(http.MethodPost, "/api/v1/comments/add-comment/"+videoID, "", `{"content":"hello"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
	assert.NotNil(t, env.Errors)

	code, _ = srv.do(http.MethodPost, "/api/v1/comments/add-comment/"+videoID, "garbage", `{"content":"hello"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAuthCookie(t *testing.T) {
	srv, login := newTestServer(t)
	token := login("alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userName":"alice"`)
}

func TestCommentLifecycle(t *testing.T) {
	srv, login := newTestServer(t)
	alice := login("alice")
	bob := login("bob")
	videoID := uuid.New().String()

	code, env := srv.do(http.MethodPost, "/api/v1/comments/add-comment/"+videoID, alice, `{"content":"first!"}`)
	require.Equal(t, http.StatusOK, code, env.Message)
	comment := decode[idDoc](t, env.Data)

	code, env = srv.do(http.MethodPost, "/api/v1/comments/reply-comment/"+comment.ID, bob, `{"replyContent":"welcome"}`)
	require.Equal(t, http.StatusOK, code, env.Message)
	reply := decode[idDoc](t, env.Data)

	code, env = srv.do(http.MethodPost, "/api/v1/comments/reply-comment", alice, `{"replyContent":"thanks","parentReplyId":"`+reply.ID+`"}`)
	require.Equal(t, http.StatusOK, code, env.Message)
	nested := decode[idDoc](t, env.Data)

	code, env = srv.do(http.MethodGet, "/api/v1/comments/main-parent-comments/"+videoID+"?page=1&limit=5", "", "")
	require.Equal(t, http.StatusOK, code)
	page := decode[struct {
		Docs []struct {
			ID            string  `json:"id"`
			LikesCount    int64   `json:"likesCount"`
			ParentReplies []idDoc `json:"parentReplies"`
		} `json:"docs"`
		TotalDocs int64 `json:"totalDocs"`
	}](t, env.Data)
	assert.Equal(t, int64(1), page.TotalDocs)
	require.Len(t, page.Docs, 1)
	assert.Equal(t, []idDoc{reply}, page.Docs[0].ParentReplies)

	code, env = srv.do(http.MethodGet, "/api/v1/comments/nested-comments/"+reply.ID, "", "")
	require.Equal(t, http.StatusOK, code)
	tree := decode[[]idDoc](t, env.Data)
	assert.Equal(t, []idDoc{nested}, tree)

	code, env = srv.do(http.MethodGet, "/api/v1/comments/nested-comments/"+reply.ID+"?limit=0", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	// bob cannot edit alice's comment, and learns nothing from trying
	code, foreign := srv.do(http.MethodPut, "/api/v1/comments/edit-comment/"+comment.ID, bob, `{"content":"mine now"}`)
	assert.Equal(t, http.StatusNotFound, code)
	code, missing := srv.do(http.MethodPut, "/api/v1/comments/edit-comment/"+uuid.New().String(), bob, `{"content":"mine now"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, missing.Message, foreign.Message)

	code, env = srv.do(http.MethodPut, "/api/v1/comments/edit-comment/"+reply.ID+"?kind=reply", bob, `{"content":"welcome!"}`)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"replyContent":"welcome!"`)

	code, env = srv.do(http.MethodPost, "/api/v1/likes/toggle/c/"+comment.ID, bob, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	code, env = srv.do(http.MethodGet, "/api/v1/likes/liked-comments-by-commentId/"+comment.ID, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"totalLikes":1}`, string(env.Data))

	code, env = srv.do(http.MethodDelete, "/api/v1/comments/delete-comment/"+comment.ID+"?kind=comment", alice, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	deleted := decode[struct {
		Kind    string `json:"kind"`
		Cascade struct {
			RepliesDeleted       int64 `json:"repliesDeleted"`
			NestedRepliesDeleted int64 `json:"nestedRepliesDeleted"`
			LikesDeleted         int64 `json:"likesDeleted"`
		} `json:"cascade"`
	}](t, env.Data)
	assert.Equal(t, "comment", deleted.Kind)
	assert.Equal(t, int64(1), deleted.Cascade.RepliesDeleted)
	assert.Equal(t, int64(1), deleted.Cascade.NestedRepliesDeleted)
	assert.Equal(t, int64(1), deleted.Cascade.LikesDeleted)

	code, _ = srv.do(http.MethodDelete, "/api/v1/comments/delete-comment/"+comment.ID, alice, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCommentValidationErrors(t *testing.T) {
	srv, login := newTestServer(t)
	alice := login("alice")

	code, env := srv.do(http.MethodPost, "/api/v1/comments/add-comment/"+uuid.New().String(), alice, `{"content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, _ = srv.do(http.MethodPost, "/api/v1/comments/add-comment/not-an-id", alice, `{"content":"hello"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = srv.do(http.MethodDelete, "/api/v1/comments/delete-comment/"+uuid.New().String()+"?kind=video", alice, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = srv.do(http.MethodGet, "/api/v1/comments/main-parent-comments/"+uuid.New().String()+"?page=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = srv.do(http.MethodPost, "/api/v1/comments/reply-comment", alice, `{"replyContent":"no parent"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestToggleVideoLike(t *testing.T) {
	srv, login := newTestServer(t)
	alice := login("alice")
	videoID := uuid.New().String()

	code, env := srv.do(http.MethodPost, "/api/v1/likes/toggle/v/"+videoID, alice, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "video liked successfully", env.Message)

	code, env = srv.do(http.MethodGet, "/api/v1/likes/liked-videos", alice, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]idDoc](t, env.Data), 1)

	code, env = srv.do(http.MethodPost, "/api/v1/likes/toggle/v/"+videoID, alice, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "video disliked successfully", env.Message)

	code, env = srv.do(http.MethodGet, "/api/v1/likes/liked-videos-by-videoId/v/"+videoID, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"totalLikes":0}`, string(env.Data))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/healthcheck", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
