package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"vidtube/internal/model"
	"vidtube/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment_ContentLength(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	videoID := uuid.New().String()

	for _, n := range []int{2, 3, 128, 255} {
		c, err := env.comments.AddComment(ctx, videoID, owner, strings.Repeat("x", n))
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, []string{}, c.ReplyIDs)
		require.NotNil(t, c.Owner)
		assert.Equal(t, "alice", c.Owner.UserName)
	}

	for _, n := range []int{0, 1, 256} {
		_, err := env.comments.AddComment(ctx, videoID, owner, strings.Repeat("x", n))
		requireKind(t, err, util.KindValidation, http.StatusBadRequest)
	}
	assert.Equal(t, int64(4), env.count(t, &model.Comment{}))
}

func TestAddComment_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")

	_, err := env.comments.AddComment(ctx, "not-a-uuid", owner, "hello")
	requireKind(t, err, util.KindValidation, http.StatusNotFound)

	_, err = env.comments.AddComment(ctx, uuid.New().String(), "", "hello")
	requireKind(t, err, util.KindAuthentication, http.StatusUnauthorized)
}

func TestEditContent_ForeignAndMissingLookAlike(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	stranger := env.user(t, "mallory")
	c := env.comment(t, uuid.New().String(), owner, "original")

	_, foreignErr := env.comments.EditContent(ctx, ContentRef{ID: c.ID}, stranger, "hijacked")
	foreign := requireKind(t, foreignErr, util.KindNotFoundOrUnauthorized, http.StatusNotFound)

	_, missingErr := env.comments.EditContent(ctx, ContentRef{ID: uuid.New().String()}, owner, "whatever")
	missing := requireKind(t, missingErr, util.KindNotFoundOrUnauthorized, http.StatusNotFound)

	assert.Equal(t, missing.Message, foreign.Message)
	assert.Equal(t, missing.Errors, foreign.Errors)

	edited, err := env.comments.EditContent(ctx, ContentRef{ID: c.ID}, owner, "edited")
	require.NoError(t, err)
	assert.Equal(t, model.ContentKindComment, edited.Kind)
	assert.Equal(t, "edited", edited.Comment.Content)
}

func TestEditContent_FallsBackToReply(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	c := env.comment(t, uuid.New().String(), owner, "root")
	r := env.replyToComment(t, c.ID, owner)

	edited, err := env.comments.EditContent(ctx, ContentRef{ID: r.ID}, owner, "better reply")
	require.NoError(t, err)
	assert.Equal(t, model.ContentKindReply, edited.Kind)
	assert.Equal(t, "better reply", edited.Reply.ReplyContent)

	edited, err = env.comments.EditContent(ctx, ContentRef{ID: r.ID, Kind: model.ContentKindReply}, owner, "best reply")
	require.NoError(t, err)
	assert.Equal(t, "best reply", edited.Reply.ReplyContent)

	// an explicit kind does not probe the other table
	_, err = env.comments.EditContent(ctx, ContentRef{ID: r.ID, Kind: model.ContentKindComment}, owner, "nope")
	requireKind(t, err, util.KindNotFoundOrUnauthorized, http.StatusNotFound)
}

func TestAddReply_ParentReplyTakesPrecedence(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	c := env.comment(t, uuid.New().String(), owner, "root")
	parent := env.replyToComment(t, c.ID, owner)

	reply, err := env.comments.AddReply(ctx, AddReplyRequest{
		ReplyContent:    "which parent?",
		ParentCommentID: c.ID,
		ParentReplyID:   parent.ID,
	}, owner)
	require.NoError(t, err)

	require.NotNil(t, reply.ParentReplyID)
	assert.Equal(t, parent.ID, *reply.ParentReplyID)
	assert.Nil(t, reply.ParentCommentID)

	stored, err := env.store.Comments.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{parent.ID}, stored.ReplyIDs)
}

func TestAddReply_Validation(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")

	_, err := env.comments.AddReply(ctx, AddReplyRequest{ReplyContent: "orphan"}, owner)
	requireKind(t, err, util.KindValidation, http.StatusBadRequest)

	_, err = env.comments.AddReply(ctx, AddReplyRequest{ReplyContent: "x", ParentCommentID: uuid.New().String()}, owner)
	requireKind(t, err, util.KindValidation, http.StatusBadRequest)

	_, err = env.comments.AddReply(ctx, AddReplyRequest{ReplyContent: "lost", ParentCommentID: uuid.New().String()}, owner)
	requireKind(t, err, util.KindNotFoundOrUnauthorized, http.StatusNotFound)

	_, err = env.comments.AddReply(ctx, AddReplyRequest{ReplyContent: "lost", ParentReplyID: uuid.New().String()}, owner)
	requireKind(t, err, util.KindNotFoundOrUnauthorized, http.StatusNotFound)

	_, err = env.comments.AddReply(ctx, AddReplyRequest{ReplyContent: "lost", ParentReplyID: "bad-id"}, owner)
	requireKind(t, err, util.KindValidation, http.StatusNotFound)
}

func TestAddReply_AppendsToComment(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	replier := env.user(t, "bob")
	c := env.comment(t, uuid.New().String(), owner, "root")

	first := env.replyToComment(t, c.ID, replier)
	second := env.replyToComment(t, c.ID, owner)
	require.NotNil(t, first.Owner)
	assert.Equal(t, "bob", first.Owner.UserName)

	stored, err := env.store.Comments.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, stored.ReplyIDs)
}

func TestDeleteContent_TwiceIsNotFound(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	c := env.comment(t, uuid.New().String(), owner, "short lived")

	deleted, err := env.comments.DeleteContent(ctx, ContentRef{ID: c.ID}, owner)
	require.NoError(t, err)
	assert.Equal(t, model.ContentKindComment, deleted.Kind)
	assert.Equal(t, c.ID, deleted.Comment.ID)

	_, err = env.comments.DeleteContent(ctx, ContentRef{ID: c.ID}, owner)
	requireKind(t, err, util.KindNotFoundOrUnauthorized, http.StatusNotFound)

	_, err = env.comments.DeleteContent(ctx, ContentRef{ID: c.ID, Kind: model.ContentKindComment}, owner)
	requireKind(t, err, util.KindNotFoundOrUnauthorized, http.StatusNotFound)
}

func TestDeleteContent_ForeignOwner(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	stranger := env.user(t, "mallory")
	c := env.comment(t, uuid.New().String(), owner, "mine")
	r := env.replyToComment(t, c.ID, owner)

	_, err := env.comments.DeleteContent(ctx, ContentRef{ID: c.ID}, stranger)
	requireKind(t, err, util.KindNotFoundOrUnauthorized, http.StatusNotFound)
	_, err = env.comments.DeleteContent(ctx, ContentRef{ID: r.ID}, stranger)
	requireKind(t, err, util.KindNotFoundOrUnauthorized, http.StatusNotFound)

	assert.Equal(t, int64(1), env.count(t, &model.Comment{}))
	assert.Equal(t, int64(1), env.count(t, &model.Reply{}))
}

func TestDeleteContent_ExplicitKindMismatch(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	c := env.comment(t, uuid.New().String(), owner, "comment")

	_, err := env.comments.DeleteContent(ctx, ContentRef{ID: c.ID, Kind: model.ContentKindReply}, owner)
	requireKind(t, err, util.KindNotFoundOrUnauthorized, http.StatusNotFound)
	assert.Equal(t, int64(1), env.count(t, &model.Comment{}))
}

func TestDeleteReply_LeavesNestedRepliesOrphaned(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	owner := env.user(t, "alice")
	fan := env.user(t, "bob")

	c := env.comment(t, uuid.New().String(), owner, "root")
	parent := env.replyToComment(t, c.ID, owner)
	child := env.replyToReply(t, parent.ID, owner)
	grandchild := env.replyToReply(t, child.ID, owner)
	env.like(t, fan, parent.ID)
	env.like(t, fan, child.ID)

	deleted, err := env.comments.DeleteContent(ctx, ContentRef{ID: parent.ID}, owner)
	require.NoError(t, err)
	assert.Equal(t, model.ContentKindReply, deleted.Kind)
	assert.Equal(t, int64(1), deleted.Cascade.LikesDeleted)

	// only the reply and its own likes are gone
	assert.Equal(t, int64(0), env.count(t, &model.Reply{}, "id = ?", parent.ID))
	assert.Equal(t, int64(2), env.count(t, &model.Reply{}, "id IN ?", []string{child.ID, grandchild.ID}))
	assert.Equal(t, int64(1), env.count(t, &model.Like{}, "target_id = ?", child.ID))

	stored, err := env.store.Comments.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ReplyIDs)

	// the sweep removes the orphaned subtree level by level
	result, err := env.cascade.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RepliesDeleted)
	assert.Equal(t, int64(1), result.LikesDeleted)
	assert.Equal(t, 2, result.Passes)
	assert.Equal(t, int64(0), env.count(t, &model.Reply{}))
	assert.Equal(t, int64(0), env.count(t, &model.Like{}))
}

// buildThread creates a comment with three parent replies and four nested replies
// below them, two of which sit two levels deep. Every record gets one like.
func buildThread(t *testing.T, env *testEnv, videoID string) (*model.Comment, []string) {
	t.Helper()
	owner := env.user(t, "owner-"+videoID[:8])
	fan := env.user(t, "fan-"+videoID[:8])

	c := env.comment(t, videoID, owner, "thread root")
	ids := []string{c.ID}

	var parents []*model.Reply
	for i := 0; i < 3; i++ {
		p := env.replyToComment(t, c.ID, owner)
		parents = append(parents, p)
		ids = append(ids, p.ID)
	}
	n1 := env.replyToReply(t, parents[0].ID, owner)
	n2 := env.replyToReply(t, parents[1].ID, fan)
	n3 := env.replyToReply(t, n1.ID, owner)
	n4 := env.replyToReply(t, n3.ID, fan)
	ids = append(ids, n1.ID, n2.ID, n3.ID, n4.ID)

	for _, id := range ids {
		env.like(t, fan, id)
	}
	return c, ids
}

func TestDeleteComment_CascadeCounts(t *testing.T) {
	for _, mode := range []CascadeMode{CascadeTransactional, CascadeBestEffort} {
		env := newTestEnv(t, mode)
		ctx := context.Background()

		other, otherIDs := buildThread(t, env, uuid.New().String())
		c, ids := buildThread(t, env, uuid.New().String())

		assert.Equal(t, int64(2), env.count(t, &model.Comment{}))
		assert.Equal(t, int64(14), env.count(t, &model.Reply{}))
		assert.Equal(t, int64(16), env.count(t, &model.Like{}))

		deleted, err := env.comments.DeleteContent(ctx, ContentRef{ID: c.ID}, c.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted.Cascade.RepliesDeleted)
		assert.Equal(t, int64(4), deleted.Cascade.NestedRepliesDeleted)
		assert.Equal(t, int64(8), deleted.Cascade.LikesDeleted)
		assert.Equal(t, 4, deleted.Cascade.Levels)
		assert.Empty(t, deleted.Cascade.Failures)

		assert.Equal(t, int64(0), env.count(t, &model.Comment{}, "id = ?", c.ID))
		assert.Equal(t, int64(0), env.count(t, &model.Reply{}, "id IN ?", ids))
		assert.Equal(t, int64(0), env.count(t, &model.Like{}, "target_id IN ?", ids))

		// the untouched thread survives
		assert.Equal(t, int64(1), env.count(t, &model.Comment{}, "id = ?", other.ID))
		assert.Equal(t, int64(7), env.count(t, &model.Reply{}))
		assert.Equal(t, int64(8), env.count(t, &model.Like{}, "target_id IN ?", otherIDs))
		assert.Empty(t, env.publisher.Requests())
	}
}

func TestDeleteComment_TransactionalRollsBack(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()
	c, _ := buildThread(t, env, uuid.New().String())

	env.failLikes.Store(true)
	_, err := env.comments.DeleteContent(ctx, ContentRef{ID: c.ID}, c.OwnerID)
	requireKind(t, err, util.KindInternal, http.StatusInternalServerError)

	assert.Equal(t, int64(1), env.count(t, &model.Comment{}))
	assert.Equal(t, int64(7), env.count(t, &model.Reply{}))
	assert.Equal(t, int64(8), env.count(t, &model.Like{}))
	assert.Empty(t, env.publisher.Requests())
}

func TestDeleteComment_BestEffortContinuesAndRequestsReconcile(t *testing.T) {
	env := newTestEnv(t, CascadeBestEffort)
	ctx := context.Background()
	c, ids := buildThread(t, env, uuid.New().String())

	env.failLikes.Store(true)
	deleted, err := env.comments.DeleteContent(ctx, ContentRef{ID: c.ID}, c.OwnerID)
	require.NoError(t, err)
	assert.True(t, deleted.Cascade.Partial())
	assert.Equal(t, int64(3), deleted.Cascade.RepliesDeleted)
	assert.Equal(t, int64(4), deleted.Cascade.NestedRepliesDeleted)
	assert.Equal(t, int64(0), deleted.Cascade.LikesDeleted)

	assert.Equal(t, int64(0), env.count(t, &model.Comment{}))
	assert.Equal(t, int64(0), env.count(t, &model.Reply{}))
	assert.Equal(t, int64(8), env.count(t, &model.Like{}))

	requests := env.publisher.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, c.ID, requests[0].ContentID)
	assert.Equal(t, string(model.ContentKindComment), requests[0].Kind)
	assert.NotEmpty(t, requests[0].Failures)

	env.failLikes.Store(false)
	result, err := env.cascade.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), result.LikesDeleted)
	assert.Equal(t, int64(0), env.count(t, &model.Like{}, "target_id IN ?", ids))
}

func TestEndToEndScenario(t *testing.T) {
	env := newTestEnv(t, CascadeTransactional)
	ctx := context.Background()

	u1 := env.user(t, "u1")
	u2 := env.user(t, "u2")
	l1 := env.user(t, "liker1")
	l2 := env.user(t, "liker2")
	l3 := env.user(t, "liker3")
	videoID := uuid.New().String()

	c1 := env.comment(t, videoID, u1, "C1 content")
	r1 := env.replyToComment(t, c1.ID, u2)
	r2 := env.replyToReply(t, r1.ID, u1)
	env.like(t, l1, c1.ID)
	env.like(t, l2, r1.ID)
	env.like(t, l3, r2.ID)

	_, err := env.comments.DeleteContent(ctx, ContentRef{ID: c1.ID}, u1)
	require.NoError(t, err)

	assert.Equal(t, int64(0), env.count(t, &model.Comment{}))
	assert.Equal(t, int64(0), env.count(t, &model.Reply{}))
	assert.Equal(t, int64(0), env.count(t, &model.Like{}))
}
