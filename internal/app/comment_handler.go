package app

import (
	"net/http"
	"strconv"

	"vidtube/internal/model"
	"vidtube/internal/service"
	"vidtube/internal/util"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
	nestedDepth    int
}

func NewCommentHandler(commentService service.CommentService, nestedDepth int) *CommentHandler {
	if nestedDepth <= 0 {
		nestedDepth = service.DefaultNestedReplyDepth
	}
	return &CommentHandler{
		commentService: commentService,
		nestedDepth:    nestedDepth,
	}
}

type contentRequest struct {
	Content string `json:"content" form:"content"`
}

type replyRequest struct {
	ReplyContent    string `json:"replyContent" form:"replyContent"`
	ParentCommentID string `json:"parentCommentId" form:"parentCommentId"`
	ParentReplyID   string `json:"parentReplyId" form:"parentReplyId"`
}

// AddComment handles comment creation
// POST /api/v1/comments/add-comment/:videoId
func (h *CommentHandler) AddComment(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		util.BadRequest(c, "invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), c.Param("videoId"), requesterID(c), req.Content)
	if err != nil {
		util.HandleError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "comment added successfully", comment)
}

// AddReply handles replies to comments and to replies
// POST /api/v1/comments/reply-comment[/:parentCommentId]
func (h *CommentHandler) AddReply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBind(&req); err != nil {
		util.BadRequest(c, "invalid request body")
		return
	}
	if id := c.Param("parentCommentId"); id != "" {
		req.ParentCommentID = id
	}

	reply, err := h.commentService.AddReply(c.Request.Context(), service.AddReplyRequest{
		ReplyContent:    req.ReplyContent,
		ParentCommentID: req.ParentCommentID,
		ParentReplyID:   req.ParentReplyID,
	}, requesterID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "reply added successfully", reply)
}

// EditContent handles edits of comments and replies
// PUT /api/v1/comments/edit-comment/:contentId?kind=comment|reply
func (h *CommentHandler) EditContent(c *gin.Context) {
	ref, ok := contentRef(c)
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		util.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.commentService.EditContent(c.Request.Context(), ref, requesterID(c), req.Content)
	if err != nil {
		util.HandleError(c, err)
		return
	}

	if result.Kind == model.ContentKindReply {
		util.SuccessResponse(c, http.StatusOK, "reply updated successfully", result.Reply)
		return
	}
	util.SuccessResponse(c, http.StatusOK, "comment updated successfully", result.Comment)
}

// DeleteContent handles deletion of comments (with cascade) and replies
// DELETE /api/v1/comments/delete-comment/:contentId?kind=comment|reply
func (h *CommentHandler) DeleteContent(c *gin.Context) {
	ref, ok := contentRef(c)
	if !ok {
		return
	}

	deleted, err := h.commentService.DeleteContent(c.Request.Context(), ref, requesterID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, string(deleted.Kind)+" deleted successfully", deleted)
}

// ListTopLevel handles the paginated comment listing of a video
// GET /api/v1/comments/main-parent-comments/:videoId?page=1&limit=5
func (h *CommentHandler) ListTopLevel(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	result, err := h.commentService.ListTopLevel(c.Request.Context(), c.Param("videoId"), page, limit)
	if err != nil {
		util.HandleError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comments fetched successfully", result)
}

// ListNestedReplies handles the reply subtree below a reply
// GET /api/v1/comments/nested-comments/:parentReplyId?limit=3
func (h *CommentHandler) ListNestedReplies(c *gin.Context) {
	depth, ok := queryInt(c, "limit", h.nestedDepth)
	if !ok {
		return
	}

	replies, err := h.commentService.ListNestedReplies(c.Request.Context(), c.Param("parentReplyId"), depth)
	if err != nil {
		util.HandleError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "nested replies fetched successfully", replies)
}

func contentRef(c *gin.Context) (service.ContentRef, bool) {
	kind, ok := model.ParseContentKind(c.Query("kind"))
	if !ok {
		util.BadRequest(c, "kind must be comment or reply")
		return service.ContentRef{}, false
	}
	return service.ContentRef{ID: c.Param("contentId"), Kind: kind}, true
}

// queryInt reads an integer query parameter, writing a 400 when it is malformed.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		util.BadRequest(c, name+" must be a number")
		return 0, false
	}
	return n, true
}
