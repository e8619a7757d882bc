package app

import (
	"net/http"

	"vidtube/internal/model"
	"vidtube/internal/service"
	"vidtube/internal/util"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	likeService service.LikeService
}

func NewLikeHandler(likeService service.LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// Toggle returns a handler toggling the requester's like on one target kind
// POST /api/v1/likes/toggle/{v|c|t}/:id
func (h *LikeHandler) Toggle(targetKind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.likeService.ToggleLike(c.Request.Context(), requesterID(c), targetKind, c.Param("id"))
		if err != nil {
			util.HandleError(c, err)
			return
		}

		if result.Liked {
			util.SuccessResponse(c, http.StatusOK, targetKind+" liked successfully", result.Like)
			return
		}
		util.SuccessResponse(c, http.StatusOK, targetKind+" disliked successfully", []interface{}{})
	}
}

// CommentLikes returns the like count of a comment or reply
// GET /api/v1/likes/liked-comments-by-commentId/:contentId
func (h *LikeHandler) CommentLikes(c *gin.Context) {
	h.count(c, model.TargetKindComment, c.Param("contentId"))
}

// VideoLikes returns the like count of a video
// GET /api/v1/likes/liked-videos-by-videoId/v/:videoId
func (h *LikeHandler) VideoLikes(c *gin.Context) {
	h.count(c, model.TargetKindVideo, c.Param("videoId"))
}

func (h *LikeHandler) count(c *gin.Context, targetKind, targetID string) {
	count, err := h.likeService.CountLikes(c.Request.Context(), targetKind, targetID)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.SuccessResponse(c, http.StatusOK, "likes fetched successfully", gin.H{"totalLikes": count})
}

// LikedVideos lists the videos the requester liked
// GET /api/v1/likes/liked-videos
func (h *LikeHandler) LikedVideos(c *gin.Context) {
	likes, err := h.likeService.LikedTargets(c.Request.Context(), requesterID(c), model.TargetKindVideo)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	if len(likes) == 0 {
		util.SuccessResponse(c, http.StatusOK, "No liked videos available", likes)
		return
	}
	util.SuccessResponse(c, http.StatusOK, "liked videos fetched successfully", likes)
}
