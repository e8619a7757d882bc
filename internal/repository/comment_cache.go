package repository

import (
	"context"
	"fmt"
	"time"

	"vidtube/internal/model"
	"vidtube/internal/util"
)

const (
	commentByVideoCachePrefix = "comment:video:"
	commentCacheExpiration    = 15 * time.Minute
)

// CommentPageCache is a look-aside cache for assembled top-level comment pages.
// A nil redis client turns every call into a miss / no-op.
type CommentPageCache struct {
	redis *util.RedisClient
}

func NewCommentPageCache(redis *util.RedisClient) *CommentPageCache {
	return &CommentPageCache{redis: redis}
}

func commentPageKey(videoID string, page, limit int) string {
	return fmt.Sprintf("%s%s:%d:%d", commentByVideoCachePrefix, videoID, page, limit)
}

// Get returns a cached page, or false on miss.
func (c *CommentPageCache) Get(ctx context.Context, videoID string, page, limit int) (*model.Page[model.CommentWithParentReplies], bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	var cached model.Page[model.CommentWithParentReplies]
	if err := c.redis.GetJSON(ctx, commentPageKey(videoID, page, limit), &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

func (c *CommentPageCache) Set(ctx context.Context, videoID string, page, limit int, value *model.Page[model.CommentWithParentReplies]) {
	if c == nil || c.redis == nil {
		return
	}
	_ = c.redis.Set(ctx, commentPageKey(videoID, page, limit), value, commentCacheExpiration)
}

// InvalidateVideo drops every cached page of a video.
func (c *CommentPageCache) InvalidateVideo(ctx context.Context, videoID string) {
	if c == nil || c.redis == nil || videoID == "" {
		return
	}
	_ = c.redis.DeletePattern(ctx, commentByVideoCachePrefix+videoID+":*")
}
