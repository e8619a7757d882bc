package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"vidtube/internal/model"
	"vidtube/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type LikeRepository interface {
	Create(ctx context.Context, like *model.Like) error
	FindByOwnerAndTarget(ctx context.Context, ownerID, targetKind, targetID string) (*model.Like, error)
	FindByOwnerAndKind(ctx context.Context, ownerID, targetKind string) ([]model.Like, error)
	Delete(ctx context.Context, like *model.Like) error
	DeleteByTargets(ctx context.Context, targetKind string, targetIDs []string) (int64, error)
	CountByTarget(ctx context.Context, targetKind, targetID string) (int64, error)
	CountByTargets(ctx context.Context, targetKind string, targetIDs []string) (map[string]int64, error)
	OrphanCommentLikeIDs(ctx context.Context) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

type likeRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	likeCountCachePrefix = "like:count:"
	likeCacheExpiration  = 10 * time.Minute
)

func NewLikeRepository(db *gorm.DB, redis *util.RedisClient) LikeRepository {
	return &likeRepository{
		db:    db,
		redis: redis,
	}
}

// Create creates a new like and invalidates the target's count
func (r *likeRepository) Create(ctx context.Context, like *model.Like) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		return errors.Wrap(translate(err), "create like")
	}
	r.invalidateCountCache(ctx, like.TargetKind, like.TargetID)
	return nil
}

// FindByOwnerAndTarget finds a like by owner and target (to check if user already liked)
func (r *likeRepository) FindByOwnerAndTarget(ctx context.Context, ownerID, targetKind, targetID string) (*model.Like, error) {
	var like model.Like
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND target_kind = ? AND target_id = ?", ownerID, targetKind, targetID).
		First(&like).Error
	if err != nil {
		return nil, translate(err)
	}
	return &like, nil
}

// FindByOwnerAndKind lists a user's likes of one target kind, newest first
func (r *likeRepository) FindByOwnerAndKind(ctx context.Context, ownerID, targetKind string) ([]model.Like, error) {
	likes := []model.Like{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND target_kind = ?", ownerID, targetKind).
		Order("created_at DESC").
		Find(&likes).Error
	if err != nil {
		return nil, errors.Wrap(err, "find likes by owner")
	}
	return likes, nil
}

// Delete deletes one like and invalidates the target's count
func (r *likeRepository) Delete(ctx context.Context, like *model.Like) error {
	res := r.db.WithContext(ctx).Where("id = ?", like.ID).Delete(&model.Like{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete like")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.invalidateCountCache(ctx, like.TargetKind, like.TargetID)
	return nil
}

// DeleteByTargets removes every like on the given targets
func (r *likeRepository) DeleteByTargets(ctx context.Context, targetKind string, targetIDs []string) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id IN ?", targetKind, targetIDs).
		Delete(&model.Like{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete likes by target")
	}
	for _, id := range targetIDs {
		r.invalidateCountCache(ctx, targetKind, id)
	}
	return res.RowsAffected, nil
}

// CountByTarget counts likes for a target
func (r *likeRepository) CountByTarget(ctx context.Context, targetKind, targetID string) (int64, error) {
	cacheKey := likeCountKey(targetKind, targetID)
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("target_kind = ? AND target_id = ?", targetKind, targetID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count likes")
	}

	if r.redis != nil {
		_ = r.redis.Set(ctx, cacheKey, strconv.FormatInt(count, 10), likeCacheExpiration)
	}
	return count, nil
}

// CountByTargets counts likes for multiple targets in one query
func (r *likeRepository) CountByTargets(ctx context.Context, targetKind string, targetIDs []string) (map[string]int64, error) {
	if len(targetIDs) == 0 {
		return map[string]int64{}, nil
	}
	var results []struct {
		TargetID string
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Select("target_id, count(*) as count").
		Where("target_kind = ? AND target_id IN ?", targetKind, targetIDs).
		Group("target_id").
		Find(&results).Error
	if err != nil {
		return nil, errors.Wrap(err, "count likes by targets")
	}
	m := make(map[string]int64, len(targetIDs))
	for _, id := range targetIDs {
		m[id] = 0
	}
	for _, row := range results {
		m[row.TargetID] = row.Count
	}
	return m, nil
}

// OrphanCommentLikeIDs returns comment-kind likes whose target is neither a comment nor a reply
func (r *likeRepository) OrphanCommentLikeIDs(ctx context.Context) ([]string, error) {
	db := r.db.WithContext(ctx)

	comment := db.Table("comments AS c").Select("1").Where("c.id = l.target_id")
	reply := db.Table("replies AS rp").Select("1").Where("rp.id = l.target_id")

	ids := []string{}
	err := db.Table("likes AS l").
		Where("l.target_kind = ?", model.TargetKindComment).
		Where("NOT EXISTS (?)", comment).
		Where("NOT EXISTS (?)", reply).
		Pluck("l.id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "find orphan likes")
	}
	return ids, nil
}

// DeleteByIDs bulk-deletes likes by id
func (r *likeRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Like{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete likes")
	}
	return res.RowsAffected, nil
}

func likeCountKey(targetKind, targetID string) string {
	return fmt.Sprintf("%s%s:%s", likeCountCachePrefix, targetKind, targetID)
}

func (r *likeRepository) invalidateCountCache(ctx context.Context, targetKind, targetID string) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Delete(ctx, likeCountKey(targetKind, targetID))
}
