package repository

import (
	"context"

	"vidtube/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, id string) (*model.Comment, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateContent(ctx context.Context, id, ownerID, content string) (*model.Comment, error)
	AppendReplyID(ctx context.Context, commentID, replyID string) error
	RemoveReplyID(ctx context.Context, commentID, replyID string) error
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Comment, error)
	FindPage(ctx context.Context, p *Pipeline) ([]model.Comment, int64, error)
	CountByVideo(ctx context.Context, videoID string) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create creates a new comment
func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return errors.Wrap(translate(err), "create comment")
	}
	return nil
}

// FindByID finds a comment by ID with its owner identity
func (r *commentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.WithContext(ctx).
		Preload("Owner", selectIdentity).
		Where("id = ?", id).
		First(&comment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

// Exists reports whether a comment with id exists
func (r *commentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "probe comment")
	}
	return count > 0, nil
}

// UpdateContent updates the content only when id and owner both match
func (r *commentRepository) UpdateContent(ctx context.Context, id, ownerID, content string) (*model.Comment, error) {
	res := r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("content", content)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update comment")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// AppendReplyID appends replyID to the comment's ordered reply list
func (r *commentRepository) AppendReplyID(ctx context.Context, commentID, replyID string) error {
	return r.mutateReplyIDs(ctx, commentID, func(ids []string) []string {
		return append(ids, replyID)
	})
}

// RemoveReplyID drops replyID from the comment's reply list
func (r *commentRepository) RemoveReplyID(ctx context.Context, commentID, replyID string) error {
	return r.mutateReplyIDs(ctx, commentID, func(ids []string) []string {
		kept := ids[:0]
		for _, id := range ids {
			if id != replyID {
				kept = append(kept, id)
			}
		}
		return kept
	})
}

// mutateReplyIDs does a locked read-modify-write of reply_ids.
func (r *commentRepository) mutateReplyIDs(ctx context.Context, commentID string, fn func([]string) []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "reply_ids").
			Where("id = ?", commentID).
			First(&comment).Error
		if err != nil {
			return translate(err)
		}

		ids := fn(append([]string{}, comment.ReplyIDs...))
		if ids == nil {
			ids = []string{}
		}
		return tx.Model(&model.Comment{ID: commentID}).
			Select("reply_ids").
			Updates(&model.Comment{ReplyIDs: ids}).Error
	})
}

// DeleteByIDAndOwner removes a comment only when id and owner both match.
// The deleted row is returned.
func (r *commentRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&comment).Error
	if err != nil {
		return nil, translate(err)
	}

	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&model.Comment{})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "delete comment")
	}
	if res.RowsAffected == 0 {
		// deleted concurrently between the read and the delete
		return nil, ErrNotFound
	}
	return &comment, nil
}

// FindPage runs a composed pipeline and returns the page plus the filtered total
func (r *commentRepository) FindPage(ctx context.Context, p *Pipeline) ([]model.Comment, int64, error) {
	if err := p.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).
		Scopes(p.CountScopes()...).
		Count(&total).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "count comments")
	}

	var comments []model.Comment
	err = r.db.WithContext(ctx).Model(&model.Comment{}).
		Scopes(p.Scopes()...).
		Find(&comments).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "find comments")
	}
	return comments, total, nil
}

// CountByVideo counts comments by video ID
func (r *commentRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("video_id = ?", videoID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count comments")
	}
	return count, nil
}

func selectIdentity(tx *gorm.DB) *gorm.DB {
	return tx.Select(model.IdentityColumns)
}
