package repository

import (
	"context"

	"vidtube/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReplyRepository interface {
	Create(ctx context.Context, reply *model.Reply) error
	FindByID(ctx context.Context, id string) (*model.Reply, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateContent(ctx context.Context, id, ownerID, content string) (*model.Reply, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Reply, error)
	FindByParentComments(ctx context.Context, commentIDs []string) ([]model.Reply, error)
	FindByParentReplies(ctx context.Context, replyIDs []string) ([]model.Reply, error)
	IDsByParentComments(ctx context.Context, commentIDs []string) ([]string, error)
	IDsByParentReplies(ctx context.Context, replyIDs []string) ([]string, error)
	DeleteByParentComment(ctx context.Context, commentID string) (int64, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	OrphanIDs(ctx context.Context) ([]string, error)
}

type replyRepository struct {
	db *gorm.DB
}

func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

// Create creates a new reply
func (r *replyRepository) Create(ctx context.Context, reply *model.Reply) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(reply).Error; err != nil {
		return errors.Wrap(translate(err), "create reply")
	}
	return nil
}

// FindByID finds a reply by ID with its owner identity
func (r *replyRepository) FindByID(ctx context.Context, id string) (*model.Reply, error) {
	var reply model.Reply
	err := r.db.WithContext(ctx).
		Preload("Owner", selectIdentity).
		Where("id = ?", id).
		First(&reply).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reply, nil
}

// Exists reports whether a reply with id exists
func (r *replyRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Reply{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "probe reply")
	}
	return count > 0, nil
}

// UpdateContent updates reply_content only when id and owner both match
func (r *replyRepository) UpdateContent(ctx context.Context, id, ownerID, content string) (*model.Reply, error) {
	res := r.db.WithContext(ctx).Model(&model.Reply{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("reply_content", content)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update reply")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// DeleteByIDAndOwner removes a reply only when id and owner both match
func (r *replyRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Reply, error) {
	var reply model.Reply
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&reply).Error
	if err != nil {
		return nil, translate(err)
	}

	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&model.Reply{})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "delete reply")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &reply, nil
}

// FindByParentComments returns the parent replies of the given comments, oldest first,
// with owner identities
func (r *replyRepository) FindByParentComments(ctx context.Context, commentIDs []string) ([]model.Reply, error) {
	if len(commentIDs) == 0 {
		return []model.Reply{}, nil
	}
	var replies []model.Reply
	err := r.db.WithContext(ctx).
		Preload("Owner", selectIdentity).
		Where("parent_comment_id IN ?", commentIDs).
		Order("created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, errors.Wrap(err, "find parent replies")
	}
	return replies, nil
}

// FindByParentReplies returns the direct children of the given replies, oldest first.
// Owners are not joined; callers resolve them in bulk.
func (r *replyRepository) FindByParentReplies(ctx context.Context, replyIDs []string) ([]model.Reply, error) {
	if len(replyIDs) == 0 {
		return []model.Reply{}, nil
	}
	var replies []model.Reply
	err := r.db.WithContext(ctx).
		Where("parent_reply_id IN ?", replyIDs).
		Order("created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, errors.Wrap(err, "find nested replies")
	}
	return replies, nil
}

// IDsByParentComments returns the ids of the parent replies of the given comments
func (r *replyRepository) IDsByParentComments(ctx context.Context, commentIDs []string) ([]string, error) {
	ids := []string{}
	if len(commentIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&model.Reply{}).
		Where("parent_comment_id IN ?", commentIDs).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "collect parent reply ids")
	}
	return ids, nil
}

// IDsByParentReplies returns the ids of the direct children of the given replies
func (r *replyRepository) IDsByParentReplies(ctx context.Context, replyIDs []string) ([]string, error) {
	ids := []string{}
	if len(replyIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&model.Reply{}).
		Where("parent_reply_id IN ?", replyIDs).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "collect nested reply ids")
	}
	return ids, nil
}

// DeleteByParentComment bulk-deletes the parent replies of a comment
func (r *replyRepository) DeleteByParentComment(ctx context.Context, commentID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("parent_comment_id = ?", commentID).
		Delete(&model.Reply{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete parent replies")
	}
	return res.RowsAffected, nil
}

// DeleteByIDs bulk-deletes replies by id
func (r *replyRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&model.Reply{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete replies")
	}
	return res.RowsAffected, nil
}

// OrphanIDs returns replies whose parent comment or parent reply no longer exists
func (r *replyRepository) OrphanIDs(ctx context.Context) ([]string, error) {
	db := r.db.WithContext(ctx)

	missingComment := db.Table("comments AS c").Select("1").Where("c.id = r.parent_comment_id")
	missingReply := db.Table("replies AS p").Select("1").Where("p.id = r.parent_reply_id")

	ids := []string{}
	err := db.Table("replies AS r").
		Where("r.parent_comment_id IS NOT NULL AND NOT EXISTS (?)", missingComment).
		Or("r.parent_reply_id IS NOT NULL AND NOT EXISTS (?)", missingReply).
		Pluck("r.id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "find orphan replies")
	}
	return ids, nil
}
