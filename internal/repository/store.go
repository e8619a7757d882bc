package repository

import (
	"context"

	"vidtube/internal/model"
	"vidtube/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches, including conditional
	// updates and deletes whose owner filter did not match.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the repositories that take part in one transaction.
type Store struct {
	db       *gorm.DB
	redis    *util.RedisClient
	Comments CommentRepository
	Replies  ReplyRepository
	Likes    LikeRepository
}

func NewStore(db *gorm.DB, redis *util.RedisClient) *Store {
	return &Store{
		db:       db,
		redis:    redis,
		Comments: NewCommentRepository(db),
		Replies:  NewReplyRepository(db),
		Likes:    NewLikeRepository(db, redis),
	}
}

// Transaction runs fn with repositories bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.redis))
	})
}

// Migrate creates or updates the tables owned by the comment engine.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.Comment{}, &model.Reply{}, &model.Like{})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
