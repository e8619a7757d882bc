package service

import (
	"context"

	"vidtube/internal/model"
	"vidtube/internal/repository"
	"vidtube/internal/util"

	"github.com/pkg/errors"
)

type LikeService interface {
	ToggleLike(ctx context.Context, ownerID, targetKind, targetID string) (*ToggleResult, error)
	CountLikes(ctx context.Context, targetKind, targetID string) (int64, error)
	LikedTargets(ctx context.Context, ownerID, targetKind string) ([]model.Like, error)
}

// ToggleResult tells whether the toggle created a like or removed one.
type ToggleResult struct {
	Liked bool        `json:"liked"`
	Like  *model.Like `json:"like,omitempty"`
}

type likeService struct {
	store *repository.Store
	cache *repository.CommentPageCache
}

func NewLikeService(store *repository.Store, cache *repository.CommentPageCache) LikeService {
	return &likeService{
		store: store,
		cache: cache,
	}
}

// ToggleLike removes the requester's like on the target if there is one and creates
// it otherwise. Comment likes also cover replies; the target must exist.
func (s *likeService) ToggleLike(ctx context.Context, ownerID, targetKind, targetID string) (*ToggleResult, error) {
	if err := requireRequester(ownerID); err != nil {
		return nil, err
	}
	if !model.IsValidTargetKind(targetKind) {
		return nil, util.NewValidationError("invalid like target")
	}
	if err := validateID(targetID, targetKind+" id is invalid"); err != nil {
		return nil, err
	}

	videoID := ""
	if targetKind == model.TargetKindComment {
		var err error
		if videoID, err = s.commentTarget(ctx, targetID); err != nil {
			return nil, err
		}
	}

	existing, err := s.store.Likes.FindByOwnerAndTarget(ctx, ownerID, targetKind, targetID)
	switch {
	case err == nil:
		if err := s.store.Likes.Delete(ctx, existing); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewInternalError(err, "internal server error while removing a like")
		}
		s.cache.InvalidateVideo(ctx, videoID)
		return &ToggleResult{Liked: false}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, util.NewInternalError(err, "internal server error while toggling a like")
	}

	like := &model.Like{
		OwnerID:    ownerID,
		TargetKind: targetKind,
		TargetID:   targetID,
	}
	if err := s.store.Likes.Create(ctx, like); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.NewConflictError("already liked")
		}
		return nil, util.NewInternalError(err, "internal server error while adding a like")
	}
	s.cache.InvalidateVideo(ctx, videoID)
	return &ToggleResult{Liked: true, Like: like}, nil
}

// commentTarget checks that a comment-kind target exists and returns the video of
// the comment, or "" for a reply.
func (s *likeService) commentTarget(ctx context.Context, targetID string) (string, error) {
	comment, err := s.store.Comments.FindByID(ctx, targetID)
	if err == nil {
		return comment.VideoID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", util.NewInternalError(err, "internal server error while toggling a like")
	}
	ok, err := s.store.Replies.Exists(ctx, targetID)
	if err != nil {
		return "", util.NewInternalError(err, "internal server error while toggling a like")
	}
	if !ok {
		return "", util.NewNotFoundOrUnauthorized("comment not found")
	}
	return "", nil
}

func (s *likeService) CountLikes(ctx context.Context, targetKind, targetID string) (int64, error) {
	if !model.IsValidTargetKind(targetKind) {
		return 0, util.NewValidationError("invalid like target")
	}
	if err := validateID(targetID, targetKind+" id is invalid"); err != nil {
		return 0, err
	}
	count, err := s.store.Likes.CountByTarget(ctx, targetKind, targetID)
	if err != nil {
		return 0, util.NewInternalError(err, "internal server error while counting likes")
	}
	return count, nil
}

// LikedTargets lists what the requester liked of one kind.
func (s *likeService) LikedTargets(ctx context.Context, ownerID, targetKind string) ([]model.Like, error) {
	if err := requireRequester(ownerID); err != nil {
		return nil, err
	}
	if !model.IsValidTargetKind(targetKind) {
		return nil, util.NewValidationError("invalid like target")
	}
	likes, err := s.store.Likes.FindByOwnerAndKind(ctx, ownerID, targetKind)
	if err != nil {
		return nil, util.NewInternalError(err, "internal server error while fetching liked items")
	}
	return likes, nil
}
