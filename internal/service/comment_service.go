package service

import (
	"context"

	"vidtube/internal/model"
	"vidtube/internal/repository"
	"vidtube/internal/util"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCommentPageSize  = 5
	DefaultNestedReplyDepth = 3
	MaxCommentPageSize      = 100
	MaxNestedReplyDepth     = 10
)

const (
	msgContentLength     = "comment must be between 2 and 255 characters"
	msgNotFoundOrNotYour = "content not found or you are not its owner"
)

type CommentService interface {
	AddComment(ctx context.Context, videoID, requesterID, content string) (*model.Comment, error)
	EditContent(ctx context.Context, ref ContentRef, requesterID, content string) (*ContentResult, error)
	DeleteContent(ctx context.Context, ref ContentRef, requesterID string) (*DeletedEntity, error)
	AddReply(ctx context.Context, req AddReplyRequest, requesterID string) (*model.Reply, error)
	ListTopLevel(ctx context.Context, videoID string, page, limit int) (*model.Page[model.CommentWithParentReplies], error)
	ListNestedReplies(ctx context.Context, parentReplyID string, depth int) ([]*model.NestedReply, error)
}

// ContentRef addresses a comment or a reply. An empty Kind means the caller does
// not know which one, and both tables are probed, comments first.
type ContentRef struct {
	ID   string
	Kind model.ContentKind
}

// ContentResult holds whichever record an edit touched.
type ContentResult struct {
	Kind    model.ContentKind `json:"kind"`
	Comment *model.Comment    `json:"comment,omitempty"`
	Reply   *model.Reply      `json:"reply,omitempty"`
}

// DeletedEntity is the removed record plus what its cascade removed.
type DeletedEntity struct {
	Kind    model.ContentKind `json:"kind"`
	Comment *model.Comment    `json:"comment,omitempty"`
	Reply   *model.Reply      `json:"reply,omitempty"`
	Cascade *CascadeResult    `json:"cascade"`
}

type AddReplyRequest struct {
	ReplyContent    string `json:"replyContent"`
	ParentCommentID string `json:"parentCommentId"`
	ParentReplyID   string `json:"parentReplyId"`
}

// CommentOptions tunes listing defaults.
type CommentOptions struct {
	PageSize         int
	NestedReplyDepth int
}

type commentService struct {
	store    *repository.Store
	users    repository.UserRepository
	cache    *repository.CommentPageCache
	cascade  *CascadeCoordinator
	pageSize int
	depth    int
}

func NewCommentService(
	store *repository.Store,
	users repository.UserRepository,
	cache *repository.CommentPageCache,
	cascade *CascadeCoordinator,
	opts CommentOptions,
) CommentService {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultCommentPageSize
	}
	if opts.NestedReplyDepth <= 0 {
		opts.NestedReplyDepth = DefaultNestedReplyDepth
	}
	return &commentService{
		store:    store,
		users:    users,
		cache:    cache,
		cascade:  cascade,
		pageSize: opts.PageSize,
		depth:    opts.NestedReplyDepth,
	}
}

// AddComment creates a comment with an empty reply list and returns it with its owner
func (s *commentService) AddComment(ctx context.Context, videoID, requesterID, content string) (*model.Comment, error) {
	if err := validateContent(content, msgContentLength); err != nil {
		return nil, err
	}
	if err := validateID(videoID, "video not found, invalid video id"); err != nil {
		return nil, err
	}
	if err := requireRequester(requesterID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		VideoID: videoID,
		OwnerID: requesterID,
		Content: content,
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, util.NewInternalError(err, "internal server error while inserting a comment")
	}
	s.cache.InvalidateVideo(ctx, videoID)

	created, err := s.store.Comments.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, util.NewInternalError(err, "internal server error while inserting a comment")
	}
	return created, nil
}

// EditContent updates a comment's content or a reply's replyContent. Only the
// owner can edit; a foreign id and a missing id fail the same way.
func (s *commentService) EditContent(ctx context.Context, ref ContentRef, requesterID, content string) (*ContentResult, error) {
	if err := validateContent(content, msgContentLength); err != nil {
		return nil, err
	}
	if err := validateID(ref.ID, "content not found, invalid content id"); err != nil {
		return nil, err
	}
	if err := requireRequester(requesterID); err != nil {
		return nil, err
	}

	if ref.Kind != model.ContentKindReply {
		comment, err := s.store.Comments.UpdateContent(ctx, ref.ID, requesterID, content)
		switch {
		case err == nil:
			s.cache.InvalidateVideo(ctx, comment.VideoID)
			return &ContentResult{Kind: model.ContentKindComment, Comment: comment}, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, util.NewInternalError(err, "internal server error while updating a comment")
		case ref.Kind == model.ContentKindComment:
			return nil, util.NewNotFoundOrUnauthorized(msgNotFoundOrNotYour)
		}
	}

	reply, err := s.store.Replies.UpdateContent(ctx, ref.ID, requesterID, content)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewNotFoundOrUnauthorized(msgNotFoundOrNotYour)
		}
		return nil, util.NewInternalError(err, "internal server error while updating a reply")
	}
	s.invalidateForReply(ctx, reply)
	return &ContentResult{Kind: model.ContentKindReply, Reply: reply}, nil
}

// DeleteContent deletes a comment with its full cascade, or a single reply.
func (s *commentService) DeleteContent(ctx context.Context, ref ContentRef, requesterID string) (*DeletedEntity, error) {
	if err := validateID(ref.ID, "comment not found, invalid comment id"); err != nil {
		return nil, err
	}
	if err := requireRequester(requesterID); err != nil {
		return nil, err
	}

	kind := ref.Kind
	if kind == "" {
		var err error
		if kind, err = s.probeKind(ctx, ref.ID); err != nil {
			return nil, err
		}
	}

	switch kind {
	case model.ContentKindComment:
		comment, result, err := s.cascade.DeleteComment(ctx, ref.ID, requesterID)
		if err != nil {
			return nil, deleteError(err)
		}
		s.cache.InvalidateVideo(ctx, comment.VideoID)
		return &DeletedEntity{Kind: kind, Comment: comment, Cascade: result}, nil

	case model.ContentKindReply:
		reply, result, err := s.cascade.DeleteReply(ctx, ref.ID, requesterID)
		if err != nil {
			return nil, deleteError(err)
		}
		s.invalidateForReply(ctx, reply)
		return &DeletedEntity{Kind: kind, Reply: reply, Cascade: result}, nil
	}
	return nil, util.NewNotFoundOrUnauthorized(msgNotFoundOrNotYour)
}

// probeKind finds which table holds id, comments first.
func (s *commentService) probeKind(ctx context.Context, id string) (model.ContentKind, error) {
	ok, err := s.store.Comments.Exists(ctx, id)
	if err != nil {
		return "", util.NewInternalError(err, "internal server error while deleting a comment")
	}
	if ok {
		return model.ContentKindComment, nil
	}
	ok, err = s.store.Replies.Exists(ctx, id)
	if err != nil {
		return "", util.NewInternalError(err, "internal server error while deleting a comment")
	}
	if ok {
		return model.ContentKindReply, nil
	}
	return "", util.NewNotFoundOrUnauthorized(msgNotFoundOrNotYour)
}

func deleteError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return util.NewNotFoundOrUnauthorized(msgNotFoundOrNotYour)
	}
	return util.NewInternalError(err, "internal server error while deleting a comment")
}

// AddReply attaches a reply to a reply or to a comment. When both parents are
// given the parent reply wins and the comment is ignored.
func (s *commentService) AddReply(ctx context.Context, req AddReplyRequest, requesterID string) (*model.Reply, error) {
	if err := validateContent(req.ReplyContent, "reply must be between 2 and 255 characters"); err != nil {
		return nil, err
	}
	if err := requireRequester(requesterID); err != nil {
		return nil, err
	}
	if req.ParentCommentID == "" && req.ParentReplyID == "" {
		return nil, util.NewValidationError("parentCommentId or parentReplyId is required")
	}

	reply := &model.Reply{
		ReplyContent: req.ReplyContent,
		OwnerID:      requesterID,
	}

	if req.ParentReplyID != "" {
		if err := validateID(req.ParentReplyID, "parent reply not found, invalid reply id"); err != nil {
			return nil, err
		}
		ok, err := s.store.Replies.Exists(ctx, req.ParentReplyID)
		if err != nil {
			return nil, util.NewInternalError(err, "internal server error while adding a reply")
		}
		if !ok {
			return nil, util.NewNotFoundOrUnauthorized("parent reply not found")
		}
		parentReplyID := req.ParentReplyID
		reply.ParentReplyID = &parentReplyID
		if err := s.store.Replies.Create(ctx, reply); err != nil {
			return nil, util.NewInternalError(err, "internal server error while adding a reply")
		}
		return s.reloadReply(ctx, reply.ID)
	}

	if err := validateID(req.ParentCommentID, "comment not found, invalid comment id"); err != nil {
		return nil, err
	}
	parent, err := s.store.Comments.FindByID(ctx, req.ParentCommentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewNotFoundOrUnauthorized("parent comment not found")
		}
		return nil, util.NewInternalError(err, "internal server error while adding a reply")
	}

	parentCommentID := parent.ID
	reply.ParentCommentID = &parentCommentID
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Replies.Create(ctx, reply); err != nil {
			return err
		}
		return tx.Comments.AppendReplyID(ctx, parent.ID, reply.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewNotFoundOrUnauthorized("parent comment not found")
		}
		return nil, util.NewInternalError(err, "internal server error while adding a reply")
	}
	s.cache.InvalidateVideo(ctx, parent.VideoID)
	return s.reloadReply(ctx, reply.ID)
}

func (s *commentService) reloadReply(ctx context.Context, id string) (*model.Reply, error) {
	reply, err := s.store.Replies.FindByID(ctx, id)
	if err != nil {
		return nil, util.NewInternalError(err, "internal server error while adding a reply")
	}
	return reply, nil
}

// invalidateForReply drops cached pages showing reply. Only parent replies appear
// in the top-level listing.
func (s *commentService) invalidateForReply(ctx context.Context, reply *model.Reply) {
	if reply == nil || reply.ParentCommentID == nil {
		return
	}
	parent, err := s.store.Comments.FindByID(ctx, *reply.ParentCommentID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logrus.WithError(err).WithField("comment_id", *reply.ParentCommentID).Warn("cache invalidation lookup failed")
		}
		return
	}
	s.cache.InvalidateVideo(ctx, parent.VideoID)
}
