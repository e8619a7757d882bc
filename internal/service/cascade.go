package service

import (
	"context"
	"time"

	"vidtube/internal/model"
	"vidtube/internal/repository"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CascadeMode selects how multi-step deletes are executed.
type CascadeMode int

const (
	// CascadeTransactional runs the delete and its whole fan-out in one transaction.
	CascadeTransactional CascadeMode = iota
	// CascadeBestEffort runs each step on its own; failed steps are logged,
	// recorded and left for the reconcile sweep.
	CascadeBestEffort
)

// maxReconcilePasses bounds the orphan sweep. Every pass removes one level of
// orphaned replies.
const maxReconcilePasses = 64

// CascadeFailure is one step of a best-effort cascade that did not complete.
type CascadeFailure struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// CascadeResult counts what a delete removed besides the record itself.
type CascadeResult struct {
	RepliesDeleted       int64            `json:"repliesDeleted"`
	NestedRepliesDeleted int64            `json:"nestedRepliesDeleted"`
	LikesDeleted         int64            `json:"likesDeleted"`
	Levels               int              `json:"levels"`
	Failures             []CascadeFailure `json:"failures,omitempty"`
}

// Partial reports whether some step failed in best-effort mode.
func (r *CascadeResult) Partial() bool {
	return len(r.Failures) > 0
}

// ReconcileRequest asks the reconcile worker to sweep orphans left by a partial cascade.
type ReconcileRequest struct {
	ContentID   string           `json:"contentId"`
	Kind        string           `json:"kind"`
	Failures    []CascadeFailure `json:"failures"`
	RequestedAt time.Time        `json:"requestedAt"`
}

// ReconcileResult counts what one orphan sweep removed.
type ReconcileResult struct {
	RepliesDeleted int64 `json:"repliesDeleted"`
	LikesDeleted   int64 `json:"likesDeleted"`
	Passes         int   `json:"passes"`
}

// ReconcilePublisher hands reconcile requests to the background worker.
type ReconcilePublisher interface {
	PublishReconcile(ctx context.Context, req ReconcileRequest) error
}

// CascadeCoordinator deletes comments and replies together with everything that
// references them.
type CascadeCoordinator struct {
	store     *repository.Store
	mode      CascadeMode
	publisher ReconcilePublisher
}

func NewCascadeCoordinator(store *repository.Store, mode CascadeMode, publisher ReconcilePublisher) *CascadeCoordinator {
	return &CascadeCoordinator{
		store:     store,
		mode:      mode,
		publisher: publisher,
	}
}

// cascadeRun executes the steps of one cascade and collects the result.
// In strict mode the first failing step aborts the run.
type cascadeRun struct {
	ctx    context.Context
	store  *repository.Store
	strict bool
	result *CascadeResult
	log    *logrus.Entry
}

func (r *cascadeRun) step(name string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if r.strict {
		return errors.Wrapf(err, "cascade step %s", name)
	}
	r.log.WithError(err).WithField("step", name).Warn("cascade step failed, continuing")
	r.result.Failures = append(r.result.Failures, CascadeFailure{Step: name, Error: err.Error()})
	return nil
}

// DeleteComment removes a comment owned by ownerID, then its likes, its parent
// replies and every reply below them at any depth, with the likes of each.
// repository.ErrNotFound is returned when no comment matches id and owner.
func (c *CascadeCoordinator) DeleteComment(ctx context.Context, commentID, ownerID string) (*model.Comment, *CascadeResult, error) {
	log := logrus.WithFields(logrus.Fields{"comment_id": commentID, "mode": c.modeName()})

	if c.mode == CascadeTransactional {
		var (
			deleted *model.Comment
			result  *CascadeResult
		)
		err := c.store.Transaction(ctx, func(tx *repository.Store) error {
			var err error
			deleted, err = tx.Comments.DeleteByIDAndOwner(ctx, commentID, ownerID)
			if err != nil {
				return err
			}
			run := &cascadeRun{ctx: ctx, store: tx, strict: true, result: &CascadeResult{}, log: log}
			if err := run.commentDescendants(commentID); err != nil {
				return err
			}
			result = run.result
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(resultFields(result)).Info("comment deleted")
		return deleted, result, nil
	}

	deleted, err := c.store.Comments.DeleteByIDAndOwner(ctx, commentID, ownerID)
	if err != nil {
		return nil, nil, err
	}
	run := &cascadeRun{ctx: ctx, store: c.store, result: &CascadeResult{}, log: log}
	// never returns an error in best-effort mode
	_ = run.commentDescendants(commentID)
	c.requestReconcile(ctx, commentID, model.ContentKindComment, run.result)
	log.WithFields(resultFields(run.result)).Info("comment deleted")
	return deleted, run.result, nil
}

// DeleteReply removes a reply owned by ownerID, the likes on it, and its id from
// the parent comment's reply list. Replies nested below it are not removed here;
// they stay orphaned until ReconcileOrphans sweeps them.
func (c *CascadeCoordinator) DeleteReply(ctx context.Context, replyID, ownerID string) (*model.Reply, *CascadeResult, error) {
	log := logrus.WithFields(logrus.Fields{"reply_id": replyID, "mode": c.modeName()})

	remove := func(run *cascadeRun) (*model.Reply, error) {
		deleted, err := run.store.Replies.DeleteByIDAndOwner(ctx, replyID, ownerID)
		if err != nil {
			return nil, err
		}
		err = run.step("delete reply likes", func() error {
			n, err := run.store.Likes.DeleteByTargets(ctx, model.TargetKindComment, []string{replyID})
			run.result.LikesDeleted += n
			return err
		})
		if err != nil {
			return nil, err
		}
		if deleted.ParentCommentID != nil {
			err = run.step("unlink from comment", func() error {
				err := run.store.Comments.RemoveReplyID(ctx, *deleted.ParentCommentID, replyID)
				if errors.Is(err, repository.ErrNotFound) {
					return nil
				}
				return err
			})
			if err != nil {
				return nil, err
			}
		}
		return deleted, nil
	}

	if c.mode == CascadeTransactional {
		var (
			deleted *model.Reply
			run     *cascadeRun
		)
		err := c.store.Transaction(ctx, func(tx *repository.Store) error {
			run = &cascadeRun{ctx: ctx, store: tx, strict: true, result: &CascadeResult{}, log: log}
			var err error
			deleted, err = remove(run)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		log.WithFields(resultFields(run.result)).Info("reply deleted")
		return deleted, run.result, nil
	}

	run := &cascadeRun{ctx: ctx, store: c.store, result: &CascadeResult{}, log: log}
	deleted, err := remove(run)
	if err != nil {
		return nil, nil, err
	}
	c.requestReconcile(ctx, replyID, model.ContentKindReply, run.result)
	log.WithFields(resultFields(run.result)).Info("reply deleted")
	return deleted, run.result, nil
}

// commentDescendants runs the ordered fan-out for a comment that is already gone.
// Likes are always removed before the records they target, and the ids of each
// level are captured before that level is deleted.
func (r *cascadeRun) commentDescendants(commentID string) error {
	ctx, s := r.ctx, r.store

	err := r.step("delete comment likes", func() error {
		n, err := s.Likes.DeleteByTargets(ctx, model.TargetKindComment, []string{commentID})
		r.result.LikesDeleted += n
		return err
	})
	if err != nil {
		return err
	}

	var parentIDs []string
	captured := true
	err = r.step("collect parent replies", func() error {
		var err error
		parentIDs, err = s.Replies.IDsByParentComments(ctx, []string{commentID})
		if err != nil {
			captured = false
		}
		return err
	})
	if err != nil {
		return err
	}

	err = r.step("delete parent reply likes", func() error {
		n, err := s.Likes.DeleteByTargets(ctx, model.TargetKindComment, parentIDs)
		r.result.LikesDeleted += n
		return err
	})
	if err != nil {
		return err
	}

	err = r.step("delete parent replies", func() error {
		n, err := s.Replies.DeleteByParentComment(ctx, commentID)
		r.result.RepliesDeleted += n
		return err
	})
	if err != nil {
		return err
	}
	if !captured || r.result.RepliesDeleted == 0 {
		return nil
	}
	r.result.Levels = 1

	visited := make(map[string]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		visited[id] = struct{}{}
	}

	frontier := parentIDs
	for depth := 2; len(frontier) > 0; depth++ {
		var next []string
		err := r.step("collect nested replies", func() error {
			ids, err := s.Replies.IDsByParentReplies(ctx, frontier)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if _, seen := visited[id]; seen {
					continue
				}
				visited[id] = struct{}{}
				next = append(next, id)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(next) == 0 {
			break
		}

		err = r.step("delete nested reply likes", func() error {
			n, err := s.Likes.DeleteByTargets(ctx, model.TargetKindComment, next)
			r.result.LikesDeleted += n
			return err
		})
		if err != nil {
			return err
		}
		err = r.step("delete nested replies", func() error {
			n, err := s.Replies.DeleteByIDs(ctx, next)
			r.result.NestedRepliesDeleted += n
			return err
		})
		if err != nil {
			return err
		}

		r.result.Levels = depth
		frontier = next
	}
	return nil
}

// ReconcileOrphans removes replies whose parent comment or reply no longer exists,
// level by level, and comment likes whose target no longer exists.
func (c *CascadeCoordinator) ReconcileOrphans(ctx context.Context) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	s := c.store

	for result.Passes < maxReconcilePasses {
		ids, err := s.Replies.OrphanIDs(ctx)
		if err != nil {
			return result, err
		}
		if len(ids) == 0 {
			break
		}
		result.Passes++

		n, err := s.Likes.DeleteByTargets(ctx, model.TargetKindComment, ids)
		if err != nil {
			return result, err
		}
		result.LikesDeleted += n

		n, err = s.Replies.DeleteByIDs(ctx, ids)
		if err != nil {
			return result, err
		}
		result.RepliesDeleted += n
	}

	likeIDs, err := s.Likes.OrphanCommentLikeIDs(ctx)
	if err != nil {
		return result, err
	}
	n, err := s.Likes.DeleteByIDs(ctx, likeIDs)
	if err != nil {
		return result, err
	}
	result.LikesDeleted += n

	if result.RepliesDeleted > 0 || result.LikesDeleted > 0 {
		logrus.WithFields(logrus.Fields{
			"replies_deleted": result.RepliesDeleted,
			"likes_deleted":   result.LikesDeleted,
			"passes":          result.Passes,
		}).Info("orphans reconciled")
	}
	return result, nil
}

func (c *CascadeCoordinator) requestReconcile(ctx context.Context, contentID string, kind model.ContentKind, result *CascadeResult) {
	if !result.Partial() || c.publisher == nil {
		return
	}
	req := ReconcileRequest{
		ContentID:   contentID,
		Kind:        string(kind),
		Failures:    result.Failures,
		RequestedAt: time.Now(),
	}
	if err := c.publisher.PublishReconcile(ctx, req); err != nil {
		logrus.WithError(err).WithField("content_id", contentID).Error("failed to publish reconcile request")
	}
}

func (c *CascadeCoordinator) modeName() string {
	if c.mode == CascadeTransactional {
		return "transactional"
	}
	return "best-effort"
}

func resultFields(r *CascadeResult) logrus.Fields {
	return logrus.Fields{
		"replies_deleted":        r.RepliesDeleted,
		"nested_replies_deleted": r.NestedRepliesDeleted,
		"likes_deleted":          r.LikesDeleted,
		"failures":               len(r.Failures),
	}
}
