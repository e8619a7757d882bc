package service

import (
	"context"

	"vidtube/internal/model"
	"vidtube/internal/repository"
	"vidtube/internal/util"
)

// topLevelPipeline composes the query behind the video comment listing.
func topLevelPipeline(videoID string, page, limit int) *repository.Pipeline {
	return repository.NewPipeline().
		Match("by-video", "video_id = ?", videoID).
		Lookup("owner", "Owner", model.IdentityColumns...).
		Sort("newest-first", "created_at DESC, id DESC").
		Paginate(page, limit)
}

// ListTopLevel returns one page of a video's comments, newest first, each with its
// like count and its parent replies (oldest first). Nested replies are not included.
func (s *commentService) ListTopLevel(ctx context.Context, videoID string, page, limit int) (*model.Page[model.CommentWithParentReplies], error) {
	if err := validateID(videoID, "Invalid Video Id"); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.pageSize
	}
	if limit > MaxCommentPageSize {
		limit = MaxCommentPageSize
	}

	if cached, ok := s.cache.Get(ctx, videoID, page, limit); ok {
		return cached, nil
	}

	comments, total, err := s.store.Comments.FindPage(ctx, topLevelPipeline(videoID, page, limit))
	if err != nil {
		return nil, util.NewInternalError(err, "internal server error while fetching comments")
	}

	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	replies, err := s.store.Replies.FindByParentComments(ctx, ids)
	if err != nil {
		return nil, util.NewInternalError(err, "internal server error while fetching comments")
	}
	byParent := make(map[string][]model.Reply, len(ids))
	for _, r := range replies {
		byParent[*r.ParentCommentID] = append(byParent[*r.ParentCommentID], r)
	}

	likes, err := s.store.Likes.CountByTargets(ctx, model.TargetKindComment, ids)
	if err != nil {
		return nil, util.NewInternalError(err, "internal server error while fetching comments")
	}

	docs := make([]model.CommentWithParentReplies, len(comments))
	for i, c := range comments {
		parentReplies := byParent[c.ID]
		if parentReplies == nil {
			parentReplies = []model.Reply{}
		}
		docs[i] = model.CommentWithParentReplies{
			Comment:       c,
			LikesCount:    likes[c.ID],
			ParentReplies: parentReplies,
		}
	}

	result := model.NewPage(docs, total, page, limit)
	s.cache.Set(ctx, videoID, page, limit, &result)
	return &result, nil
}

// ListNestedReplies returns the reply subtree below parentReplyID, at most depth
// levels deep. Each level is fetched with one query and owners are resolved once
// per request. A depth of 0 yields an empty result.
func (s *commentService) ListNestedReplies(ctx context.Context, parentReplyID string, depth int) ([]*model.NestedReply, error) {
	if err := validateID(parentReplyID, "reply not found, invalid reply id"); err != nil {
		return nil, err
	}
	if depth < 0 {
		return nil, util.NewValidationError("limit must be a non-negative number")
	}
	if depth > MaxNestedReplyDepth {
		depth = MaxNestedReplyDepth
	}

	roots := []*model.NestedReply{}
	owners := make(map[string]*model.User)
	visited := map[string]struct{}{parentReplyID: {}}

	// nodes of the level being expanded, in output order
	frontier := []string{parentReplyID}
	nodes := map[string]*model.NestedReply{}

	for level := 0; level < depth && len(frontier) > 0; level++ {
		children, err := s.store.Replies.FindByParentReplies(ctx, frontier)
		if err != nil {
			return nil, util.NewInternalError(err, "internal server error while fetching replies")
		}
		if len(children) == 0 {
			break
		}
		if err := s.resolveOwners(ctx, children, owners); err != nil {
			return nil, err
		}

		next := make([]string, 0, len(children))
		nextNodes := make(map[string]*model.NestedReply, len(children))
		for _, child := range children {
			if _, seen := visited[child.ID]; seen {
				continue
			}
			visited[child.ID] = struct{}{}

			child.Owner = owners[child.OwnerID]
			node := &model.NestedReply{Reply: child, NestedReplies: []*model.NestedReply{}}
			if level == 0 {
				roots = append(roots, node)
			} else if parent := nodes[*child.ParentReplyID]; parent != nil {
				parent.NestedReplies = append(parent.NestedReplies, node)
			}
			next = append(next, child.ID)
			nextNodes[child.ID] = node
		}
		frontier, nodes = next, nextNodes
	}
	return roots, nil
}

// resolveOwners loads the identities of owners not yet in memo.
func (s *commentService) resolveOwners(ctx context.Context, replies []model.Reply, memo map[string]*model.User) error {
	var missing []string
	for _, r := range replies {
		if _, ok := memo[r.OwnerID]; !ok {
			memo[r.OwnerID] = nil
			missing = append(missing, r.OwnerID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	identities, err := s.users.FindIdentities(ctx, missing)
	if err != nil {
		return util.NewInternalError(err, "internal server error while fetching replies")
	}
	for id, u := range identities {
		u := u
		memo[id] = &u
	}
	return nil
}
