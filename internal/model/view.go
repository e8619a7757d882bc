package model

// ContentKind discriminates the two kinds of user content addressed by one id space.
type ContentKind string

const (
	ContentKindComment ContentKind = "comment"
	ContentKindReply   ContentKind = "reply"
)

// ParseContentKind accepts "", "comment" and "reply". The empty kind means unknown.
func ParseContentKind(s string) (ContentKind, bool) {
	switch ContentKind(s) {
	case "", ContentKindComment, ContentKindReply:
		return ContentKind(s), true
	}
	return "", false
}

// CommentWithParentReplies is one entry of the top-level comment listing.
type CommentWithParentReplies struct {
	Comment
	LikesCount    int64   `json:"likesCount"`
	ParentReplies []Reply `json:"parentReplies"`
}

// NestedReply is a node of a reply subtree.
type NestedReply struct {
	Reply
	NestedReplies []*NestedReply `json:"nestedReplies"`
}

// Page is a page/limit paginated result.
type Page[T any] struct {
	Docs          []T   `json:"docs"`
	TotalDocs     int64 `json:"totalDocs"`
	Limit         int   `json:"limit"`
	Page          int   `json:"page"`
	TotalPages    int   `json:"totalPages"`
	PagingCounter int   `json:"pagingCounter"`
	HasPrevPage   bool  `json:"hasPrevPage"`
	HasNextPage   bool  `json:"hasNextPage"`
	PrevPage      *int  `json:"prevPage"`
	NextPage      *int  `json:"nextPage"`
}

// NewPage computes paging metadata from the filtered total.
func NewPage[T any](docs []T, total int64, page, limit int) Page[T] {
	if docs == nil {
		docs = []T{}
	}
	totalPages := 1
	if limit > 0 && total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	p := Page[T]{
		Docs:          docs,
		TotalDocs:     total,
		Limit:         limit,
		Page:          page,
		TotalPages:    totalPages,
		PagingCounter: (page-1)*limit + 1,
		HasPrevPage:   page > 1,
		HasNextPage:   page < totalPages,
	}
	if p.HasPrevPage {
		prev := page - 1
		p.PrevPage = &prev
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	return p
}
