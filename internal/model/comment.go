package model

import "time"

// Comment is a node of a thread's comment forest. ParentCommentID may point at a
// row that no longer exists once the parent has been deleted.
type Comment struct {
	ID              int64     `json:"id" db:"id"`
	ThreadID        int64     `json:"thread_id" db:"thread_id"`
	AuthorID        int64     `json:"author_id" db:"author_id"`
	Body            string    `json:"body" db:"body"`
	PostedAt        time.Time `json:"posted_at" db:"posted_at"`
	ParentCommentID *int64    `json:"parent_comment_id,omitempty" db:"parent_comment_id"`
	RepliesCount    *int      `json:"replies_count,omitempty" db:"replies_count"`
}

func (c Comment) Cursor() Cursor {
	return Cursor{At: c.PostedAt, ID: c.ID}
}

type CommentNode struct {
	Comment Comment `json:"comment"`
	Depth   int     `json:"depth"`
}
