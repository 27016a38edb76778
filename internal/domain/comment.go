package domain

import "time"

// Comment is a reply on a thread. ParentID is nil for top-level comments and
// points at another comment for nested replies.
type Comment struct {
	CommentID string  `json:"id" dynamodbav:"comment_id"`
	ThreadID  string  `json:"thread_id" dynamodbav:"thread_id"`
	ParentID  *string `json:"parent_id,omitempty" dynamodbav:"parent_id"`
	OwnerID   string  `json:"owner_id" dynamodbav:"owner_id"`
	Content   string  `json:"content" dynamodbav:"content"`
	VoteState
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// Votable projects the comment into the vote ledger's view. The thread title
// is not available on the comment item, so the title is left to the caller.
func (c *Comment) Votable() *Votable {
	return &Votable{Kind: KindComment, ID: c.CommentID, ThreadID: c.ThreadID, OwnerID: c.OwnerID, VoteState: c.VoteState}
}

// CreateCommentRequest is the payload for POST /threads/{id}/comments.
type CreateCommentRequest struct {
	Content  string  `json:"content" validate:"required,min=1,max=10000"`
	ParentID *string `json:"parent_id,omitempty"`
}

// CommentView is the read-side DTO: the comment plus its author's summary.
type CommentView struct {
	Comment
	Author UserSummary `json:"author"`
}
