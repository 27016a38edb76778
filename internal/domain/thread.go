package domain

import "time"

// Thread is a discussion thread. The embedded VoteState fields are flattened
// into the item by attributevalue, so vote mutations and content live on the
// same record and share one version counter.
type Thread struct {
	ThreadID     string    `json:"id" dynamodbav:"thread_id"`
	OwnerID      string    `json:"owner_id" dynamodbav:"owner_id"`
	Title        string    `json:"title" dynamodbav:"title"`
	Content      string    `json:"content" dynamodbav:"content"`
	CommentCount int       `json:"comment_count" dynamodbav:"comment_count"`
	VoteState
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Votable projects the thread into the vote ledger's view.
func (t *Thread) Votable() *Votable {
	return &Votable{Kind: KindThread, ID: t.ThreadID, ThreadID: t.ThreadID, OwnerID: t.OwnerID, Title: t.Title, VoteState: t.VoteState}
}

// CreateThreadRequest is the payload for POST /threads.
type CreateThreadRequest struct {
	Title   string `json:"title" validate:"required,min=3,max=200"`
	Content string `json:"content" validate:"required,min=1,max=20000"`
}
