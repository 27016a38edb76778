package domain

import "time"

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotifThreadReply    NotificationType = "thread_reply"
	NotifCommentReply   NotificationType = "comment_reply"
	NotifThreadUpvote   NotificationType = "thread_upvote"
	NotifCommentUpvote  NotificationType = "comment_upvote"
	NotifThreadBookmark NotificationType = "thread_bookmark"
	NotifNewMessage     NotificationType = "new_message"
	NotifThreadMention  NotificationType = "thread_mention"
	NotifCommentMention NotificationType = "comment_mention"
	NotifSystem         NotificationType = "system"
	NotifNewsletter     NotificationType = "newsletter"
)

// ContextRefs are the optional references that let a client navigate straight
// to the content a notification is about, without further lookups.
type ContextRefs struct {
	ThreadID  *string `json:"thread_id,omitempty" dynamodbav:"thread_id"`
	CommentID *string `json:"comment_id,omitempty" dynamodbav:"comment_id"`
	MessageID *string `json:"message_id,omitempty" dynamodbav:"message_id"`
	ActorID   *string `json:"actor_id,omitempty" dynamodbav:"actor_id"`
	Link      string  `json:"link" dynamodbav:"link"`
}

// Notification is owned solely by its recipient. ExpiresAt is a unix epoch
// consumed by the table's TTL so stale notifications are purged by the store.
type Notification struct {
	NotificationID string           `json:"id" dynamodbav:"notification_id"`
	RecipientID    string           `json:"recipient_id" dynamodbav:"recipient_id"`
	Type           NotificationType `json:"type" dynamodbav:"type"`
	Title          string           `json:"title" dynamodbav:"title"`
	Body           string           `json:"body" dynamodbav:"body"`
	Refs           ContextRefs      `json:"refs" dynamodbav:"refs"`
	Read           bool             `json:"read" dynamodbav:"read"`
	ReadAt         *time.Time       `json:"read_at,omitempty" dynamodbav:"read_at"`
	EmailSent      bool             `json:"email_sent" dynamodbav:"email_sent"`
	CreatedAt      time.Time        `json:"created" dynamodbav:"created_at"`
	ExpiresAt      int64            `json:"-" dynamodbav:"expires_at"`
}
