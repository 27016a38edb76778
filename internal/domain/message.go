package domain

import (
	"fmt"
	"time"
)

// MessageType is the closed set of message payload kinds.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageFile  MessageType = "file"
	MessageImage MessageType = "image"
)

// ParseMessageType validates a wire-level message type; empty means text.
func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(s) {
	case "":
		return MessageText, nil
	case MessageText, MessageFile, MessageImage:
		return MessageType(s), nil
	default:
		return "", fmt.Errorf("unknown message type %q: %w", s, ErrBadRequest)
	}
}

// MessageState is the delivery state: sent until the receiver reads it.
type MessageState string

const (
	MessageSentState MessageState = "sent"
	MessageReadState MessageState = "read"
)

// Message is a private message between two users. It is never physically
// removed while either side retains visibility; DeletionMarks lists the users
// who have hidden it locally.
type Message struct {
	MessageID      string       `json:"id" dynamodbav:"message_id"`
	ConversationID string       `json:"-" dynamodbav:"conversation_id"`
	SenderID       string       `json:"sender_id" dynamodbav:"sender_id"`
	ReceiverID     string       `json:"receiver_id" dynamodbav:"receiver_id"`
	ThreadID       *string      `json:"thread_id,omitempty" dynamodbav:"thread_id"`
	Type           MessageType  `json:"type" dynamodbav:"type"`
	Content        string       `json:"content" dynamodbav:"content"`
	State          MessageState `json:"state" dynamodbav:"state"`
	ReadAt         *time.Time   `json:"read_at,omitempty" dynamodbav:"read_at"`
	DeletionMarks  []string     `json:"-" dynamodbav:"deletion_marks,stringset,omitempty"`
	CreatedAt      time.Time    `json:"created" dynamodbav:"created_at"`
}

// HiddenFor reports whether userID has marked the message deleted.
func (m *Message) HiddenFor(userID string) bool {
	for _, id := range m.DeletionMarks {
		if id == userID {
			return true
		}
	}
	return false
}

// Inert reports whether both participants have hidden the message.
func (m *Message) Inert() bool {
	return m.HiddenFor(m.SenderID) && m.HiddenFor(m.ReceiverID)
}

// ConversationKey builds the canonical conversation id for a user pair. The
// smaller id always comes first so both directions land on the same key.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "#" + b
}

// SendMessageRequest is the payload for POST /messages and for the
// send-message websocket event. Data carries base64 attachment bytes for
// file/image messages; Content is ignored in that case and replaced by the
// stored object key.
type SendMessageRequest struct {
	ReceiverID  string  `json:"receiver_id" validate:"required"`
	Content     string  `json:"content" validate:"max=10000"`
	ThreadID    *string `json:"thread_id,omitempty"`
	MessageType string  `json:"message_type,omitempty"`
	Filename    string  `json:"filename,omitempty"`
	Data        string  `json:"data,omitempty"`
}

// MessageView is the read-side DTO. The realtime push and the REST fetch both
// return exactly this shape. AttachmentURL is a short-lived presigned link,
// populated for file and image messages.
type MessageView struct {
	Message
	Sender        UserSummary `json:"sender"`
	AttachmentURL string      `json:"attachment_url,omitempty"`
}
