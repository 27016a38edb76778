package domain

// Event is a domain occurrence the notification emitter may turn into
// notification records. Variants are a closed set; Kind is used only for
// logging.
type Event interface {
	Kind() string
}

// Upvoted fires on a first-time upvote of a thread or comment. Vote flips,
// downvotes and retractions never produce it.
type Upvoted struct {
	EntityKind  EntityKind
	EntityID    string
	ThreadID    string // equals EntityID for thread upvotes
	OwnerID     string
	ActorID     string
	EntityTitle string
}

func (Upvoted) Kind() string { return "upvoted" }

// Commented fires when a comment is created. ParentOwnerID is set for nested
// replies and routes a second notification to the parent comment's owner.
type Commented struct {
	ThreadID      string
	CommentID     string
	ThreadOwnerID string
	ParentOwnerID *string
	ActorID       string
	ThreadTitle   string
}

func (Commented) Kind() string { return "commented" }

// Mentioned fires when a thread or comment body @-mentions users. Usernames
// are resolved at emission time; unknown handles are skipped silently.
// CommentID is nil for mentions in a thread body.
type Mentioned struct {
	Usernames   []string
	ActorID     string
	ThreadID    string
	CommentID   *string
	ThreadTitle string
}

func (Mentioned) Kind() string { return "mentioned" }

// MessageSent fires after a private message has been durably persisted.
type MessageSent struct {
	MessageID  string
	SenderID   string
	ReceiverID string
	SenderName string
}

func (MessageSent) Kind() string { return "message_sent" }
