package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/devforum/api/internal/domain"
	"github.com/devforum/api/internal/pkg/id"
)

// Service decides whether a domain event becomes notification records, and
// owns the recipient-facing read surface. It never delivers to live
// connections — realtime push is the caller's separate, best-effort concern.
type Service interface {
	Emit(ctx context.Context, event domain.Event) ([]domain.Notification, error)
	EmitSystem(ctx context.Context, recipientID, title, body string) (*domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string, at time.Time) error
	MarkEmailSent(ctx context.Context, notificationID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	repo      notificationStore
	users     userStore
	mailer    mailer    // nil disables the email mirror
	sms       smsSender // nil disables SMS for system notifications
	retention time.Duration
}

type ServiceDeps struct {
	NotificationRepo notificationStore
	UserRepo         userStore
	Mailer           mailer
	SMSSender        smsSender
	Retention        time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:      deps.NotificationRepo,
		users:     deps.UserRepo,
		mailer:    deps.Mailer,
		sms:       deps.SMSSender,
		retention: deps.Retention,
	}
}

// Emit applies the suppression and preference rules for the event variant and
// persists the resulting notifications. Self-action never notifies, for any
// variant. Returned notifications are already durable; the caller may push
// them to live connections.
func (s *service) Emit(ctx context.Context, event domain.Event) ([]domain.Notification, error) {
	switch e := event.(type) {
	case domain.Upvoted:
		return s.emitUpvoted(ctx, e)
	case domain.Commented:
		return s.emitCommented(ctx, e)
	case domain.Mentioned:
		return s.emitMentioned(ctx, e)
	case domain.MessageSent:
		return s.emitMessageSent(ctx, e)
	default:
		return nil, fmt.Errorf("unknown event %q: %w", event.Kind(), domain.ErrBadRequest)
	}
}

func (s *service) emitUpvoted(ctx context.Context, e domain.Upvoted) ([]domain.Notification, error) {
	if e.ActorID == e.OwnerID {
		return nil, nil
	}
	ntype := domain.NotifThreadUpvote
	refs := domain.ContextRefs{
		ThreadID: &e.ThreadID,
		ActorID:  &e.ActorID,
		Link:     threadLink(e.ThreadID, nil),
	}
	if e.EntityKind == domain.KindComment {
		ntype = domain.NotifCommentUpvote
		refs.CommentID = &e.EntityID
		refs.Link = threadLink(e.ThreadID, &e.EntityID)
	}
	title := "Your post was upvoted"
	body := fmt.Sprintf("Someone upvoted %q", e.EntityTitle)
	if e.EntityKind == domain.KindComment {
		title = "Your comment was upvoted"
		body = "Someone upvoted your comment"
	}
	n, err := s.create(ctx, e.OwnerID, ntype, title, body, refs)
	if err != nil {
		return nil, err
	}
	return []domain.Notification{*n}, nil
}

func (s *service) emitCommented(ctx context.Context, e domain.Commented) ([]domain.Notification, error) {
	refs := domain.ContextRefs{
		ThreadID:  &e.ThreadID,
		CommentID: &e.CommentID,
		ActorID:   &e.ActorID,
		Link:      threadLink(e.ThreadID, &e.CommentID),
	}
	var out []domain.Notification
	if e.ThreadOwnerID != e.ActorID {
		n, err := s.create(ctx, e.ThreadOwnerID, domain.NotifThreadReply,
			"New reply on your thread",
			fmt.Sprintf("Your thread %q has a new reply", e.ThreadTitle), refs)
		if err != nil {
			return out, err
		}
		out = append(out, *n)
	}
	// A nested reply also notifies the parent comment's owner, unless that is
	// the thread owner (already notified) or the actor themselves.
	if e.ParentOwnerID != nil && *e.ParentOwnerID != e.ActorID && *e.ParentOwnerID != e.ThreadOwnerID {
		n, err := s.create(ctx, *e.ParentOwnerID, domain.NotifCommentReply,
			"New reply to your comment",
			fmt.Sprintf("Someone replied to your comment on %q", e.ThreadTitle), refs)
		if err != nil {
			return out, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (s *service) emitMentioned(ctx context.Context, e domain.Mentioned) ([]domain.Notification, error) {
	ntype := domain.NotifThreadMention
	if e.CommentID != nil {
		ntype = domain.NotifCommentMention
	}
	refs := domain.ContextRefs{
		ThreadID:  &e.ThreadID,
		CommentID: e.CommentID,
		ActorID:   &e.ActorID,
		Link:      threadLink(e.ThreadID, e.CommentID),
	}
	seen := make(map[string]struct{}, len(e.Usernames))
	var out []domain.Notification
	for _, username := range e.Usernames {
		u, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // mentions of unknown handles are not an error
			}
			return out, err
		}
		if u.UserID == e.ActorID {
			continue
		}
		if _, dup := seen[u.UserID]; dup {
			continue
		}
		seen[u.UserID] = struct{}{}
		n, err := s.create(ctx, u.UserID, ntype,
			"You were mentioned",
			fmt.Sprintf("You were mentioned on %q", e.ThreadTitle), refs)
		if err != nil {
			return out, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (s *service) emitMessageSent(ctx context.Context, e domain.MessageSent) ([]domain.Notification, error) {
	if e.SenderID == e.ReceiverID {
		return nil, nil
	}
	// Preference is read at emission time, never cached.
	recipient, err := s.users.Get(ctx, e.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !recipient.Prefs.Chat {
		return nil, nil
	}
	refs := domain.ContextRefs{
		MessageID: &e.MessageID,
		ActorID:   &e.SenderID,
		Link:      "/messages/" + e.SenderID,
	}
	n, err := s.create(ctx, e.ReceiverID, domain.NotifNewMessage,
		"New message",
		fmt.Sprintf("%s sent you a message", e.SenderName), refs)
	if err != nil {
		return nil, err
	}
	return []domain.Notification{*n}, nil
}

// EmitSystem records an operator-initiated system notification and, when the
// recipient has a phone on file, mirrors it over SMS.
func (s *service) EmitSystem(ctx context.Context, recipientID, title, body string) (*domain.Notification, error) {
	recipient, err := s.users.Get(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	n, err := s.create(ctx, recipientID, domain.NotifSystem, title, body, domain.ContextRefs{Link: "/notifications"})
	if err != nil {
		return nil, err
	}
	if s.sms != nil && recipient.Phone != "" {
		if err := s.sms.SendSMS(ctx, recipient.Phone, title+": "+body); err != nil {
			slog.Warn("system notification SMS failed", "recipient", recipientID, "err", err)
		}
	}
	return n, nil
}

// create persists one notification and best-effort mirrors it by email when
// the recipient enabled that channel.
func (s *service) create(ctx context.Context, recipientID string, ntype domain.NotificationType, title, body string, refs domain.ContextRefs) (*domain.Notification, error) {
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		RecipientID:    recipientID,
		Type:           ntype,
		Title:          title,
		Body:           body,
		Refs:           refs,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.retention).Unix(),
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	s.mirrorEmail(ctx, n)
	return n, nil
}

func (s *service) mirrorEmail(ctx context.Context, n *domain.Notification) {
	if s.mailer == nil {
		return
	}
	recipient, err := s.users.Get(ctx, n.RecipientID)
	if err != nil || !recipient.Prefs.Email || recipient.Email == "" {
		return
	}
	if err := s.mailer.SendEmail(recipient.Email, n.Title, n.Body); err != nil {
		slog.Warn("notification email failed", "notification", n.NotificationID, "err", err)
		return
	}
	n.EmailSent = true
	if err := s.repo.MarkEmailSent(ctx, n.NotificationID); err != nil {
		slog.Warn("could not record email_sent", "notification", n.NotificationID, "err", err)
	}
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, userID)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	if n.Read {
		return n, nil
	}
	now := time.Now().UTC()
	if err := s.repo.MarkAsRead(ctx, notificationID, now); err != nil {
		return nil, err
	}
	n.Read = true
	n.ReadAt = &now
	return n, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	unread, err := s.repo.ListUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	marked := 0
	for i := range unread {
		if err := s.repo.MarkAsRead(ctx, unread[i].NotificationID, now); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

func threadLink(threadID string, commentID *string) string {
	if commentID != nil {
		return fmt.Sprintf("/threads/%s?comment=%s", threadID, *commentID)
	}
	return "/threads/" + threadID
}
