package message

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/devforum/api/internal/domain"
	"github.com/devforum/api/internal/pkg/id"
	"github.com/devforum/api/internal/pkg/validate"
	"github.com/devforum/api/internal/realtime"
)

// Service is the message pipeline. Send runs, in strict order: receiver
// validation, durable persistence, best-effort notification, best-effort
// realtime push. Once step 2 commits, later failures never roll it back.
type Service interface {
	Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.MessageView, error)
	Conversation(ctx context.Context, userID, peerID string, limit int32) ([]domain.MessageView, error)
	MarkRead(ctx context.Context, messageID, userID string) (*domain.Message, error)
	Delete(ctx context.Context, messageID, userID string) error
}

type messageStore interface {
	Put(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, messageID string) (*domain.Message, error)
	ListConversation(ctx context.Context, conversationID string, limit int32) ([]domain.Message, error)
	MarkRead(ctx context.Context, messageID string, at time.Time) error
	AddDeletionMark(ctx context.Context, messageID, userID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetMany(ctx context.Context, userIDs []string) (map[string]domain.User, error)
}

type attachmentStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type emitter interface {
	Emit(ctx context.Context, event domain.Event) ([]domain.Notification, error)
}

type pusher interface {
	Push(userID, event string, payload interface{}) int
}

type service struct {
	repo        messageStore
	users       userStore
	attachments attachmentStore // nil rejects file/image payloads
	notifier    emitter
	rt          pusher
}

type ServiceDeps struct {
	MessageRepo messageStore
	UserRepo    userStore
	Attachments attachmentStore
	Notifier    emitter
	Realtime    pusher
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.MessageRepo,
		users:       deps.UserRepo,
		attachments: deps.Attachments,
		notifier:    deps.Notifier,
		rt:          deps.Realtime,
	}
}

func (s *service) Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.MessageView, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	mtype, err := domain.ParseMessageType(req.MessageType)
	if err != nil {
		return nil, err
	}

	// Step 1: fail fast before any write.
	receiver, err := s.users.Get(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !receiver.Prefs.Chat {
		return nil, fmt.Errorf("receiver does not accept messages: %w", domain.ErrForbidden)
	}
	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msgID := id.New()
	content := req.Content
	if mtype != domain.MessageText {
		key, err := s.storeAttachment(ctx, msgID, req)
		if err != nil {
			return nil, err
		}
		content = key
	} else if content == "" {
		return nil, fmt.Errorf("text message requires content: %w", domain.ErrBadRequest)
	}

	// Step 2: the durable, authoritative write.
	m := &domain.Message{
		MessageID:      msgID,
		ConversationID: domain.ConversationKey(senderID, req.ReceiverID),
		SenderID:       senderID,
		ReceiverID:     req.ReceiverID,
		ThreadID:       req.ThreadID,
		Type:           mtype,
		Content:        content,
		State:          domain.MessageSentState,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, m); err != nil {
		return nil, err
	}

	view := &domain.MessageView{Message: *m, Sender: sender.Summary()}
	s.attachURL(ctx, view)

	// Step 3: best-effort notification. The message is already retrievable,
	// so a failure here is logged, never surfaced.
	notifs, err := s.notifier.Emit(ctx, domain.MessageSent{
		MessageID:  m.MessageID,
		SenderID:   senderID,
		ReceiverID: m.ReceiverID,
		SenderName: sender.Username,
	})
	if err != nil {
		slog.Warn("message notification failed", "message", m.MessageID, "err", err)
	}

	// Step 4: best-effort push. Zero live connections simply drops the event.
	s.rt.Push(m.ReceiverID, realtime.EventNewMessage, view)
	for i := range notifs {
		s.rt.Push(notifs[i].RecipientID, realtime.EventNotification, notifs[i])
	}

	return view, nil
}

func (s *service) storeAttachment(ctx context.Context, msgID string, req domain.SendMessageRequest) (string, error) {
	if req.Data == "" {
		return "", fmt.Errorf("file and image messages require data: %w", domain.ErrBadRequest)
	}
	if s.attachments == nil {
		return "", fmt.Errorf("attachments are not enabled: %w", domain.ErrBadRequest)
	}
	name := req.Filename
	if name == "" {
		name = "attachment"
	}
	key := path.Join("messages", msgID, name)
	if err := s.attachments.UploadBase64(ctx, key, req.Data); err != nil {
		return "", err
	}
	return key, nil
}

const attachmentURLTTL = 15 * time.Minute

// attachURL decorates a file or image view with a presigned link. Best-effort:
// the object key in Content always remains the durable reference.
func (s *service) attachURL(ctx context.Context, view *domain.MessageView) {
	if view.Type == domain.MessageText || s.attachments == nil {
		return
	}
	url, err := s.attachments.PresignedURL(ctx, view.Content, attachmentURLTTL)
	if err != nil {
		slog.Warn("attachment presign failed", "message", view.MessageID, "err", err)
		return
	}
	view.AttachmentURL = url
}

// Conversation returns the dialogue with peerID, oldest first, excluding
// messages the caller has hidden. As a side effect, every unread message
// addressed to the caller flips to read — reading the conversation is the
// receipt.
func (s *service) Conversation(ctx context.Context, userID, peerID string, limit int32) ([]domain.MessageView, error) {
	if _, err := s.users.Get(ctx, peerID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListConversation(ctx, domain.ConversationKey(userID, peerID), limit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	visible := msgs[:0]
	senderIDs := make([]string, 0, 2)
	for i := range msgs {
		m := msgs[i]
		if m.HiddenFor(userID) {
			continue
		}
		if m.ReceiverID == userID && m.State == domain.MessageSentState {
			if err := s.repo.MarkRead(ctx, m.MessageID, now); err != nil {
				slog.Warn("batch read receipt failed", "message", m.MessageID, "err", err)
			} else {
				m.State = domain.MessageReadState
				m.ReadAt = &now
			}
		}
		senderIDs = append(senderIDs, m.SenderID)
		visible = append(visible, m)
	}

	senders, err := s.users.GetMany(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	views := make([]domain.MessageView, 0, len(visible))
	for i := range visible {
		view := domain.MessageView{Message: visible[i]}
		if u, ok := senders[visible[i].SenderID]; ok {
			view.Sender = u.Summary()
		}
		s.attachURL(ctx, &view)
		views = append(views, view)
	}
	return views, nil
}

// MarkRead records an explicit single-message receipt. Only the receiver may
// issue it; anyone else sees the message as absent.
func (s *service) MarkRead(ctx context.Context, messageID, userID string) (*domain.Message, error) {
	m, err := s.repo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.ReceiverID != userID {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	if m.State == domain.MessageReadState {
		return m, nil
	}
	now := time.Now().UTC()
	if err := s.repo.MarkRead(ctx, messageID, now); err != nil {
		return nil, err
	}
	m.State = domain.MessageReadState
	m.ReadAt = &now
	return m, nil
}

// Delete hides the message for one participant. The record survives until
// both sides have marked it, and even then stays inert rather than removed.
func (s *service) Delete(ctx context.Context, messageID, userID string) error {
	m, err := s.repo.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != userID && m.ReceiverID != userID {
		return fmt.Errorf("message %s: %w", messageID, domain.ErrForbidden)
	}
	if err := s.repo.AddDeletionMark(ctx, messageID, userID); err != nil {
		return err
	}
	m.DeletionMarks = append(m.DeletionMarks, userID)
	if m.Inert() {
		slog.Info("message hidden by both participants", "message", m.MessageID)
	}
	return nil
}
