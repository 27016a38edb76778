package comment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devforum/api/internal/domain"
	"github.com/devforum/api/internal/pkg/id"
	"github.com/devforum/api/internal/pkg/mention"
	"github.com/devforum/api/internal/pkg/validate"
	"github.com/devforum/api/internal/realtime"
)

type Service interface {
	Create(ctx context.Context, actorID, threadID string, req domain.CreateCommentRequest) (*domain.CommentView, error)
	ListByThread(ctx context.Context, threadID string) ([]domain.CommentView, error)
}

type commentStore interface {
	Put(ctx context.Context, c *domain.Comment) error
	Get(ctx context.Context, commentID string) (*domain.Comment, error)
	ListByThread(ctx context.Context, threadID string) ([]domain.Comment, error)
}

type threadStore interface {
	Get(ctx context.Context, threadID string) (*domain.Thread, error)
	IncrementCommentCount(ctx context.Context, threadID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetMany(ctx context.Context, userIDs []string) (map[string]domain.User, error)
}

type emitter interface {
	Emit(ctx context.Context, event domain.Event) ([]domain.Notification, error)
}

type broadcaster interface {
	Push(userID, event string, payload interface{}) int
	Broadcast(roomID, event string, payload interface{}) int
}

type service struct {
	repo     commentStore
	threads  threadStore
	users    userStore
	notifier emitter
	rt       broadcaster
}

type ServiceDeps struct {
	CommentRepo commentStore
	ThreadRepo  threadStore
	UserRepo    userStore
	Notifier    emitter
	Realtime    broadcaster
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.CommentRepo,
		threads:  deps.ThreadRepo,
		users:    deps.UserRepo,
		notifier: deps.Notifier,
		rt:       deps.Realtime,
	}
}

// RoomID names the broadcast room realtime clients join to watch a thread.
func RoomID(threadID string) string { return "thread:" + threadID }

func (s *service) Create(ctx context.Context, actorID, threadID string, req domain.CreateCommentRequest) (*domain.CommentView, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	t, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	var parentOwnerID *string
	if req.ParentID != nil {
		parent, err := s.repo.Get(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.ThreadID != threadID {
			return nil, fmt.Errorf("parent comment belongs to another thread: %w", domain.ErrBadRequest)
		}
		parentOwnerID = &parent.OwnerID
	}
	author, err := s.users.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}

	c := &domain.Comment{
		CommentID: id.New(),
		ThreadID:  threadID,
		ParentID:  req.ParentID,
		OwnerID:   actorID,
		Content:   req.Content,
		VoteState: domain.VoteState{VoteRecords: map[string]domain.VoteDirection{}},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}

	// Everything past the durable write is best-effort.
	if err := s.threads.IncrementCommentCount(ctx, threadID); err != nil {
		slog.Warn("comment count increment failed", "thread", threadID, "err", err)
	}

	view := &domain.CommentView{Comment: *c, Author: author.Summary()}
	s.notify(ctx, t, c, actorID, parentOwnerID)
	s.rt.Broadcast(RoomID(threadID), realtime.EventNewComment, view)

	return view, nil
}

func (s *service) notify(ctx context.Context, t *domain.Thread, c *domain.Comment, actorID string, parentOwnerID *string) {
	s.emitAndPush(ctx, domain.Commented{
		ThreadID:      t.ThreadID,
		CommentID:     c.CommentID,
		ThreadOwnerID: t.OwnerID,
		ParentOwnerID: parentOwnerID,
		ActorID:       actorID,
		ThreadTitle:   t.Title,
	})
	if handles := mention.Extract(c.Content); len(handles) > 0 {
		s.emitAndPush(ctx, domain.Mentioned{
			Usernames:   handles,
			ActorID:     actorID,
			ThreadID:    t.ThreadID,
			CommentID:   &c.CommentID,
			ThreadTitle: t.Title,
		})
	}
}

func (s *service) emitAndPush(ctx context.Context, event domain.Event) {
	notifs, err := s.notifier.Emit(ctx, event)
	if err != nil {
		slog.Warn("comment notifications failed", "event", event.Kind(), "err", err)
	}
	for i := range notifs {
		s.rt.Push(notifs[i].RecipientID, realtime.EventNotification, notifs[i])
	}
}

func (s *service) ListByThread(ctx context.Context, threadID string) ([]domain.CommentView, error) {
	if _, err := s.threads.Get(ctx, threadID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	authorIDs := make([]string, 0, len(comments))
	for i := range comments {
		authorIDs = append(authorIDs, comments[i].OwnerID)
	}
	authors, err := s.users.GetMany(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	views := make([]domain.CommentView, 0, len(comments))
	for i := range comments {
		view := domain.CommentView{Comment: comments[i]}
		if u, ok := authors[comments[i].OwnerID]; ok {
			view.Author = u.Summary()
		}
		views = append(views, view)
	}
	return views, nil
}
