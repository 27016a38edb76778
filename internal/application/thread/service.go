package thread

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
	Create(ctx context.Context, ownerID string, req domain.CreateThreadRequest) (*domain.Thread, error)
	Get(ctx context.Context, threadID string) (*domain.Thread, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Thread, string, error)
}

type threadStore interface {
	Put(ctx context.Context, t *domain.Thread) error
	Get(ctx context.Context, threadID string) (*domain.Thread, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Thread, string, error)
}

type emitter interface {
	Emit(ctx context.Context, event domain.Event) ([]domain.Notification, error)
}

type pusher interface {
	Push(userID, event string, payload interface{}) int
}

type service struct {
	repo     threadStore
	notifier emitter
	rt       pusher
}

func NewService(repo threadStore, notifier emitter, rt pusher) Service {
	return &service{repo: repo, notifier: notifier, rt: rt}
}

func (s *service) Create(ctx context.Context, ownerID string, req domain.CreateThreadRequest) (*domain.Thread, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	t := &domain.Thread{
		ThreadID:  id.New(),
		OwnerID:   ownerID,
		Title:     req.Title,
		Content:   req.Content,
		VoteState: domain.VoteState{VoteRecords: map[string]domain.VoteDirection{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	// Mentions in the body are best-effort side effects of the durable write.
	if handles := mention.Extract(req.Content); len(handles) > 0 {
		notifs, err := s.notifier.Emit(ctx, domain.Mentioned{
			Usernames:   handles,
			ActorID:     ownerID,
			ThreadID:    t.ThreadID,
			ThreadTitle: t.Title,
		})
		if err != nil {
			slog.Warn("thread mention notifications failed", "thread", t.ThreadID, "err", err)
		}
		for i := range notifs {
			s.rt.Push(notifs[i].RecipientID, realtime.EventNotification, notifs[i])
		}
	}
	return t, nil
}

func (s *service) Get(ctx context.Context, threadID string) (*domain.Thread, error) {
	return s.repo.Get(ctx, threadID)
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Thread, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}
