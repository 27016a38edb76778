package vote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devforum/api/internal/domain"
	"github.com/devforum/api/internal/realtime"
)

// Service is the vote ledger. Apply runs the toggle/flip state machine
// against the entity's record set and counters as one atomic unit, using
// optimistic retries on the entity version to survive concurrent voters.
type Service interface {
	Apply(ctx context.Context, kind domain.EntityKind, entityID, userID string, direction domain.VoteDirection) (*domain.VoteResult, error)
}

type votableStore interface {
	GetVotable(ctx context.Context, entityID string) (*domain.Votable, error)
	UpdateVoteState(ctx context.Context, entityID string, vs domain.VoteState) error
}

type emitter interface {
	Emit(ctx context.Context, event domain.Event) ([]domain.Notification, error)
}

type pusher interface {
	Push(userID, event string, payload interface{}) int
}

type service struct {
	threads    votableStore
	comments   votableStore
	notifier   emitter
	rt         pusher
	maxRetries int
}

type ServiceDeps struct {
	ThreadRepo  votableStore
	CommentRepo votableStore
	Notifier    emitter
	Realtime    pusher
	MaxRetries  int
}

func NewService(deps ServiceDeps) Service {
	retries := deps.MaxRetries
	if retries < 1 {
		retries = 5
	}
	return &service{
		threads:    deps.ThreadRepo,
		comments:   deps.CommentRepo,
		notifier:   deps.Notifier,
		rt:         deps.Realtime,
		maxRetries: retries,
	}
}

func (s *service) Apply(ctx context.Context, kind domain.EntityKind, entityID, userID string, direction domain.VoteDirection) (*domain.VoteResult, error) {
	if direction != domain.VoteUp && direction != domain.VoteDown {
		return nil, fmt.Errorf("direction must be %q or %q: %w", domain.VoteUp, domain.VoteDown, domain.ErrBadRequest)
	}
	store, err := s.storeFor(kind)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		v, err := store.GetVotable(ctx, entityID)
		if err != nil {
			return nil, err
		}
		created := v.Apply(userID, direction)
		if err := store.UpdateVoteState(ctx, entityID, v.VoteState); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				lastErr = err
				continue // someone else won the race; re-read and retry
			}
			return nil, err
		}
		// Only a first-time upvote by a non-owner notifies; flips, downvotes
		// and retractions stay silent.
		if created && direction == domain.VoteUp && userID != v.OwnerID {
			s.notifyUpvote(ctx, v, userID)
		}
		return &domain.VoteResult{
			UpvoteCount:   v.UpvoteCount,
			DownvoteCount: v.DownvoteCount,
		}, nil
	}
	return nil, fmt.Errorf("vote on %s %s not applied after %d attempts: %w", kind, entityID, s.maxRetries, lastErr)
}

// notifyUpvote is best-effort: the vote is already durable, so an emit or
// push failure is logged and swallowed.
func (s *service) notifyUpvote(ctx context.Context, v *domain.Votable, actorID string) {
	notifs, err := s.notifier.Emit(ctx, domain.Upvoted{
		EntityKind:  v.Kind,
		EntityID:    v.ID,
		ThreadID:    v.ThreadID,
		OwnerID:     v.OwnerID,
		ActorID:     actorID,
		EntityTitle: v.Title,
	})
	if err != nil {
		slog.Warn("upvote notification failed", "kind", v.Kind, "entity", v.ID, "err", err)
		return
	}
	for i := range notifs {
		s.rt.Push(notifs[i].RecipientID, realtime.EventNotification, notifs[i])
	}
}

func (s *service) storeFor(kind domain.EntityKind) (votableStore, error) {
	switch kind {
	case domain.KindThread:
		return s.threads, nil
	case domain.KindComment:
		return s.comments, nil
	default:
		return nil, fmt.Errorf("unknown entity kind %q: %w", kind, domain.ErrBadRequest)
	}
}
