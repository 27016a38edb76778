package thread

import (
	"context"
	"errors"
	"testing"

	"github.com/devforum/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockThreadStore struct{ mock.Mock }

func (m *mockThreadStore) Put(ctx context.Context, t *domain.Thread) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockThreadStore) Get(ctx context.Context, threadID string) (*domain.Thread, error) {
	args := m.Called(ctx, threadID)
	if t, _ := args.Get(0).(*domain.Thread); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockThreadStore) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Thread, string, error) {
	args := m.Called(ctx, limit, cursor)
	if t, _ := args.Get(0).([]domain.Thread); t != nil {
		return t, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

type mockEmitter struct{ mock.Mock }

func (m *mockEmitter) Emit(ctx context.Context, event domain.Event) ([]domain.Notification, error) {
	args := m.Called(ctx, event)
	if n, _ := args.Get(0).([]domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPusher struct{ mock.Mock }

func (m *mockPusher) Push(userID, event string, payload interface{}) int {
	return m.Called(userID, event, payload).Int(0)
}

// --- Create ---

func TestCreate_ShortTitle_BadRequest(t *testing.T) {
	svc := NewService(&mockThreadStore{}, &mockEmitter{}, &mockPusher{})
	_, err := svc.Create(context.Background(), "owner", domain.CreateThreadRequest{
		Title:   "go",
		Content: "too short a title",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestCreate_StampsIdentityAndEmptyLedger(t *testing.T) {
	repo := &mockThreadStore{}
	repo.On("Put", mock.Anything, mock.MatchedBy(func(th *domain.Thread) bool {
		return th.OwnerID == "owner" &&
			th.ThreadID != "" &&
			th.UpvoteCount == 0 &&
			th.VoteRecords != nil &&
			len(th.VoteRecords) == 0
	})).Return(nil)

	svc := NewService(repo, &mockEmitter{}, &mockPusher{})
	th, err := svc.Create(context.Background(), "owner", domain.CreateThreadRequest{
		Title:   "Go generics in practice",
		Content: "A few patterns that held up well.",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, th.ThreadID)
	assert.False(t, th.CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestCreate_BodyMentions_EmitAndPush(t *testing.T) {
	repo := &mockThreadStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	notifier := &mockEmitter{}
	notifier.On("Emit", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		ev, ok := e.(domain.Mentioned)
		return ok && len(ev.Usernames) == 2 && ev.CommentID == nil
	})).Return([]domain.Notification{
		{NotificationID: "n1", RecipientID: "u-alice"},
		{NotificationID: "n2", RecipientID: "u-carol"},
	}, nil)

	rt := &mockPusher{}
	rt.On("Push", "u-alice", mock.Anything, mock.Anything).Return(1)
	rt.On("Push", "u-carol", mock.Anything, mock.Anything).Return(0)

	svc := NewService(repo, notifier, rt)
	_, err := svc.Create(context.Background(), "owner", domain.CreateThreadRequest{
		Title:   "Benchmarks",
		Content: "cc @alice and @carol for review",
	})

	require.NoError(t, err)
	notifier.AssertExpectations(t)
	rt.AssertExpectations(t)
}

func TestCreate_MentionEmitFailure_ThreadStillCreated(t *testing.T) {
	repo := &mockThreadStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	notifier := &mockEmitter{}
	notifier.On("Emit", mock.Anything, mock.Anything).Return(nil, errors.New("emitter down"))

	svc := NewService(repo, notifier, &mockPusher{})
	th, err := svc.Create(context.Background(), "owner", domain.CreateThreadRequest{
		Title:   "Benchmarks",
		Content: "cc @alice for review",
	})

	require.NoError(t, err)
	require.NotNil(t, th)
}

func TestCreate_NoMentions_NoEmit(t *testing.T) {
	repo := &mockThreadStore{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	notifier := &mockEmitter{}

	svc := NewService(repo, notifier, &mockPusher{})
	_, err := svc.Create(context.Background(), "owner", domain.CreateThreadRequest{
		Title:   "Benchmarks",
		Content: "mail me at dev@example.com",
	})

	require.NoError(t, err)
	notifier.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

// --- List ---

func TestList_DefaultsLimit(t *testing.T) {
	repo := &mockThreadStore{}
	repo.On("ScanPage", mock.Anything, int32(50), "").Return([]domain.Thread{}, "", nil)

	svc := NewService(repo, &mockEmitter{}, &mockPusher{})
	_, _, err := svc.List(context.Background(), 0, "")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestList_PassesCursorThrough(t *testing.T) {
	repo := &mockThreadStore{}
	repo.On("ScanPage", mock.Anything, int32(10), "abc").Return([]domain.Thread{
		{ThreadID: "t1"},
	}, "next", nil)

	svc := NewService(repo, &mockEmitter{}, &mockPusher{})
	threads, next, err := svc.List(context.Background(), 10, "abc")

	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "next", next)
}

func TestGet_Passthrough(t *testing.T) {
	repo := &mockThreadStore{}
	repo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	svc := NewService(repo, &mockEmitter{}, &mockPusher{})
	_, err := svc.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
