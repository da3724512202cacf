package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCampaignStore struct {
	mock.Mock
}

func (m *MockCampaignStore) MarkScheduled(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockCampaignStore) MarkStarted(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockCampaignStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

func (m *MockCampaignStore) ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]*model.Campaign, error) {
	args := m.Called(ctx, startedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishDispatch(ctx context.Context, campaignID int64) (string, error) {
	args := m.Called(ctx, campaignID)
	return args.String(0), args.Error(1)
}

func TestScheduler_Schedule_Immediate(t *testing.T) {
	store := new(MockCampaignStore)
	publisher := new(MockPublisher)
	s := New(store, publisher, Config{})

	store.On("MarkStarted", mock.Anything, int64(10), mock.AnythingOfType("time.Time")).Return(nil)
	publisher.On("PublishDispatch", mock.Anything, int64(10)).Return("1-0", nil)

	err := s.Schedule(context.Background(), &model.Campaign{ID: 10}, nil)
	require.NoError(t, err)

	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestScheduler_Schedule_Future(t *testing.T) {
	store := new(MockCampaignStore)
	publisher := new(MockPublisher)
	s := New(store, publisher, Config{})

	at := time.Now().Add(2 * time.Hour)
	store.On("MarkScheduled", mock.Anything, int64(10), at.UTC()).Return(nil)

	err := s.Schedule(context.Background(), &model.Campaign{ID: 10}, &at)
	require.NoError(t, err)

	store.AssertExpectations(t)
	publisher.AssertNotCalled(t, "PublishDispatch", mock.Anything, mock.Anything)
}

func TestScheduler_Schedule_PastTimeRejected(t *testing.T) {
	store := new(MockCampaignStore)
	publisher := new(MockPublisher)
	s := New(store, publisher, Config{})

	at := time.Now().Add(-time.Minute)
	err := s.Schedule(context.Background(), &model.Campaign{ID: 10}, &at)

	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	// "Now" is not in the future either; the boundary is strict.
	at = time.Now().UTC()
	err = s.Schedule(context.Background(), &model.Campaign{ID: 10}, &at)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	store.AssertNotCalled(t, "MarkScheduled", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_Schedule_PublishFailureSurfaces(t *testing.T) {
	store := new(MockCampaignStore)
	publisher := new(MockPublisher)
	s := New(store, publisher, Config{})

	store.On("MarkStarted", mock.Anything, int64(10), mock.AnythingOfType("time.Time")).Return(nil)
	publisher.On("PublishDispatch", mock.Anything, int64(10)).Return("", assert.AnError)

	err := s.Schedule(context.Background(), &model.Campaign{ID: 10}, nil)
	assert.Error(t, err)
}

func TestScheduler_RunOnce_PublishesDueAndStale(t *testing.T) {
	store := new(MockCampaignStore)
	publisher := new(MockPublisher)
	s := New(store, publisher, Config{ClaimLimit: 5})

	startedAt := time.Now().Add(-time.Hour)
	store.On("ClaimDue", mock.Anything, mock.AnythingOfType("time.Time"), 5).
		Return([]*model.Campaign{{ID: 1}, {ID: 2}}, nil)
	store.On("ListStale", mock.Anything, mock.AnythingOfType("time.Time"), 5).
		Return([]*model.Campaign{{ID: 3, StartedAt: &startedAt}}, nil)

	publisher.On("PublishDispatch", mock.Anything, int64(1)).Return("1-0", nil)
	publisher.On("PublishDispatch", mock.Anything, int64(2)).Return("2-0", nil)
	publisher.On("PublishDispatch", mock.Anything, int64(3)).Return("3-0", nil)

	s.RunOnce(context.Background())

	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestScheduler_RunOnce_PublishErrorDoesNotStopPass(t *testing.T) {
	store := new(MockCampaignStore)
	publisher := new(MockPublisher)
	s := New(store, publisher, Config{ClaimLimit: 5})

	store.On("ClaimDue", mock.Anything, mock.AnythingOfType("time.Time"), 5).
		Return([]*model.Campaign{{ID: 1}, {ID: 2}}, nil)
	store.On("ListStale", mock.Anything, mock.AnythingOfType("time.Time"), 5).
		Return([]*model.Campaign{}, nil)

	publisher.On("PublishDispatch", mock.Anything, int64(1)).Return("", assert.AnError)
	publisher.On("PublishDispatch", mock.Anything, int64(2)).Return("2-0", nil)

	s.RunOnce(context.Background())

	publisher.AssertNumberOfCalls(t, "PublishDispatch", 2)
}

func TestScheduler_StartStop(t *testing.T) {
	store := new(MockCampaignStore)
	publisher := new(MockPublisher)
	s := New(store, publisher, Config{Interval: 10 * time.Millisecond, ClaimLimit: 5})

	store.On("ClaimDue", mock.Anything, mock.AnythingOfType("time.Time"), 5).
		Return([]*model.Campaign{}, nil)
	store.On("ListStale", mock.Anything, mock.AnythingOfType("time.Time"), 5).
		Return([]*model.Campaign{}, nil)

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	store.AssertCalled(t, "ClaimDue", mock.Anything, mock.AnythingOfType("time.Time"), 5)
}
