package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/queue"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFailureStore struct {
	mock.Mock
}

func (m *MockFailureStore) MarkFailed(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func setupLock(t *testing.T) (*miniredis.Miniredis, *RunLock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, NewRunLock(adapter, time.Minute)
}

func dispatchMessage(t *testing.T, campaignID int64, attempts int) *queue.Message {
	t.Helper()
	data, err := json.Marshal(queue.DispatchJob{CampaignID: campaignID, EnqueuedAt: time.Now()})
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data, Attempts: attempts}
}

func TestRunLock_AcquireReleaseCycle(t *testing.T) {
	_, lock := setupLock(t)

	acquired, err := lock.Acquire(42)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = lock.Acquire(42)
	require.NoError(t, err)
	assert.False(t, acquired)

	// Another campaign is unaffected.
	acquired, err = lock.Acquire(43)
	require.NoError(t, err)
	assert.True(t, acquired)

	require.NoError(t, lock.Release(42))
	acquired, err = lock.Acquire(42)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestService_HandleMessage_RunsAndReleasesLock(t *testing.T) {
	_, lock := setupLock(t)
	store := new(MockCampaignStore)
	sender := NewMockSender()
	d := New(store, sender, 2)
	defer d.Stop()

	done := testCampaign()
	done.Status = model.CampaignStatusCompleted
	store.On("Get", mock.Anything, int64(42)).Return(done, nil)

	svc := NewService(nil, d, lock, new(MockFailureStore), 3)

	err := svc.handleMessage(context.Background(), dispatchMessage(t, 42, 0))
	require.NoError(t, err)

	// Lock was released, a later delivery can run again.
	acquired, err := lock.Acquire(42)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestService_HandleMessage_DuplicateIsAcked(t *testing.T) {
	_, lock := setupLock(t)
	store := new(MockCampaignStore)
	sender := NewMockSender()
	d := New(store, sender, 2)
	defer d.Stop()

	acquired, err := lock.Acquire(42)
	require.NoError(t, err)
	require.True(t, acquired)

	svc := NewService(nil, d, lock, new(MockFailureStore), 3)

	err = svc.handleMessage(context.Background(), dispatchMessage(t, 42, 0))
	require.NoError(t, err)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestService_HandleMessage_MalformedPayloadIsDropped(t *testing.T) {
	_, lock := setupLock(t)
	store := new(MockCampaignStore)
	d := New(store, NewMockSender(), 2)
	defer d.Stop()

	svc := NewService(nil, d, lock, new(MockFailureStore), 3)

	err := svc.handleMessage(context.Background(), &queue.Message{ID: "1-0", Data: []byte("junk")})
	assert.NoError(t, err)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestService_HandleMessage_FatalErrorOnLastAttemptMarksFailed(t *testing.T) {
	_, lock := setupLock(t)
	store := new(MockCampaignStore)
	d := New(store, NewMockSender(), 2)
	defer d.Stop()

	store.On("Get", mock.Anything, int64(42)).Return(nil, assert.AnError)

	failures := new(MockFailureStore)
	failures.On("MarkFailed", mock.Anything, int64(42), mock.AnythingOfType("time.Time")).Return(nil)

	svc := NewService(nil, d, lock, failures, 3)

	// Attempts is already 2, so this delivery is the third and last.
	err := svc.handleMessage(context.Background(), dispatchMessage(t, 42, 2))
	require.Error(t, err)
	failures.AssertExpectations(t)
}

func TestService_HandleMessage_EarlyAttemptsDoNotMarkFailed(t *testing.T) {
	_, lock := setupLock(t)
	store := new(MockCampaignStore)
	d := New(store, NewMockSender(), 2)
	defer d.Stop()

	store.On("Get", mock.Anything, int64(42)).Return(nil, assert.AnError)

	failures := new(MockFailureStore)
	svc := NewService(nil, d, lock, failures, 3)

	err := svc.handleMessage(context.Background(), dispatchMessage(t, 42, 0))
	require.Error(t, err)
	failures.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_HandleMessage_IncompleteRunNeverMarksFailed(t *testing.T) {
	_, lock := setupLock(t)
	store := new(MockCampaignStore)
	sender := NewMockSender()
	d := New(store, sender, 2)
	defer d.Stop()

	rows := recipients(1)
	store.On("Get", mock.Anything, int64(42)).Return(testCampaign(), nil)
	store.On("ListPendingRecipients", mock.Anything, int64(42)).Return(rows, nil)
	store.On("RecordOutcome", mock.Anything, rows[0].ID, mock.Anything).Return(assert.AnError)
	store.On("CountRecipientOutcomes", mock.Anything, int64(42)).
		Return(model.OutcomeCounts{Pending: 1}, nil)

	failures := new(MockFailureStore)
	svc := NewService(nil, d, lock, failures, 3)

	err := svc.handleMessage(context.Background(), dispatchMessage(t, 42, 2))
	assert.ErrorIs(t, err, ErrRunIncomplete)
	failures.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_HandleMessage_ExpiredLeaseDoesNotFailSends(t *testing.T) {
	_, lock := setupLock(t)
	store := new(MockCampaignStore)
	sender := NewMockSender()
	d := New(store, sender, 2)
	defer d.Stop()

	rows := recipients(1)
	store.On("Get", mock.Anything, int64(42)).Return(testCampaign(), nil)
	store.On("ListPendingRecipients", mock.Anything, int64(42)).Return(rows, nil)
	store.On("RecordOutcome", mock.Anything, rows[0].ID,
		mock.MatchedBy(func(o model.RecipientOutcome) bool { return o.Sent })).Return(nil)
	store.On("CountRecipientOutcomes", mock.Anything, int64(42)).
		Return(model.OutcomeCounts{Sent: 1}, nil)
	store.On("MarkCompleted", mock.Anything, int64(42), mock.AnythingOfType("time.Time"), 1, 0).Return(nil)

	svc := NewService(nil, d, lock, new(MockFailureStore), 3)

	// The consumer's context carries the visibility lease; even when
	// that lease already ran out, the sends must still go through and
	// land as SENT, not as bogus failures.
	leaseCtx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := svc.handleMessage(leaseCtx, dispatchMessage(t, 42, 0))
	require.NoError(t, err)
	store.AssertExpectations(t)
}
