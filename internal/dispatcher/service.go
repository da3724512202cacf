package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/queue"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/prom"
)

// FailureStore marks a campaign FAILED when it cannot be dispatched at
// all. Per-recipient delivery failures never come through here.
type FailureStore interface {
	MarkFailed(ctx context.Context, id int64, at time.Time) error
}

// Service consumes dispatch jobs from the queue and drives the
// dispatcher. One campaign runs at most once at a time across all
// dispatcher processes; the redis lock enforces it.
type Service struct {
	queue      *queue.Queue
	dispatcher *Dispatcher
	lock       *RunLock
	failures   FailureStore
	maxRetries int

	// runCtx outlives any single queue delivery. Campaign runs are
	// bounded by the run lock and the stale sweep, not by the
	// consumer's visibility lease; a lease-scoped context would turn
	// lease expiry into bogus FAILED outcomes mid-run.
	runCtx context.Context
	cancel context.CancelFunc
}

func NewService(q *queue.Queue, d *Dispatcher, lock *RunLock, failures FailureStore, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	runCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		queue:      q,
		dispatcher: d,
		lock:       lock,
		failures:   failures,
		maxRetries: maxRetries,
		runCtx:     runCtx,
		cancel:     cancel,
	}
}

func (s *Service) Start() error {
	return s.queue.Consume(s.handleMessage)
}

func (s *Service) Stop(timeout time.Duration) error {
	err := s.queue.Stop(timeout)
	// Aborting the run context leaves in-flight recipients PENDING;
	// the re-delivered job settles them.
	s.cancel()
	s.dispatcher.Stop()
	return err
}

// handleMessage ignores the consumer context on purpose: it carries
// the queue's visibility lease, which bounds redelivery, not the run.
func (s *Service) handleMessage(_ context.Context, msg *queue.Message) error {
	job, err := msg.DispatchJob()
	if err != nil {
		// Poison message. Ack it out of the stream instead of looping.
		logger.Error("dropping malformed dispatch job", "message_id", msg.ID, "error", err)
		return nil
	}

	acquired, err := s.lock.Acquire(job.CampaignID)
	if err != nil {
		return err
	}
	if !acquired {
		logger.Info("campaign run already in flight elsewhere, acking duplicate",
			"campaign_id", job.CampaignID)
		return nil
	}
	defer func() {
		if err := s.lock.Release(job.CampaignID); err != nil {
			logger.Warn("failed to release run lock", "campaign_id", job.CampaignID, "error", err)
		}
	}()

	if err := s.dispatcher.Run(s.runCtx, job.CampaignID); err != nil {
		s.maybeMarkFailed(s.runCtx, msg, job.CampaignID, err)
		return err
	}

	return nil
}

// maybeMarkFailed settles a campaign as FAILED only when the run never
// got going (snapshot unreadable, campaign row gone) and this was the
// last delivery attempt. An incomplete run keeps retrying instead: its
// recipients are real and some may already be settled.
func (s *Service) maybeMarkFailed(ctx context.Context, msg *queue.Message, campaignID int64, runErr error) {
	if errors.Is(runErr, ErrRunIncomplete) {
		return
	}
	if msg.Attempts+1 < s.maxRetries {
		return
	}

	logger.Error("campaign dispatch exhausted retries, marking failed",
		"campaign_id", campaignID, "attempts", msg.Attempts+1, "error", runErr)
	if err := s.failures.MarkFailed(ctx, campaignID, time.Now().UTC()); err != nil {
		logger.Error("failed to mark campaign failed", "campaign_id", campaignID, "error", err)
		return
	}
	prom.IncRun("failed")
}
