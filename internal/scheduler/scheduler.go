package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
)

// CampaignStore is the slice of campaign storage the scheduler needs.
type CampaignStore interface {
	MarkScheduled(ctx context.Context, id int64, at time.Time) error
	MarkStarted(ctx context.Context, id int64, at time.Time) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error)
	ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]*model.Campaign, error)
}

// Publisher hands a campaign run to the dispatcher tier.
type Publisher interface {
	PublishDispatch(ctx context.Context, campaignID int64) (string, error)
}

type Config struct {
	// How often the reconciler scans for due and stale campaigns.
	Interval time.Duration
	// An IN_PROGRESS campaign older than this with no completion is
	// presumed lost and re-published.
	StaleAfter time.Duration
	// Max campaigns claimed per reconciler pass.
	ClaimLimit int
}

// Scheduler decides when a campaign run starts. Immediate campaigns
// are published straight to the queue; future ones are parked as
// PENDING rows that the reconciler loop claims once their time
// arrives. Delivery to the dispatcher is at-least-once, duplicates are
// collapsed downstream by the run lock and the settled-recipient
// guards.
type Scheduler struct {
	store     CampaignStore
	publisher Publisher
	config    Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store CampaignStore, publisher Publisher, config Config) *Scheduler {
	if config.Interval == 0 {
		config.Interval = 15 * time.Second
	}
	if config.StaleAfter == 0 {
		config.StaleAfter = 10 * time.Minute
	}
	if config.ClaimLimit == 0 {
		config.ClaimLimit = 50
	}
	return &Scheduler{
		store:     store,
		publisher: publisher,
		config:    config,
	}
}

// Schedule routes a freshly created campaign. A nil "at" means run
// now; a future "at" parks it; a past "at" is the caller's mistake.
func (s *Scheduler) Schedule(ctx context.Context, campaign *model.Campaign, at *time.Time) error {
	now := time.Now().UTC()

	if at == nil {
		if err := s.store.MarkStarted(ctx, campaign.ID, now); err != nil {
			return err
		}
		if _, err := s.publisher.PublishDispatch(ctx, campaign.ID); err != nil {
			// The stale sweep re-publishes it, so the row is not lost.
			logger.Error("failed to publish immediate campaign", "campaign_id", campaign.ID, "error", err)
			return err
		}
		logger.Info("campaign queued for immediate dispatch", "campaign_id", campaign.ID)
		return nil
	}

	// Strictly in the future; an instant equal to now is already late.
	if !at.After(now) {
		return model.NewValidationError("scheduled time must be in the future")
	}

	if err := s.store.MarkScheduled(ctx, campaign.ID, at.UTC()); err != nil {
		return err
	}
	logger.Info("campaign scheduled", "campaign_id", campaign.ID, "scheduled_at", at.UTC())
	return nil
}

// Start runs the reconciler loop until Stop is called.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	logger.Info("scheduler reconciler started",
		"interval", s.config.Interval, "stale_after", s.config.StaleAfter)
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunOnce performs a single reconciler pass: claim campaigns whose
// time has come, then re-publish ones that look abandoned.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.claimDue(ctx)
	s.republishStale(ctx)
}

func (s *Scheduler) claimDue(ctx context.Context) {
	now := time.Now().UTC()

	claimed, err := s.store.ClaimDue(ctx, now, s.config.ClaimLimit)
	if err != nil {
		logger.Error("failed to claim due campaigns", "error", err)
		return
	}

	for _, campaign := range claimed {
		if _, err := s.publisher.PublishDispatch(ctx, campaign.ID); err != nil {
			// Row is already IN_PROGRESS; the stale sweep picks it up.
			logger.Error("failed to publish due campaign", "campaign_id", campaign.ID, "error", err)
			continue
		}
		logger.Info("due campaign queued for dispatch", "campaign_id", campaign.ID)
	}
}

func (s *Scheduler) republishStale(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.config.StaleAfter)

	stale, err := s.store.ListStale(ctx, cutoff, s.config.ClaimLimit)
	if err != nil {
		logger.Error("failed to list stale campaigns", "error", err)
		return
	}

	for _, campaign := range stale {
		if _, err := s.publisher.PublishDispatch(ctx, campaign.ID); err != nil {
			logger.Error("failed to re-publish stale campaign", "campaign_id", campaign.ID, "error", err)
			continue
		}
		logger.Warn("re-published stale campaign", "campaign_id", campaign.ID, "started_at", campaign.StartedAt)
	}
}
