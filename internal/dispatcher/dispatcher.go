package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gateway "github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/gateways"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/prom"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/worker"
)

// ErrRunIncomplete means some recipients are still PENDING after the
// pass, usually because recording their outcome hit a storage error.
// The run is retried; settled rows are skipped on the next pass.
var ErrRunIncomplete = errors.New("campaign run left unresolved recipients")

const maxErrorReasonLen = 500

// CampaignStore is the storage slice the dispatcher needs.
type CampaignStore interface {
	Get(ctx context.Context, id int64) (*model.Campaign, error)
	ListPendingRecipients(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error)
	RecordOutcome(ctx context.Context, recipientID int64, outcome model.RecipientOutcome) error
	CountRecipientOutcomes(ctx context.Context, campaignID int64) (model.OutcomeCounts, error)
	MarkCompleted(ctx context.Context, id int64, at time.Time, sent, failed int) error
}

// MessageSender delivers one message to one phone.
type MessageSender interface {
	SendMessage(ctx context.Context, req *gateway.SendMessageRequest) error
}

type sendJob struct {
	ctx       context.Context
	campaign  *model.Campaign
	recipient *model.CampaignRecipient
	wg        *sync.WaitGroup
}

// Dispatcher executes one campaign run: snapshot the pending
// recipients, fan the sends out over a bounded worker pool, record
// each outcome exactly once, then roll the totals up onto the
// campaign row.
type Dispatcher struct {
	store   CampaignStore
	sender  MessageSender
	manager *worker.WorkerManager
}

func New(store CampaignStore, sender MessageSender, concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 8
	}

	d := &Dispatcher{
		store:   store,
		sender:  sender,
		manager: worker.NewWorkerManager(concurrency*2, concurrency, nil),
	}
	d.manager.SetWorker(d.processSend)
	go func() {
		_ = d.manager.Start()
	}()

	return d
}

func (d *Dispatcher) Stop() {
	d.manager.Exit()
}

// Run processes every still-pending recipient of the campaign. Safe to
// call again after a crash or partial failure: settled rows are not in
// the snapshot and the status guard in storage refuses double writes.
func (d *Dispatcher) Run(ctx context.Context, campaignID int64) error {
	campaign, err := d.store.Get(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign %d: %w", campaignID, err)
	}

	switch campaign.Status {
	case model.CampaignStatusCompleted, model.CampaignStatusFailed:
		logger.Info("campaign already settled, skipping run", "campaign_id", campaignID, "status", campaign.Status)
		return nil
	}

	pending, err := d.store.ListPendingRecipients(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to snapshot pending recipients for campaign %d: %w", campaignID, err)
	}

	logger.Info("campaign run starting", "campaign_id", campaignID, "pending", len(pending))

	var wg sync.WaitGroup
	for _, recipient := range pending {
		wg.Add(1)
		d.manager.Enqueue(&sendJob{
			ctx:       ctx,
			campaign:  campaign,
			recipient: recipient,
			wg:        &wg,
		})
	}
	wg.Wait()

	return d.rollUp(ctx, campaign)
}

func (d *Dispatcher) processSend(workerIndex int, job interface{}) {
	j, ok := job.(*sendJob)
	if !ok {
		logger.Error("unexpected job type on dispatch pool", "worker", workerIndex)
		return
	}
	defer j.wg.Done()

	d.send(j.ctx, j.campaign, j.recipient)
}

func (d *Dispatcher) send(ctx context.Context, campaign *model.Campaign, recipient *model.CampaignRecipient) {
	start := time.Now()
	err := d.sender.SendMessage(ctx, &gateway.SendMessageRequest{
		UserID:  campaign.CreatedBy,
		Phone:   recipient.PhoneNumber,
		Message: campaign.MessageContent,
	})
	duration := time.Since(start).Seconds()

	if err != nil && ctx.Err() != nil {
		// The run context ended mid-send, by shutdown or expiry. That
		// is not a delivery verdict; the row stays PENDING and the
		// retried run settles it.
		return
	}

	outcome := model.RecipientOutcome{Sent: true, SentAt: time.Now().UTC()}
	metricOutcome := "sent"
	if err != nil {
		outcome = model.RecipientOutcome{Sent: false, Reason: truncateReason(err.Error())}
		metricOutcome = "failed"
		logger.Warn("message delivery failed",
			"campaign_id", campaign.ID, "recipient_id", recipient.ID, "error", err)
	}

	prom.ObserveSendDuration(duration, metricOutcome)
	prom.IncMessageOutcome(metricOutcome)

	if err := d.store.RecordOutcome(ctx, recipient.ID, outcome); err != nil {
		// Row stays PENDING and the retried run resolves it.
		logger.Error("failed to record recipient outcome",
			"campaign_id", campaign.ID, "recipient_id", recipient.ID, "error", err)
	}
}

// rollUp recomputes the totals from the rows and settles the campaign.
// The campaign only reaches COMPLETED when every recipient is settled,
// so sent+failed always equals the recipient count at that point.
func (d *Dispatcher) rollUp(ctx context.Context, campaign *model.Campaign) error {
	counts, err := d.store.CountRecipientOutcomes(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to count outcomes for campaign %d: %w", campaign.ID, err)
	}

	if counts.Pending > 0 {
		prom.IncRun("incomplete")
		return fmt.Errorf("%w: campaign %d has %d pending recipients", ErrRunIncomplete, campaign.ID, counts.Pending)
	}

	if err := d.store.MarkCompleted(ctx, campaign.ID, time.Now().UTC(), counts.Sent, counts.Failed); err != nil {
		return fmt.Errorf("failed to complete campaign %d: %w", campaign.ID, err)
	}

	prom.IncRun("completed")
	logger.Info("campaign run completed",
		"campaign_id", campaign.ID, "sent", counts.Sent, "failed", counts.Failed)

	return nil
}

func truncateReason(reason string) string {
	if len(reason) > maxErrorReasonLen {
		return reason[:maxErrorReasonLen]
	}
	return reason
}
