package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrCampaignNotFound is returned when a campaign does not exist.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrRecipientSettled is returned when an outcome write hits a row
	// that already left PENDING. Re-runs treat it as already recorded.
	ErrRecipientSettled = errors.New("recipient already settled")
	// ErrStaleTransition is returned when a status write targets a
	// campaign that already moved at or past the requested state.
	ErrStaleTransition = errors.New("campaign status already advanced")
)

const recipientBatchSize = 500

type CampaignRepository struct {
	*pg.DB
}

func NewCampaignRepository(db *pg.DB) *CampaignRepository {
	return &CampaignRepository{
		db,
	}
}

// CreateWithRecipients persists the campaign row, its attachments and
// every recipient row in one transaction. Either all of it lands or
// none of it does.
func (r *CampaignRepository) CreateWithRecipients(ctx context.Context, c *model.Campaign, recipients []*model.CampaignRecipient) (*model.Campaign, error) {
	entity := toCampaignEntity(c)
	entity.Status = string(model.CampaignStatusDraft)
	entity.TotalRecipients = len(recipients)

	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
			return err
		}

		rows := make([]*CampaignRecipientEntity, len(recipients))
		for i, rec := range recipients {
			e := toRecipientEntity(rec)
			e.CampaignID = entity.ID
			e.Status = string(model.RecipientStatusPending)
			rows[i] = e
		}
		if len(rows) > 0 {
			if err := r.Write(ctx).WithContext(ctx).CreateInBatches(rows, recipientBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toCampaignModel(entity), nil
}

func (r *CampaignRepository) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	var entity CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Attachments").
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return toCampaignModel(&entity), nil
}

func (r *CampaignRepository) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&CampaignEntity{})

	if f.CreatedBy != nil {
		q = q.Where("created_by = ?", *f.CreatedBy)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*CampaignEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toCampaignModels(entities), total, nil
}

// MarkScheduled parks the campaign as PENDING; validation of the
// instant is the scheduler's responsibility.
func (r *CampaignRepository) MarkScheduled(ctx context.Context, id int64, at time.Time) error {
	return r.transition(ctx, id, model.CampaignStatusPending, map[string]interface{}{
		"scheduled_at": at,
	})
}

func (r *CampaignRepository) MarkStarted(ctx context.Context, id int64, at time.Time) error {
	return r.transition(ctx, id, model.CampaignStatusInProgress, map[string]interface{}{
		"started_at": at,
	})
}

// MarkCompleted writes the rollup the dispatcher computed. It must only
// be called after every recipient in the snapshot reached a terminal
// state.
func (r *CampaignRepository) MarkCompleted(ctx context.Context, id int64, at time.Time, sent, failed int) error {
	return r.transition(ctx, id, model.CampaignStatusCompleted, map[string]interface{}{
		"completed_at":    at,
		"messages_sent":   sent,
		"messages_failed": failed,
	})
}

// MarkFailed is reserved for catastrophic pre-dispatch errors, not for
// per-recipient failures.
func (r *CampaignRepository) MarkFailed(ctx context.Context, id int64, at time.Time) error {
	return r.transition(ctx, id, model.CampaignStatusFailed, map[string]interface{}{
		"completed_at": at,
	})
}

// transition moves the campaign to target, guarded so the status only
// ever moves forward. A write refused by the guard reports
// ErrStaleTransition and leaves the row untouched.
func (r *CampaignRepository) transition(ctx context.Context, id int64, target model.CampaignStatus, fields map[string]interface{}) error {
	fields["status"] = string(target)

	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND status IN ?", id, transitionSources(target)).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var probe CampaignEntity
		err := r.Read(ctx).WithContext(ctx).Select("id").Where("id = ?", id).First(&probe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCampaignNotFound
		}
		if err != nil {
			return err
		}
		return ErrStaleTransition
	}
	return nil
}

// transitionSources lists the statuses allowed to move to target under
// the forward-only ordering.
func transitionSources(target model.CampaignStatus) []string {
	all := []model.CampaignStatus{
		model.CampaignStatusDraft,
		model.CampaignStatusPending,
		model.CampaignStatusInProgress,
		model.CampaignStatusCompleted,
		model.CampaignStatusFailed,
	}
	sources := make([]string, 0, len(all))
	for _, s := range all {
		if s.CanTransition(target) {
			sources = append(sources, string(s))
		}
	}
	return sources
}

// ClaimDue atomically claims PENDING campaigns whose scheduled_at has
// passed, moving each to IN_PROGRESS. The guarded per-row update makes
// the claim safe against concurrent reconcilers.
func (r *CampaignRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	var due []*CampaignEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", string(model.CampaignStatusPending), now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&due).
		Error
	if err != nil {
		return nil, err
	}

	claimed := make([]*model.Campaign, 0, len(due))
	for _, e := range due {
		result := r.Write(ctx).WithContext(ctx).
			Model(&CampaignEntity{}).
			Where("id = ? AND status = ?", e.ID, string(model.CampaignStatusPending)).
			Updates(map[string]interface{}{
				"status":     string(model.CampaignStatusInProgress),
				"started_at": now,
			})
		if result.Error != nil {
			return claimed, result.Error
		}
		if result.RowsAffected == 0 {
			// Someone else claimed it between the scan and the update.
			continue
		}
		e.Status = string(model.CampaignStatusInProgress)
		started := now
		e.StartedAt = &started
		claimed = append(claimed, toCampaignModel(e))
	}
	return claimed, nil
}

// ListStale returns IN_PROGRESS campaigns whose dispatch apparently
// never finished. The reconciler re-publishes them; the per-campaign
// run lock and the guarded outcome writes make the re-run safe.
func (r *CampaignRepository) ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]*model.Campaign, error) {
	var entities []*CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ? AND completed_at IS NULL AND started_at <= ?", string(model.CampaignStatusInProgress), startedBefore).
		Order("started_at ASC").
		Limit(limit).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toCampaignModels(entities), nil
}

// ListPendingRecipients returns the fixed snapshot the dispatcher
// drains. Recipients are never added after campaign creation.
func (r *CampaignRepository) ListPendingRecipients(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error) {
	var entities []*CampaignRecipientEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("campaign_id = ? AND status = ?", campaignID, string(model.RecipientStatusPending)).
		Order("id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toRecipientModels(entities), nil
}

func (r *CampaignRepository) ListRecipients(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error) {
	var entities []*CampaignRecipientEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toRecipientModels(entities), nil
}

// RecordOutcome settles one recipient row. The status guard keeps the
// transition single-shot: a row that already left PENDING is never
// rewritten.
func (r *CampaignRepository) RecordOutcome(ctx context.Context, recipientID int64, outcome model.RecipientOutcome) error {
	fields := map[string]interface{}{}
	if outcome.Sent {
		fields["status"] = string(model.RecipientStatusSent)
		fields["sent_at"] = outcome.SentAt
	} else {
		fields["status"] = string(model.RecipientStatusFailed)
		fields["error_message"] = outcome.Reason
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Where("id = ? AND status = ?", recipientID, string(model.RecipientStatusPending)).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecipientSettled
	}
	return nil
}

// CountRecipientOutcomes aggregates per-status counts for the rollup.
// The store never rolls up on its own; the dispatcher pulls the counts
// and pushes them via MarkCompleted.
func (r *CampaignRepository) CountRecipientOutcomes(ctx context.Context, campaignID int64) (model.OutcomeCounts, error) {
	type statusCount struct {
		Status string
		Count  int
	}
	var rows []statusCount
	err := r.Read(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Select("status, count(*) as count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Find(&rows).
		Error
	if err != nil {
		return model.OutcomeCounts{}, err
	}

	var counts model.OutcomeCounts
	for _, row := range rows {
		switch model.RecipientStatus(row.Status) {
		case model.RecipientStatusSent:
			counts.Sent = row.Count
		case model.RecipientStatusFailed:
			counts.Failed = row.Count
		case model.RecipientStatusPending:
			counts.Pending = row.Count
		}
	}
	return counts, nil
}

// CountSentSince counts SENT recipients for one owner from a given
// instant. Feeds the display-only monthly quota usage.
func (r *CampaignRepository) CountSentSince(ctx context.Context, ownerID int64, since time.Time) (int64, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&CampaignRecipientEntity{}).
		Joins("JOIN campaigns ON campaigns.id = campaign_recipients.campaign_id").
		Where("campaigns.created_by = ? AND campaign_recipients.status = ? AND campaign_recipients.sent_at >= ?",
			ownerID, string(model.RecipientStatusSent), since).
		Count(&count).
		Error
	return count, err
}
