package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/recipient"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("error notfound")
	ErrForbidden = errors.New("access denied")
)

const adminUserType = "admin"

type CampaignRepository interface {
	CreateWithRecipients(ctx context.Context, c *model.Campaign, recipients []*model.CampaignRecipient) (*model.Campaign, error)
	Get(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) // results, totalCount
	ListRecipients(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error)
	CountSentSince(ctx context.Context, ownerID int64, since time.Time) (int64, error)
}

type TemplateRepository interface {
	Get(ctx context.Context, id int64) (*model.MessageTemplate, error)
}

type AccountRepository interface {
	Get(ctx context.Context, id int64) (*model.Account, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, campaign *model.Campaign, at *time.Time) error
}

type RecipientResolver interface {
	Resolve(ctx context.Context, ownerID int64, src recipient.Source) ([]recipient.Entry, error)
}

type AttachmentUpload struct {
	FileName string
}

type CampaignCreateRequest struct {
	Name           string
	MessageContent string
	TemplateID     *int64
	Source         recipient.Source
	ScheduledAt    *time.Time
	Attachments    []AttachmentUpload
}

type CampaignService struct {
	campaignRepo CampaignRepository
	templateRepo TemplateRepository
	accountRepo  AccountRepository
	resolver     RecipientResolver
	scheduler    Scheduler
}

func NewCampaignService(campaignRepo CampaignRepository, templateRepo TemplateRepository, accountRepo AccountRepository, resolver RecipientResolver, scheduler Scheduler) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		templateRepo: templateRepo,
		accountRepo:  accountRepo,
		resolver:     resolver,
		scheduler:    scheduler,
	}
}

// Create validates the request, resolves the audience, persists the
// campaign with all of its recipients in one transaction and hands it
// to the scheduler. Nothing is stored if any step before the
// transaction fails.
func (s *CampaignService) Create(ctx context.Context, ownerID int64, req CampaignCreateRequest) (*model.Campaign, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.NewValidationError("campaign name is required")
	}

	content, err := s.resolveContent(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}

	if req.ScheduledAt != nil && !req.ScheduledAt.After(time.Now()) {
		return nil, model.NewValidationError("scheduled time must be in the future")
	}

	entries, err := s.resolver.Resolve(ctx, ownerID, req.Source)
	if err != nil {
		return nil, err
	}

	recipients := make([]*model.CampaignRecipient, len(entries))
	for i, e := range entries {
		recipients[i] = &model.CampaignRecipient{
			PhoneNumber: e.Phone,
			ContactID:   e.ContactID,
		}
	}

	attachments := make([]model.Attachment, len(req.Attachments))
	for i, a := range req.Attachments {
		attachments[i] = model.Attachment{
			StorageKey: uuid.NewString(),
			FileName:   a.FileName,
		}
	}

	campaign, err := s.campaignRepo.CreateWithRecipients(ctx, &model.Campaign{
		Name:           name,
		MessageContent: content,
		CreatedBy:      ownerID,
		Attachments:    attachments,
	}, recipients)
	if err != nil {
		return nil, err
	}

	if err := s.scheduler.Schedule(ctx, campaign, req.ScheduledAt); err != nil {
		return nil, err
	}

	logger.Info("campaign created",
		"campaign_id", campaign.ID, "owner_id", ownerID, "recipients", campaign.TotalRecipients)

	return s.campaignRepo.Get(ctx, campaign.ID)
}

func (s *CampaignService) resolveContent(ctx context.Context, ownerID int64, req CampaignCreateRequest) (string, error) {
	content := strings.TrimSpace(req.MessageContent)

	if req.TemplateID == nil {
		if content == "" {
			return "", model.NewValidationError("message content or template is required")
		}
		return content, nil
	}
	if content != "" {
		return "", model.NewValidationError("provide either message content or a template, not both")
	}

	template, err := s.templateRepo.Get(ctx, *req.TemplateID)
	if err != nil {
		return "", err
	}

	// Own templates plus the shared ones admins publish.
	if template.CreatedBy != ownerID {
		creator, err := s.accountRepo.Get(ctx, template.CreatedBy)
		if err != nil || creator.UserType != adminUserType {
			return "", ErrForbidden
		}
	}

	return template.Content, nil
}

// Get returns the campaign only to its owner (admins see everything).
func (s *CampaignService) Get(ctx context.Context, ownerID, id int64) (*model.Campaign, error) {
	campaign, err := s.campaignRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.CreatedBy != ownerID && !s.isAdmin(ctx, ownerID) {
		return nil, ErrNotFound
	}
	return campaign, nil
}

func (s *CampaignService) List(ctx context.Context, ownerID int64, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	if !s.isAdmin(ctx, ownerID) {
		f.CreatedBy = &ownerID
	}
	return s.campaignRepo.List(ctx, f)
}

func (s *CampaignService) Recipients(ctx context.Context, ownerID, campaignID int64) ([]*model.CampaignRecipient, error) {
	if _, err := s.Get(ctx, ownerID, campaignID); err != nil {
		return nil, err
	}
	return s.campaignRepo.ListRecipients(ctx, campaignID)
}

// QuotaUsage is dashboard data only, sends are never blocked by it.
// When the sent count cannot be computed the quota is still shown with
// Available=false instead of failing the whole page.
func (s *CampaignService) QuotaUsage(ctx context.Context, ownerID int64) (*model.QuotaUsage, error) {
	account, err := s.accountRepo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	usage := &model.QuotaUsage{Quota: account.MessageQuota}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	used, err := s.campaignRepo.CountSentSince(ctx, ownerID, monthStart)
	if err != nil {
		logger.Warn("quota usage unavailable", "owner_id", ownerID, "error", err)
		return usage, nil
	}

	usage.UsedMonth = int(used)
	usage.Remaining = account.MessageQuota - int(used)
	if usage.Remaining < 0 {
		usage.Remaining = 0
	}
	usage.Available = true

	return usage, nil
}

func (s *CampaignService) isAdmin(ctx context.Context, userID int64) bool {
	account, err := s.accountRepo.Get(ctx, userID)
	if err != nil {
		return false
	}
	return account.UserType == adminUserType
}
