package services

import (
	"context"
	"testing"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/recipient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) CreateWithRecipients(ctx context.Context, c *model.Campaign, recipients []*model.CampaignRecipient) (*model.Campaign, error) {
	args := m.Called(ctx, c, recipients)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Campaign), args.Get(1).(int64), args.Error(2)
}

func (m *MockCampaignRepository) ListRecipients(ctx context.Context, campaignID int64) ([]*model.CampaignRecipient, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CampaignRecipient), args.Error(1)
}

func (m *MockCampaignRepository) CountSentSince(ctx context.Context, ownerID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, ownerID, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Get(ctx context.Context, id int64) (*model.MessageTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageTemplate), args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Get(ctx context.Context, id int64) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(ctx context.Context, campaign *model.Campaign, at *time.Time) error {
	args := m.Called(ctx, campaign, at)
	return args.Error(0)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, ownerID int64, src recipient.Source) ([]recipient.Entry, error) {
	args := m.Called(ctx, ownerID, src)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]recipient.Entry), args.Error(1)
}

type serviceMocks struct {
	campaigns *MockCampaignRepository
	templates *MockTemplateRepository
	accounts  *MockAccountRepository
	scheduler *MockScheduler
	resolver  *MockResolver
}

func newService() (*CampaignService, *serviceMocks) {
	m := &serviceMocks{
		campaigns: new(MockCampaignRepository),
		templates: new(MockTemplateRepository),
		accounts:  new(MockAccountRepository),
		scheduler: new(MockScheduler),
		resolver:  new(MockResolver),
	}
	return NewCampaignService(m.campaigns, m.templates, m.accounts, m.resolver, m.scheduler), m
}

func TestCampaignService_Create(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	src := recipient.ManualSource{Text: "03001112222"}
	m.resolver.On("Resolve", ctx, int64(7), src).
		Return([]recipient.Entry{{Phone: "+923001112222"}}, nil)

	created := &model.Campaign{ID: 5, Status: model.CampaignStatusDraft, CreatedBy: 7, TotalRecipients: 1}
	m.campaigns.On("CreateWithRecipients", ctx, mock.MatchedBy(func(c *model.Campaign) bool {
		return c.Name == "eid offers" && c.MessageContent == "50% off" && c.CreatedBy == 7
	}), mock.MatchedBy(func(rows []*model.CampaignRecipient) bool {
		return len(rows) == 1 && rows[0].PhoneNumber == "+923001112222"
	})).Return(created, nil)

	m.scheduler.On("Schedule", ctx, created, (*time.Time)(nil)).Return(nil)
	m.campaigns.On("Get", ctx, int64(5)).
		Return(&model.Campaign{ID: 5, Status: model.CampaignStatusInProgress}, nil)

	campaign, err := svc.Create(ctx, 7, CampaignCreateRequest{
		Name:           "eid offers",
		MessageContent: "50% off",
		Source:         src,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), campaign.ID)

	m.campaigns.AssertExpectations(t)
	m.scheduler.AssertExpectations(t)
}

func TestCampaignService_Create_WithAttachments(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	src := recipient.ManualSource{Text: "03001112222"}
	m.resolver.On("Resolve", ctx, int64(7), src).
		Return([]recipient.Entry{{Phone: "+923001112222"}}, nil)

	created := &model.Campaign{ID: 5}
	m.campaigns.On("CreateWithRecipients", ctx, mock.MatchedBy(func(c *model.Campaign) bool {
		return len(c.Attachments) == 1 &&
			c.Attachments[0].FileName == "flyer.pdf" &&
			c.Attachments[0].StorageKey != ""
	}), mock.Anything).Return(created, nil)
	m.scheduler.On("Schedule", ctx, created, (*time.Time)(nil)).Return(nil)
	m.campaigns.On("Get", ctx, int64(5)).Return(created, nil)

	_, err := svc.Create(ctx, 7, CampaignCreateRequest{
		Name:           "with files",
		MessageContent: "see attached",
		Source:         src,
		Attachments:    []AttachmentUpload{{FileName: "flyer.pdf"}},
	})
	require.NoError(t, err)
}

func TestCampaignService_Create_NameRequired(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Create(context.Background(), 7, CampaignCreateRequest{
		Name:           "   ",
		MessageContent: "hi",
		Source:         recipient.ManualSource{Text: "03001112222"},
	})
	assert.True(t, model.IsValidation(err))
}

func TestCampaignService_Create_ContentOrTemplateRequired(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Create(context.Background(), 7, CampaignCreateRequest{
		Name:   "no body",
		Source: recipient.ManualSource{Text: "03001112222"},
	})
	assert.True(t, model.IsValidation(err))
}

func TestCampaignService_Create_ContentAndTemplateConflict(t *testing.T) {
	svc, _ := newService()

	templateID := int64(3)
	_, err := svc.Create(context.Background(), 7, CampaignCreateRequest{
		Name:           "both",
		MessageContent: "hi",
		TemplateID:     &templateID,
		Source:         recipient.ManualSource{Text: "03001112222"},
	})
	assert.True(t, model.IsValidation(err))
}

func TestCampaignService_Create_FromTemplate(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	templateID := int64(3)
	src := recipient.ManualSource{Text: "03001112222"}

	m.templates.On("Get", ctx, templateID).
		Return(&model.MessageTemplate{ID: 3, Content: "template body", CreatedBy: 7}, nil)
	m.resolver.On("Resolve", ctx, int64(7), src).
		Return([]recipient.Entry{{Phone: "+923001112222"}}, nil)

	created := &model.Campaign{ID: 5}
	m.campaigns.On("CreateWithRecipients", ctx, mock.MatchedBy(func(c *model.Campaign) bool {
		return c.MessageContent == "template body"
	}), mock.Anything).Return(created, nil)
	m.scheduler.On("Schedule", ctx, created, (*time.Time)(nil)).Return(nil)
	m.campaigns.On("Get", ctx, int64(5)).Return(created, nil)

	_, err := svc.Create(ctx, 7, CampaignCreateRequest{
		Name:       "from template",
		TemplateID: &templateID,
		Source:     src,
	})
	require.NoError(t, err)
}

func TestCampaignService_Create_ForeignTemplateDenied(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	templateID := int64(3)
	m.templates.On("Get", ctx, templateID).
		Return(&model.MessageTemplate{ID: 3, Content: "x", CreatedBy: 99}, nil)
	m.accounts.On("Get", ctx, int64(99)).
		Return(&model.Account{ID: 99, UserType: "user"}, nil)

	_, err := svc.Create(ctx, 7, CampaignCreateRequest{
		Name:       "stolen",
		TemplateID: &templateID,
		Source:     recipient.ManualSource{Text: "03001112222"},
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCampaignService_Create_AdminTemplateShared(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	templateID := int64(3)
	src := recipient.ManualSource{Text: "03001112222"}
	m.templates.On("Get", ctx, templateID).
		Return(&model.MessageTemplate{ID: 3, Content: "shared", CreatedBy: 99}, nil)
	m.accounts.On("Get", ctx, int64(99)).
		Return(&model.Account{ID: 99, UserType: "admin"}, nil)
	m.resolver.On("Resolve", ctx, int64(7), src).
		Return([]recipient.Entry{{Phone: "+923001112222"}}, nil)

	created := &model.Campaign{ID: 5}
	m.campaigns.On("CreateWithRecipients", ctx, mock.Anything, mock.Anything).Return(created, nil)
	m.scheduler.On("Schedule", ctx, created, (*time.Time)(nil)).Return(nil)
	m.campaigns.On("Get", ctx, int64(5)).Return(created, nil)

	_, err := svc.Create(ctx, 7, CampaignCreateRequest{
		Name:       "shared template",
		TemplateID: &templateID,
		Source:     src,
	})
	require.NoError(t, err)
}

func TestCampaignService_Create_PastScheduleRejected(t *testing.T) {
	svc, m := newService()

	past := time.Now().Add(-time.Hour)
	_, err := svc.Create(context.Background(), 7, CampaignCreateRequest{
		Name:           "late",
		MessageContent: "hi",
		Source:         recipient.ManualSource{Text: "03001112222"},
		ScheduledAt:    &past,
	})

	assert.True(t, model.IsValidation(err))

	// The boundary is strict: "now" does not count as the future.
	now := time.Now()
	_, err = svc.Create(context.Background(), 7, CampaignCreateRequest{
		Name:           "late",
		MessageContent: "hi",
		Source:         recipient.ManualSource{Text: "03001112222"},
		ScheduledAt:    &now,
	})
	assert.True(t, model.IsValidation(err))

	m.campaigns.AssertNotCalled(t, "CreateWithRecipients", mock.Anything, mock.Anything, mock.Anything)
}

func TestCampaignService_Create_ResolverErrorPropagates(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	src := recipient.ManualSource{Text: "garbage"}
	m.resolver.On("Resolve", ctx, int64(7), src).
		Return(nil, model.NewValidationError("no valid recipients"))

	_, err := svc.Create(ctx, 7, CampaignCreateRequest{
		Name:           "empty",
		MessageContent: "hi",
		Source:         src,
	})
	assert.True(t, model.IsValidation(err))
	m.campaigns.AssertNotCalled(t, "CreateWithRecipients", mock.Anything, mock.Anything, mock.Anything)
}

func TestCampaignService_Get_OwnershipEnforced(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	m.campaigns.On("Get", ctx, int64(5)).
		Return(&model.Campaign{ID: 5, CreatedBy: 99}, nil)
	m.accounts.On("Get", ctx, int64(7)).
		Return(&model.Account{ID: 7, UserType: "user"}, nil)

	_, err := svc.Get(ctx, 7, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCampaignService_Get_AdminSeesAll(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	m.campaigns.On("Get", ctx, int64(5)).
		Return(&model.Campaign{ID: 5, CreatedBy: 99}, nil)
	m.accounts.On("Get", ctx, int64(1)).
		Return(&model.Account{ID: 1, UserType: "admin"}, nil)

	campaign, err := svc.Get(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), campaign.ID)
}

func TestCampaignService_List_ScopedToOwner(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	m.accounts.On("Get", ctx, int64(7)).
		Return(&model.Account{ID: 7, UserType: "user"}, nil)
	m.campaigns.On("List", ctx, mock.MatchedBy(func(f model.CampaignFilter) bool {
		return f.CreatedBy != nil && *f.CreatedBy == 7
	})).Return([]*model.Campaign{}, int64(0), nil)

	_, _, err := svc.List(ctx, 7, model.CampaignFilter{})
	require.NoError(t, err)
	m.campaigns.AssertExpectations(t)
}

func TestCampaignService_QuotaUsage(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	m.accounts.On("Get", ctx, int64(7)).
		Return(&model.Account{ID: 7, MessageQuota: 1000}, nil)
	m.campaigns.On("CountSentSince", ctx, int64(7), mock.AnythingOfType("time.Time")).
		Return(int64(120), nil)

	usage, err := svc.QuotaUsage(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1000, usage.Quota)
	assert.Equal(t, 120, usage.UsedMonth)
	assert.Equal(t, 880, usage.Remaining)
	assert.True(t, usage.Available)
}

func TestCampaignService_QuotaUsage_StatsUnavailable(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()

	m.accounts.On("Get", ctx, int64(7)).
		Return(&model.Account{ID: 7, MessageQuota: 1000}, nil)
	m.campaigns.On("CountSentSince", ctx, int64(7), mock.AnythingOfType("time.Time")).
		Return(int64(0), assert.AnError)

	usage, err := svc.QuotaUsage(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1000, usage.Quota)
	assert.False(t, usage.Available)
}
