package repository

import (
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
)

type CampaignEntity struct {
	ID             int64      `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	Name           string     `db:"name"            gorm:"column:name;not null"`
	MessageContent string     `db:"message_content" gorm:"column:message_content;not null"`
	Status         string     `db:"status"          gorm:"column:status;not null;default:DRAFT;index"`
	CreatedBy      int64      `db:"created_by"      gorm:"column:created_by;not null;index"`
	CreatedAt      time.Time  `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	ScheduledAt    *time.Time `db:"scheduled_at"    gorm:"column:scheduled_at;index"`
	StartedAt      *time.Time `db:"started_at"      gorm:"column:started_at"`
	CompletedAt    *time.Time `db:"completed_at"    gorm:"column:completed_at"`

	TotalRecipients int `db:"total_recipients" gorm:"column:total_recipients;not null;default:0"`
	MessagesSent    int `db:"messages_sent"    gorm:"column:messages_sent;not null;default:0"`
	MessagesFailed  int `db:"messages_failed"  gorm:"column:messages_failed;not null;default:0"`

	Recipients  []*CampaignRecipientEntity `gorm:"foreignKey:CampaignID"`
	Attachments []*AttachmentEntity        `gorm:"foreignKey:CampaignID"`
}

func (CampaignEntity) TableName() string { return "campaigns" }

type CampaignRecipientEntity struct {
	ID          int64           `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	CampaignID  int64           `db:"campaign_id"   gorm:"column:campaign_id;not null;uniqueIndex:uq_campaign_phone;index:idx_recipient_campaign_status"`
	Campaign    *CampaignEntity `gorm:"foreignKey:CampaignID;references:ID;constraint:OnDelete:CASCADE"`
	PhoneNumber string          `db:"phone_number"  gorm:"column:phone_number;not null;uniqueIndex:uq_campaign_phone"`
	ContactID   *int64          `db:"contact_id"    gorm:"column:contact_id"`
	Status      string          `db:"status"        gorm:"column:status;not null;default:PENDING;index:idx_recipient_campaign_status"`
	SentAt      *time.Time      `db:"sent_at"       gorm:"column:sent_at"`
	ErrorMsg    string          `db:"error_message" gorm:"column:error_message"`
}

func (CampaignRecipientEntity) TableName() string { return "campaign_recipients" }

type AttachmentEntity struct {
	ID         int64           `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	CampaignID int64           `db:"campaign_id" gorm:"column:campaign_id;not null;index"`
	Campaign   *CampaignEntity `gorm:"foreignKey:CampaignID;references:ID;constraint:OnDelete:CASCADE"`
	StorageKey string          `db:"storage_key" gorm:"column:storage_key;not null"`
	FileName   string          `db:"file_name"   gorm:"column:file_name;not null"`
	UploadedAt time.Time       `db:"uploaded_at" gorm:"column:uploaded_at;autoCreateTime"`
}

func (AttachmentEntity) TableName() string { return "attachments" }

func toCampaignEntity(c *model.Campaign) *CampaignEntity {
	if c == nil {
		return nil
	}
	e := &CampaignEntity{
		ID:              c.ID,
		Name:            c.Name,
		MessageContent:  c.MessageContent,
		Status:          string(c.Status),
		CreatedBy:       c.CreatedBy,
		CreatedAt:       c.CreatedAt,
		ScheduledAt:     c.ScheduledAt,
		StartedAt:       c.StartedAt,
		CompletedAt:     c.CompletedAt,
		TotalRecipients: c.TotalRecipients,
		MessagesSent:    c.MessagesSent,
		MessagesFailed:  c.MessagesFailed,
	}
	for _, a := range c.Attachments {
		e.Attachments = append(e.Attachments, &AttachmentEntity{
			ID:         a.ID,
			CampaignID: a.CampaignID,
			StorageKey: a.StorageKey,
			FileName:   a.FileName,
			UploadedAt: a.UploadedAt,
		})
	}
	return e
}

func toCampaignModel(e *CampaignEntity) *model.Campaign {
	if e == nil {
		return nil
	}
	c := &model.Campaign{
		ID:              e.ID,
		Name:            e.Name,
		MessageContent:  e.MessageContent,
		Status:          model.CampaignStatus(e.Status),
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
		ScheduledAt:     e.ScheduledAt,
		StartedAt:       e.StartedAt,
		CompletedAt:     e.CompletedAt,
		TotalRecipients: e.TotalRecipients,
		MessagesSent:    e.MessagesSent,
		MessagesFailed:  e.MessagesFailed,
	}
	for _, a := range e.Attachments {
		c.Attachments = append(c.Attachments, model.Attachment{
			ID:         a.ID,
			CampaignID: a.CampaignID,
			StorageKey: a.StorageKey,
			FileName:   a.FileName,
			UploadedAt: a.UploadedAt,
		})
	}
	return c
}

func toCampaignModels(entities []*CampaignEntity) []*model.Campaign {
	if entities == nil {
		return nil
	}
	models := make([]*model.Campaign, len(entities))
	for i, e := range entities {
		models[i] = toCampaignModel(e)
	}
	return models
}

func toRecipientEntity(r *model.CampaignRecipient) *CampaignRecipientEntity {
	if r == nil {
		return nil
	}
	return &CampaignRecipientEntity{
		ID:          r.ID,
		CampaignID:  r.CampaignID,
		PhoneNumber: r.PhoneNumber,
		ContactID:   r.ContactID,
		Status:      string(r.Status),
		SentAt:      r.SentAt,
		ErrorMsg:    r.ErrorMsg,
	}
}

func toRecipientModel(e *CampaignRecipientEntity) *model.CampaignRecipient {
	if e == nil {
		return nil
	}
	return &model.CampaignRecipient{
		ID:          e.ID,
		CampaignID:  e.CampaignID,
		PhoneNumber: e.PhoneNumber,
		ContactID:   e.ContactID,
		Status:      model.RecipientStatus(e.Status),
		SentAt:      e.SentAt,
		ErrorMsg:    e.ErrorMsg,
	}
}

func toRecipientModels(entities []*CampaignRecipientEntity) []*model.CampaignRecipient {
	if entities == nil {
		return nil
	}
	models := make([]*model.CampaignRecipient, len(entities))
	for i, e := range entities {
		models[i] = toRecipientModel(e)
	}
	return models
}
