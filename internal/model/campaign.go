package model

import (
	"time"
)

// CampaignStatus is the lifecycle state of a campaign. Transitions are
// forward-only: a campaign never moves back to an earlier state.
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "DRAFT"
	CampaignStatusPending    CampaignStatus = "PENDING"
	CampaignStatusInProgress CampaignStatus = "IN_PROGRESS"
	CampaignStatusCompleted  CampaignStatus = "COMPLETED"
	CampaignStatusFailed     CampaignStatus = "FAILED"
)

var campaignStatusRank = map[CampaignStatus]int{
	CampaignStatusDraft:      0,
	CampaignStatusPending:    1,
	CampaignStatusInProgress: 2,
	CampaignStatusCompleted:  3,
	CampaignStatusFailed:     3,
}

// CanTransition reports whether moving from s to next keeps the
// forward-only ordering.
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	from, ok := campaignStatusRank[s]
	if !ok {
		return false
	}
	to, ok := campaignStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type Campaign struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	MessageContent string         `json:"message_content"`
	Status         CampaignStatus `json:"status"`
	CreatedBy      int64          `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	ScheduledAt    *time.Time     `json:"scheduled_at,omitempty"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`

	TotalRecipients int `json:"total_recipients"`
	MessagesSent    int `json:"messages_sent"`
	MessagesFailed  int `json:"messages_failed"`

	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a stored file reference carried with the campaign
// message. Storage mechanics live outside the engine; only the key and
// display name are kept here.
type Attachment struct {
	ID         int64     `json:"id"`
	CampaignID int64     `json:"campaign_id"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CampaignFilter controls List queries.
type CampaignFilter struct {
	CreatedBy *int64
	Statuses  []CampaignStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}
