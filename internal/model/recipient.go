package model

import "time"

// RecipientStatus is the per-row delivery state. A row starts PENDING
// and transitions exactly once, to SENT or FAILED.
type RecipientStatus string

const (
	RecipientStatusPending RecipientStatus = "PENDING"
	RecipientStatusSent    RecipientStatus = "SENT"
	RecipientStatusFailed  RecipientStatus = "FAILED"
)

type CampaignRecipient struct {
	ID          int64           `json:"id"`
	CampaignID  int64           `json:"campaign_id"`
	PhoneNumber string          `json:"phone_number"`
	ContactID   *int64          `json:"contact_id,omitempty"`
	Status      RecipientStatus `json:"status"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
	ErrorMsg    string          `json:"error_message,omitempty"`
}

// RecipientOutcome is what the dispatcher records for one recipient.
type RecipientOutcome struct {
	Sent   bool
	SentAt time.Time
	Reason string
}

// OutcomeCounts is the per-campaign rollup the dispatcher computes
// before pushing it onto the campaign row.
type OutcomeCounts struct {
	Sent    int
	Failed  int
	Pending int
}
