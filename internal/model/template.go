package model

import "time"

// MessageTemplate is a reusable message body. Plain text only, no
// substitution logic beyond what the author typed.
type MessageTemplate struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
