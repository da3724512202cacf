package model

// Contact is an address-book entry owned by one account. The engine
// only reads contacts; CRUD lives outside this service.
type Contact struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}
