package model

// Account is the authenticated identity that owns campaigns and
// contacts. Authentication mechanics are out of scope; the directory
// only supplies identity and the monthly send quota.
type Account struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	UserType     string `json:"user_type"`
	MessageQuota int    `json:"message_quota"`
}

// QuotaUsage is display-only: the quota is never enforced at send
// time.
type QuotaUsage struct {
	Quota     int  `json:"quota"`
	UsedMonth int  `json:"used_this_month"`
	Remaining int  `json:"remaining"`
	Available bool `json:"stats_available"`
}
