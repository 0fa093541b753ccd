package dto

import "time"

type SiteStats struct {
	TotalServers  int64 `json:"totalServers"`
	TotalPlayers  int64 `json:"totalPlayers"`
	TotalVotes    int64 `json:"totalVotes"`
	OnlineServers int64 `json:"onlineServers"`
}

// RateLimitInfo is the limiter's verdict for one request.
type RateLimitInfo struct {
	Allowed   bool       `json:"allowed"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	ResetTime *time.Time `json:"reset_time,omitempty"`
}
