package model

import "time"

// Vote is a single voting event. The composite unique index on
// (server_id, minecraft_username, vote_day) is the canonical duplicate-vote
// guard; the service-level pre-check only exists to produce a friendly
// rejection with the next eligible time.
type Vote struct {
	ID                string `json:"id" gorm:"primaryKey"`
	ServerID          string `json:"server_id" gorm:"not null;index;uniqueIndex:idx_votes_server_player_day"`
	MinecraftUsername string `json:"minecraft_username" gorm:"not null;size:16;uniqueIndex:idx_votes_server_player_day"`

	// VoteDay is the UTC calendar date of the vote. It gives the uniqueness
	// constraint a finite key; eligibility itself uses a rolling 24h window
	// over CreatedAt.
	VoteDay string `json:"vote_day" gorm:"not null;size:10;uniqueIndex:idx_votes_server_player_day"`

	VoterIPHash   string `json:"-" gorm:"not null;size:64;index"`
	UserAgentHash string `json:"-" gorm:"size:64"`

	VotifierSent     bool       `json:"votifier_sent" gorm:"not null;default:false"`
	VotifierResponse string     `json:"votifier_response,omitempty" gorm:"type:text"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
}

// VoteDayOf formats t as the UTC calendar day used in the uniqueness key.
func VoteDayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
