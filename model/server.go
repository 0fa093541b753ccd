package model

import "time"

// Server is a game server listing. Vote counters are denormalized from the
// votes table and recomputed after every accepted vote, never incremented.
type Server struct {
	ID          string `json:"id" gorm:"primaryKey"`
	OwnerID     string `json:"owner_id" gorm:"index;size:64"`
	Name        string `json:"name" gorm:"not null;size:100"`
	Description string `json:"description" gorm:"type:text"`
	Host        string `json:"host" gorm:"not null;size:255"`
	Port        int    `json:"port" gorm:"not null;default:25565"`
	Category    string `json:"category" gorm:"index;size:50"`
	Tags        string `json:"tags" gorm:"size:255"` // comma separated
	Website     string `json:"website" gorm:"size:255"`

	// No column default: gorm would skip a false value on insert and the
	// database default would win.
	VotingEnabled bool `json:"voting_enabled" gorm:"not null"`

	// Reward notification target. All three must be set for the notifier to
	// run; VotifierKey holds the PEM-encoded RSA public key.
	VotifierHost string `json:"votifier_host,omitempty" gorm:"size:255"`
	VotifierPort int    `json:"votifier_port,omitempty"`
	VotifierKey  string `json:"-" gorm:"type:text"`

	Status         string     `json:"status" gorm:"size:16;default:unknown"`
	CurrentPlayers int        `json:"current_players" gorm:"not null;default:0"`
	MaxPlayers     int        `json:"max_players" gorm:"not null;default:0"`
	Version        string     `json:"version" gorm:"size:50"`
	LastPing       *time.Time `json:"last_ping,omitempty"`

	IsApproved bool   `json:"is_approved" gorm:"not null;default:false;index"`
	Featured   bool   `json:"featured" gorm:"not null;default:false"`
	BannerURL  string `json:"banner_url,omitempty" gorm:"size:512"`

	DailyVotes   int        `json:"daily_votes" gorm:"not null;default:0"`
	WeeklyVotes  int        `json:"weekly_votes" gorm:"not null;default:0"`
	MonthlyVotes int        `json:"monthly_votes" gorm:"not null;default:0"`
	TotalVotes   int        `json:"total_votes" gorm:"not null;default:0;index"`
	LastVote     *time.Time `json:"last_vote,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// HasVotifier reports whether a reward notification target is configured.
func (s *Server) HasVotifier() bool {
	return s.VotifierHost != "" && s.VotifierPort > 0 && s.VotifierKey != ""
}

// ServerPingHistory records one status probe result per row.
type ServerPingHistory struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	ServerID     string    `json:"server_id" gorm:"not null;index"`
	IsOnline     bool      `json:"is_online" gorm:"not null"`
	ResponseTime int64     `json:"response_time"` // milliseconds
	PlayerCount  int       `json:"player_count"`
	MaxPlayers   int       `json:"max_players"`
	Version      string    `json:"version" gorm:"size:50"`
	MOTD         string    `json:"motd" gorm:"type:text"`
	ErrorMessage string    `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;index"`
}
