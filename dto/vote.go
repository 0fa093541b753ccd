package dto

import "time"

type SubmitVoteRequest struct {
	ServerID          string `json:"serverId" validate:"required" example:"0190f7a2-7e6c-7b3a-9c1e-2f6f0a9d4b11"`
	MinecraftUsername string `json:"minecraftUsername" validate:"required,minecraft_username" example:"Player_1"`
	CaptchaToken      string `json:"captchaToken,omitempty" example:"03AGdBq27..."`
}

func (r SubmitVoteRequest) Validate() error {
	return GetValidator().Struct(r)
}

type SubmitVoteResponse struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	VoteID         string    `json:"voteId"`
	PluginNotified bool      `json:"pluginNotified"`
	NextVoteTime   time.Time `json:"nextVoteTime"`
}

// VoteRejection is the structured body of a non-2xx vote outcome. Reason is a
// stable machine-readable code; NextVoteTime is set for the already-voted
// case and RetryAfter (seconds) for rate-limit rejections.
type VoteRejection struct {
	Reason       string     `json:"reason"`
	NextVoteTime *time.Time `json:"nextVoteTime,omitempty"`
	RetryAfter   int        `json:"retryAfter,omitempty"`
}

type VoteHistoryResponse struct {
	Votes []VoteInfo `json:"votes"`
	Total int64      `json:"total"`
}

type VoteInfo struct {
	ID                string    `json:"id"`
	ServerID          string    `json:"server_id"`
	MinecraftUsername string    `json:"minecraft_username"`
	VotifierSent      bool      `json:"votifier_sent"`
	CreatedAt         time.Time `json:"created_at"`
}
