package dto

import "github.com/minevote/api/model"

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required"`
}

func (r AdminLoginRequest) Validate() error {
	return GetValidator().Struct(r)
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	Admin     AdminInfo `json:"admin"`
}

type AdminInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

type AdminSetupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=12"`
}

func (r AdminSetupRequest) Validate() error {
	return GetValidator().Struct(r)
}

type AdminListServersRequest struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Filter string `query:"filter"` // all, pending, approved, featured
	Search string `query:"search"`
}

type AdminUpdateServerRequest struct {
	IsApproved    *bool `json:"is_approved,omitempty"`
	Featured      *bool `json:"featured,omitempty"`
	VotingEnabled *bool `json:"voting_enabled,omitempty"`
}

func (r AdminUpdateServerRequest) Validate() error {
	return GetValidator().Struct(r)
}

type AdminDashboardStats struct {
	TotalServers   int64 `json:"total_servers"`
	PendingServers int64 `json:"pending_servers"`
	TotalVotes     int64 `json:"total_votes"`
	VotesToday     int64 `json:"votes_today"`
}

type AdminAuditLogResponse struct {
	Logs       []model.AdminAuditLog `json:"logs"`
	Pagination Pagination            `json:"pagination"`
}
