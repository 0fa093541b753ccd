package shared

const (
	AdminID   = "admin_id"
	AdminRole = "admin_role"
	ClientIP  = "client_ip"

	RoleSuperAdmin = "super_admin"
	RoleModerator  = "moderator"

	ServerStatusOnline  = "online"
	ServerStatusOffline = "offline"
	ServerStatusUnknown = "unknown"

	// Vote rejection reason codes surfaced to clients.
	ReasonInvalidUsername = "invalid_username"
	ReasonServerNotFound  = "server_not_found"
	ReasonVotingDisabled  = "voting_disabled"
	ReasonAlreadyVoted    = "already_voted"
	ReasonInvalidCaptcha  = "invalid_captcha"
	ReasonCaptchaRequired = "captcha_required"
)
