package model

import "time"

// Admin is a moderation panel account. Login failures increment FailedLogins;
// too many in a row set LockedUntil.
type Admin struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"unique;not null;size:50"`
	Email        string     `json:"email" gorm:"size:255"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Role         string     `json:"role" gorm:"not null;size:20;default:moderator"`
	IsActive     bool       `json:"is_active" gorm:"not null"`
	FailedLogins int        `json:"-" gorm:"not null;default:0"`
	LockedUntil  *time.Time `json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"not null"`
}

// AdminAuditLog records admin logins and moderation actions.
type AdminAuditLog struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	AdminID   string    `json:"admin_id" gorm:"index;size:64"`
	Action    string    `json:"action" gorm:"not null;size:50"`
	TargetID  string    `json:"target_id,omitempty" gorm:"size:64"`
	IPHash    string    `json:"-" gorm:"size:64"`
	Detail    string    `json:"detail,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
}
