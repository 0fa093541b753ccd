package dto

import (
	"time"

	"github.com/minevote/api/model"
)

type RegisterServerRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100" example:"SkyBlock Legends"`
	Description string `json:"description" validate:"max=2000"`
	Host        string `json:"host" validate:"required,hostname|ip" example:"play.example.com"`
	Port        int    `json:"port" validate:"omitempty,min=1,max=65535" example:"25565"`
	Category    string `json:"category" validate:"required,max=50" example:"skyblock"`
	Tags        string `json:"tags" validate:"max=255" example:"economy,pvp"`
	Website     string `json:"website" validate:"omitempty,url"`
}

func (r RegisterServerRequest) Validate() error {
	return GetValidator().Struct(r)
}

type UpdateServerRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category      *string `json:"category,omitempty" validate:"omitempty,max=50"`
	Tags          *string `json:"tags,omitempty" validate:"omitempty,max=255"`
	Website       *string `json:"website,omitempty" validate:"omitempty,url"`
	VotingEnabled *bool   `json:"voting_enabled,omitempty"`
	VotifierHost  *string `json:"votifier_host,omitempty" validate:"omitempty,hostname|ip"`
	VotifierPort  *int    `json:"votifier_port,omitempty" validate:"omitempty,min=1,max=65535"`
	VotifierKey   *string `json:"votifier_key,omitempty"`
}

func (r UpdateServerRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ListServersRequest struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	Category string `query:"category"`
	Search   string `query:"search"`
	Sort     string `query:"sort"` // votes, newest, players
}

type ServerListResponse struct {
	Servers    []model.Server `json:"servers"`
	Pagination Pagination     `json:"pagination"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type PingServerResponse struct {
	Success bool        `json:"success"`
	Status  string      `json:"status"`
	Players PlayerCount `json:"players"`
	Version string      `json:"version,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type PlayerCount struct {
	Online int `json:"online"`
	Max    int `json:"max"`
}

type MediaUploadResponse struct {
	URL        string    `json:"url"`
	ObjectName string    `json:"object_name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}
