package handlers

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/model"
)

type VoteServiceInterface interface {
	SubmitVote(ctx context.Context, req *dto.SubmitVoteRequest, clientIP, userAgent string) (*dto.SubmitVoteResponse, error)
	GetVoteHistory(serverID string, page, limit int) (*dto.VoteHistoryResponse, error)
	NextVoteTime(serverID, username string, now time.Time) (*time.Time, error)
}

type ServerServiceInterface interface {
	RegisterServer(req *dto.RegisterServerRequest, ownerID string) (*model.Server, error)
	GetServer(id string, includeHidden bool) (*model.Server, error)
	ListServers(req dto.ListServersRequest) (*dto.ServerListResponse, error)
	UpdateServer(id string, req *dto.UpdateServerRequest) (*model.Server, error)
	DeleteServer(id string) error
	AdminListServers(req dto.AdminListServersRequest) (*dto.ServerListResponse, error)
	AdminUpdateServer(id string, req *dto.AdminUpdateServerRequest) (*model.Server, error)
	PingServer(ctx context.Context, id string) (*dto.PingServerResponse, error)
}

type AuthServiceInterface interface {
	Setup(req *dto.AdminSetupRequest) (*dto.AdminInfo, error)
	Login(req *dto.AdminLoginRequest, clientIP string) (*dto.AdminLoginResponse, error)
	Audit(adminID, action, targetID, clientIP, detail string)
	ListAuditLogs(page, limit int) (*dto.AdminAuditLogResponse, error)
	RequiredAuth() fiber.Handler
	RequireRole(role string) fiber.Handler
}

type StatsServiceInterface interface {
	GetSiteStats(ctx context.Context) (*dto.SiteStats, error)
	GetDashboardStats() (*dto.AdminDashboardStats, error)
	InvalidateSiteStats(ctx context.Context)
}

type MediaServiceInterface interface {
	UploadServerBanner(serverID string, file *multipart.FileHeader) (*dto.MediaUploadResponse, error)
	DeleteServerBanner(serverID string) error
}
