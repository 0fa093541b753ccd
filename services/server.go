package services

import (
	"context"
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/model"
	"github.com/minevote/api/shared"
)

// ServerService owns the server listings: registration, updates, public
// listing queries and the status probe pipeline that keeps player counts
// fresh.
type ServerService struct {
	appContext.DefaultService

	postgres *PostgresService
	mcping   *MCPingService
	redisSvc *RedisService

	pingInterval time.Duration
	done         chan struct{}
}

const SERVER_SVC = "server_svc"

const (
	defaultPingInterval  = 10 * time.Minute
	pingHistoryRetention = 30 * 24 * time.Hour
)

func (svc ServerService) Id() string {
	return SERVER_SVC
}

func (svc *ServerService) Configure(ctx *appContext.Context) error {
	svc.postgres = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.mcping = ctx.Service(MCPING_SVC).(*MCPingService)
	svc.redisSvc = ctx.Service(REDIS_SVC).(*RedisService)

	svc.pingInterval = defaultPingInterval
	if raw := os.Getenv("PING_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= time.Minute {
			svc.pingInterval = d
		}
	}

	svc.done = make(chan struct{})
	return svc.DefaultService.Configure(ctx)
}

func (svc *ServerService) Start() error {
	go svc.probeLoop()
	return nil
}

func (svc *ServerService) Shutdown() {
	close(svc.done)
}

// RegisterServer creates a listing. New servers stay unapproved until a
// moderator reviews them.
func (svc *ServerService) RegisterServer(req *dto.RegisterServerRequest, ownerID string) (*model.Server, error) {
	port := req.Port
	if port == 0 {
		port = 25565
	}

	server := &model.Server{
		OwnerID:       ownerID,
		Name:          req.Name,
		Description:   req.Description,
		Host:          req.Host,
		Port:          port,
		Category:      req.Category,
		Tags:          req.Tags,
		Website:       req.Website,
		VotingEnabled: true,
		Status:        shared.ServerStatusUnknown,
	}

	created, err := svc.postgres.CreateServer(server)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to register server")
	}
	return created, nil
}

// GetServer returns one listing. Unapproved listings are hidden unless
// includeHidden is set (admin surfaces).
func (svc *ServerService) GetServer(id string, includeHidden bool) (*model.Server, error) {
	server, err := svc.postgres.GetServer(id)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "server not found")
	}
	if !server.IsApproved && !includeHidden {
		return nil, shared.NewNotFoundError(nil, "server not found")
	}
	return server, nil
}

// ListServers returns the public, approved listings.
func (svc *ServerService) ListServers(req dto.ListServersRequest) (*dto.ServerListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	servers, total, err := svc.postgres.ListServers(req, true)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to list servers")
	}
	return buildServerList(servers, total, req.Page, req.Limit), nil
}

// UpdateServer applies a partial update to a listing.
func (svc *ServerService) UpdateServer(id string, req *dto.UpdateServerRequest) (*model.Server, error) {
	server, err := svc.postgres.GetServer(id)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "server not found")
	}

	applyServerUpdate(server, req)

	if err := svc.postgres.UpdateServer(server); err != nil {
		return nil, shared.NewInternalError(err, "failed to update server")
	}
	return server, nil
}

// DeleteServer removes a listing together with its vote log and ping
// history.
func (svc *ServerService) DeleteServer(id string) error {
	if _, err := svc.postgres.GetServer(id); err != nil {
		return shared.NewNotFoundError(err, "server not found")
	}
	if err := svc.postgres.DeleteServer(id); err != nil {
		return shared.NewInternalError(err, "failed to delete server")
	}
	return nil
}

func applyServerUpdate(server *model.Server, req *dto.UpdateServerRequest) {
	if req.Name != nil {
		server.Name = *req.Name
	}
	if req.Description != nil {
		server.Description = *req.Description
	}
	if req.Category != nil {
		server.Category = *req.Category
	}
	if req.Tags != nil {
		server.Tags = *req.Tags
	}
	if req.Website != nil {
		server.Website = *req.Website
	}
	if req.VotingEnabled != nil {
		server.VotingEnabled = *req.VotingEnabled
	}
	if req.VotifierHost != nil {
		server.VotifierHost = *req.VotifierHost
	}
	if req.VotifierPort != nil {
		server.VotifierPort = *req.VotifierPort
	}
	if req.VotifierKey != nil {
		server.VotifierKey = *req.VotifierKey
	}
}

func buildServerList(servers []model.Server, total int64, page, limit int) *dto.ServerListResponse {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	pages := int((total + int64(limit) - 1) / int64(limit))

	return &dto.ServerListResponse{
		Servers: servers,
		Pagination: dto.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}
}

// AdminListServers returns listings for the moderation panel, including
// unapproved ones.
func (svc *ServerService) AdminListServers(req dto.AdminListServersRequest) (*dto.ServerListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	servers, total, err := svc.postgres.AdminListServers(req)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to list servers")
	}
	return buildServerList(servers, total, req.Page, req.Limit), nil
}

// AdminUpdateServer applies moderation flags to a listing.
func (svc *ServerService) AdminUpdateServer(id string, req *dto.AdminUpdateServerRequest) (*model.Server, error) {
	server, err := svc.postgres.GetServer(id)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "server not found")
	}

	if req.IsApproved != nil {
		server.IsApproved = *req.IsApproved
	}
	if req.Featured != nil {
		server.Featured = *req.Featured
	}
	if req.VotingEnabled != nil {
		server.VotingEnabled = *req.VotingEnabled
	}

	if err := svc.postgres.UpdateServer(server); err != nil {
		return nil, shared.NewInternalError(err, "failed to update server")
	}
	return server, nil
}

// PingServer probes a server on demand and persists the outcome.
func (svc *ServerService) PingServer(ctx context.Context, id string) (*dto.PingServerResponse, error) {
	server, err := svc.postgres.GetServer(id)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "server not found")
	}
	return svc.probe(ctx, server), nil
}

// probe runs one status exchange and writes the result onto the listing and
// the ping history table.
func (svc *ServerService) probe(ctx context.Context, server *model.Server) *dto.PingServerResponse {
	now := time.Now().UTC()
	status, err := svc.mcping.Ping(ctx, server.Host, server.Port)

	record := &model.ServerPingHistory{
		ServerID: server.ID,
	}

	resp := &dto.PingServerResponse{}

	if err != nil {
		server.Status = shared.ServerStatusOffline
		server.CurrentPlayers = 0
		record.IsOnline = false
		record.ErrorMessage = err.Error()

		resp.Success = false
		resp.Status = shared.ServerStatusOffline
		resp.Error = err.Error()
	} else {
		server.Status = shared.ServerStatusOnline
		server.CurrentPlayers = status.Online
		server.MaxPlayers = status.Max
		server.Version = status.Version

		record.IsOnline = true
		record.ResponseTime = status.Latency.Milliseconds()
		record.PlayerCount = status.Online
		record.MaxPlayers = status.Max
		record.Version = status.Version
		record.MOTD = status.MOTD

		resp.Success = true
		resp.Status = shared.ServerStatusOnline
		resp.Players = dto.PlayerCount{Online: status.Online, Max: status.Max}
		resp.Version = status.Version
	}

	server.LastPing = &now
	if err := svc.postgres.UpdateServer(server); err != nil {
		log.WithError(err).WithField("server_id", server.ID).Error("failed to store ping result")
	}
	if err := svc.postgres.CreatePingHistory(record); err != nil {
		log.WithError(err).WithField("server_id", server.ID).Error("failed to store ping history")
	}

	return resp
}

// probeLoop refreshes every approved listing on a fixed interval and trims
// old ping history.
func (svc *ServerService) probeLoop() {
	ticker := time.NewTicker(svc.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.refreshAll()
			if err := svc.postgres.CleanupPingHistory(pingHistoryRetention); err != nil {
				log.WithError(err).Error("ping history cleanup failed")
			}
		case <-svc.done:
			return
		}
	}
}

func (svc *ServerService) refreshAll() {
	servers, _, err := svc.postgres.ListServers(dto.ListServersRequest{Page: 1, Limit: 500}, true)
	if err != nil {
		log.WithError(err).Error("failed to load servers for refresh")
		return
	}

	for i := range servers {
		ctx, cancel := context.WithTimeout(context.Background(), svc.mcping.timeout+time.Second)
		svc.probe(ctx, &servers[i])
		cancel()
	}
}
