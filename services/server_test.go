package services

import (
	"context"
	"testing"
	"time"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/model"
	"github.com/minevote/api/shared"
)

func newTestServerService(pg *PostgresService) *ServerService {
	return &ServerService{
		postgres: pg,
		mcping:   &MCPingService{timeout: time.Second},
		redisSvc: &RedisService{},
	}
}

func TestRegisterServerStartsUnapproved(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestServerService(pg)

	server, err := svc.RegisterServer(&dto.RegisterServerRequest{
		Name:     "New Server",
		Host:     "play.new.example",
		Category: "survival",
	}, "owner-hash")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if server.IsApproved {
		t.Fatalf("new server must not be approved")
	}
	if !server.VotingEnabled {
		t.Fatalf("voting should default to enabled")
	}
	if server.Port != 25565 {
		t.Fatalf("port = %d, want default 25565", server.Port)
	}
	if server.Status != shared.ServerStatusUnknown {
		t.Fatalf("status = %q, want unknown", server.Status)
	}

	// Hidden from the public surface until approved.
	if _, err := svc.GetServer(server.ID, false); err == nil {
		t.Fatalf("unapproved server visible publicly")
	}
	if _, err := svc.GetServer(server.ID, true); err != nil {
		t.Fatalf("admin lookup failed: %v", err)
	}
}

func TestCreateServerPersistsDisabledVoting(t *testing.T) {
	pg := newTestPostgres(t)

	server := createTestServer(t, pg, func(s *model.Server) { s.VotingEnabled = false })

	reloaded, err := pg.GetServer(server.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.VotingEnabled {
		t.Fatalf("VotingEnabled=false was persisted as true")
	}
}

func TestListServersApprovedOnly(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestServerService(pg)

	createTestServer(t, pg, func(s *model.Server) { s.Name = "Approved" })
	createTestServer(t, pg, func(s *model.Server) {
		s.Name = "Pending"
		s.IsApproved = false
	})

	resp, err := svc.ListServers(dto.ListServersRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Pagination.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Pagination.Total)
	}
	if resp.Servers[0].Name != "Approved" {
		t.Fatalf("unexpected server %q", resp.Servers[0].Name)
	}

	admin, err := svc.AdminListServers(dto.AdminListServersRequest{Filter: "pending"})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if admin.Pagination.Total != 1 || admin.Servers[0].Name != "Pending" {
		t.Fatalf("pending filter wrong: %+v", admin.Pagination)
	}
}

func TestListServersSortedByVotes(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestServerService(pg)

	createTestServer(t, pg, func(s *model.Server) {
		s.Name = "Low"
		s.TotalVotes = 5
	})
	createTestServer(t, pg, func(s *model.Server) {
		s.Name = "High"
		s.TotalVotes = 50
	})
	createTestServer(t, pg, func(s *model.Server) {
		s.Name = "Promoted"
		s.TotalVotes = 1
		s.Featured = true
	})

	resp, err := svc.ListServers(dto.ListServersRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Servers[0].Name != "Promoted" {
		t.Fatalf("featured server not first: %q", resp.Servers[0].Name)
	}
	if resp.Servers[1].Name != "High" || resp.Servers[2].Name != "Low" {
		t.Fatalf("vote ordering wrong: %q then %q", resp.Servers[1].Name, resp.Servers[2].Name)
	}
}

func TestUpdateServerPartial(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestServerService(pg)
	server := createTestServer(t, pg, nil)

	name := "Renamed"
	votifierHost := "plugin.test.example"
	votifierPort := 8192
	updated, err := svc.UpdateServer(server.ID, &dto.UpdateServerRequest{
		Name:         &name,
		VotifierHost: &votifierHost,
		VotifierPort: &votifierPort,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Name != "Renamed" {
		t.Fatalf("name %q", updated.Name)
	}
	if updated.VotifierHost != votifierHost || updated.VotifierPort != votifierPort {
		t.Fatalf("votifier target not applied")
	}
	// Untouched fields survive.
	if updated.Host != server.Host || updated.Category != server.Category {
		t.Fatalf("unrelated fields changed")
	}
}

func TestAdminUpdateServerFlags(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestServerService(pg)
	server := createTestServer(t, pg, func(s *model.Server) { s.IsApproved = false })

	approved := true
	featured := true
	updated, err := svc.AdminUpdateServer(server.ID, &dto.AdminUpdateServerRequest{
		IsApproved: &approved,
		Featured:   &featured,
	})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if !updated.IsApproved || !updated.Featured {
		t.Fatalf("flags not applied: %+v", updated)
	}
}

func TestDeleteServerCascades(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestServerService(pg)
	server := createTestServer(t, pg, nil)

	now := time.Now().UTC()
	if _, err := pg.CreateVote(&model.Vote{
		ServerID:          server.ID,
		MinecraftUsername: "Steve_01",
		CreatedAt:         now,
		VoteDay:           model.VoteDayOf(now),
	}); err != nil {
		t.Fatalf("seed vote: %v", err)
	}

	if err := svc.DeleteServer(server.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := pg.GetServer(server.ID); err == nil {
		t.Fatalf("server survived delete")
	}
	vote, err := pg.GetVoteInWindow(server.ID, "Steve_01", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("vote lookup: %v", err)
	}
	if vote != nil {
		t.Fatalf("vote survived server delete")
	}
}

func TestProbeUpdatesListing(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestServerService(pg)

	statusJSON := `{"version":{"name":"Paper 1.21"},"players":{"online":7,"max":100},"description":"up"}`
	host, port := fakeStatusListener(t, statusJSON)
	server := createTestServer(t, pg, func(s *model.Server) {
		s.Host = host
		s.Port = port
	})

	resp, err := svc.PingServer(context.Background(), server.ID)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !resp.Success || resp.Status != shared.ServerStatusOnline {
		t.Fatalf("probe result: %+v", resp)
	}
	if resp.Players.Online != 7 || resp.Players.Max != 100 {
		t.Fatalf("players %+v", resp.Players)
	}

	updated, _ := pg.GetServer(server.ID)
	if updated.Status != shared.ServerStatusOnline {
		t.Fatalf("status %q", updated.Status)
	}
	if updated.CurrentPlayers != 7 || updated.MaxPlayers != 100 {
		t.Fatalf("players %d/%d", updated.CurrentPlayers, updated.MaxPlayers)
	}
	if updated.LastPing == nil {
		t.Fatalf("last ping not set")
	}

	var history []model.ServerPingHistory
	if err := pg.Db().Where("server_id = ?", server.ID).Find(&history).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 1 || !history[0].IsOnline {
		t.Fatalf("history %+v", history)
	}
}

func TestProbeOfflineServer(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestServerService(pg)

	server := createTestServer(t, pg, func(s *model.Server) {
		s.Host = "127.0.0.1"
		s.Port = 1
		s.CurrentPlayers = 9
	})

	resp, err := svc.PingServer(context.Background(), server.ID)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if resp.Success || resp.Status != shared.ServerStatusOffline {
		t.Fatalf("probe result: %+v", resp)
	}
	if resp.Error == "" {
		t.Fatalf("expected error detail")
	}

	updated, _ := pg.GetServer(server.ID)
	if updated.Status != shared.ServerStatusOffline {
		t.Fatalf("status %q", updated.Status)
	}
	if updated.CurrentPlayers != 0 {
		t.Fatalf("players not zeroed: %d", updated.CurrentPlayers)
	}
}
