package services

import (
	"context"
	"testing"
	"time"

	"github.com/minevote/api/model"
)

func newTestStats(pg *PostgresService) *StatsService {
	return &StatsService{
		postgres:    pg,
		redisSvc:    &RedisService{},
		cacheExpiry: time.Minute,
	}
}

func TestGetSiteStats(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestStats(pg)

	createTestServer(t, pg, func(s *model.Server) {
		s.Name = "Online"
		s.Status = "online"
		s.CurrentPlayers = 12
	})
	createTestServer(t, pg, func(s *model.Server) {
		s.Name = "Offline"
		s.Status = "offline"
		s.CurrentPlayers = 0
	})
	createTestServer(t, pg, func(s *model.Server) {
		s.Name = "Pending"
		s.IsApproved = false
		s.Status = "online"
		s.CurrentPlayers = 99
	})

	stats, err := svc.GetSiteStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalServers != 2 {
		t.Fatalf("total servers = %d, want 2", stats.TotalServers)
	}
	if stats.OnlineServers != 1 {
		t.Fatalf("online servers = %d, want 1", stats.OnlineServers)
	}
	// Unapproved servers never count toward the player total.
	if stats.TotalPlayers != 12 {
		t.Fatalf("total players = %d, want 12", stats.TotalPlayers)
	}
}

func TestGetDashboardStats(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestStats(pg)

	approved := createTestServer(t, pg, nil)
	createTestServer(t, pg, func(s *model.Server) { s.IsApproved = false })

	now := time.Now().UTC()
	seedVote := func(createdAt time.Time) {
		t.Helper()
		if _, err := pg.CreateVote(&model.Vote{
			ServerID:          approved.ID,
			MinecraftUsername: "Player_" + createdAt.Format("150405"),
			CreatedAt:         createdAt,
			VoteDay:           model.VoteDayOf(createdAt),
		}); err != nil {
			t.Fatalf("seed vote: %v", err)
		}
	}
	seedVote(now)
	seedVote(now.Add(-48 * time.Hour))

	stats, err := svc.GetDashboardStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalServers != 2 || stats.PendingServers != 1 {
		t.Fatalf("servers %d pending %d", stats.TotalServers, stats.PendingServers)
	}
	if stats.TotalVotes != 2 {
		t.Fatalf("total votes = %d, want 2", stats.TotalVotes)
	}
	if stats.VotesToday != 1 {
		t.Fatalf("votes today = %d, want 1", stats.VotesToday)
	}
}
