package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/model"
	"github.com/minevote/api/shared"
)

func TestSubmitVoteAccepted(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestVoteService(pg)
	server := createTestServer(t, pg, nil)

	resp, err := svc.SubmitVote(context.Background(), &dto.SubmitVoteRequest{
		ServerID:          server.ID,
		MinecraftUsername: "Steve_01",
	}, "203.0.113.7", "test-agent")
	if err != nil {
		t.Fatalf("submit vote: %v", err)
	}

	if !resp.Success {
		t.Fatalf("expected success")
	}
	if resp.VoteID == "" {
		t.Fatalf("expected vote id")
	}
	if resp.PluginNotified {
		t.Fatalf("expected no plugin notification without votifier target")
	}
	if resp.NextVoteTime.Before(time.Now().Add(23 * time.Hour)) {
		t.Fatalf("next vote time too early: %v", resp.NextVoteTime)
	}

	updated, err := pg.GetServer(server.ID)
	if err != nil {
		t.Fatalf("reload server: %v", err)
	}
	if updated.TotalVotes != 1 || updated.DailyVotes != 1 {
		t.Fatalf("counters not recomputed: total=%d daily=%d", updated.TotalVotes, updated.DailyVotes)
	}
	if updated.LastVote == nil {
		t.Fatalf("last vote not set")
	}

	vote, err := pg.GetVoteInWindow(server.ID, "Steve_01", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("lookup vote: %v", err)
	}
	if vote == nil {
		t.Fatalf("vote not persisted")
	}
	if vote.VoterIPHash != shared.HashIdentifier("203.0.113.7") {
		t.Fatalf("voter ip stored unhashed or wrong")
	}
	if vote.VoterIPHash == "203.0.113.7" {
		t.Fatalf("raw ip persisted")
	}
}

func TestSubmitVoteDuplicateWindow(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestVoteService(pg)
	server := createTestServer(t, pg, nil)

	priorAt := time.Now().UTC().Add(-2 * time.Hour)
	if _, err := pg.CreateVote(&model.Vote{
		ServerID:          server.ID,
		MinecraftUsername: "Steve_01",
		CreatedAt:         priorAt,
		VoteDay:           model.VoteDayOf(priorAt),
		VoterIPHash:       shared.HashIdentifier("203.0.113.7"),
	}); err != nil {
		t.Fatalf("seed prior vote: %v", err)
	}

	_, err := svc.SubmitVote(context.Background(), &dto.SubmitVoteRequest{
		ServerID:          server.ID,
		MinecraftUsername: "Steve_01",
	}, "203.0.113.7", "test-agent")
	if err == nil {
		t.Fatalf("expected rejection")
	}

	appErr, ok := shared.GetAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", appErr.StatusCode)
	}

	rejection, ok := appErr.Data.(dto.VoteRejection)
	if !ok {
		t.Fatalf("expected VoteRejection payload, got %T", appErr.Data)
	}
	if rejection.Reason != shared.ReasonAlreadyVoted {
		t.Fatalf("expected reason %q, got %q", shared.ReasonAlreadyVoted, rejection.Reason)
	}
	if rejection.NextVoteTime == nil {
		t.Fatalf("expected next vote time")
	}

	want := priorAt.Add(24 * time.Hour)
	if diff := rejection.NextVoteTime.Sub(want); diff > time.Second || diff < -time.Second {
		t.Fatalf("next vote time %v, want %v", rejection.NextVoteTime, want)
	}
	if rejection.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %d", rejection.RetryAfter)
	}
}

func TestSubmitVoteAfterWindow(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestVoteService(pg)
	server := createTestServer(t, pg, nil)

	priorAt := time.Now().UTC().Add(-25 * time.Hour)
	if _, err := pg.CreateVote(&model.Vote{
		ServerID:          server.ID,
		MinecraftUsername: "Steve_01",
		CreatedAt:         priorAt,
		VoteDay:           model.VoteDayOf(priorAt),
	}); err != nil {
		t.Fatalf("seed prior vote: %v", err)
	}

	resp, err := svc.SubmitVote(context.Background(), &dto.SubmitVoteRequest{
		ServerID:          server.ID,
		MinecraftUsername: "Steve_01",
	}, "203.0.113.7", "test-agent")
	if err != nil {
		t.Fatalf("submit after window: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success after window elapsed")
	}

	updated, _ := pg.GetServer(server.ID)
	if updated.TotalVotes != 2 {
		t.Fatalf("expected total 2, got %d", updated.TotalVotes)
	}
}

func TestSubmitVoteInvalidUsername(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestVoteService(pg)
	server := createTestServer(t, pg, nil)

	for _, name := range []string{"", "ab", "space name", "dash-name"} {
		_, err := svc.SubmitVote(context.Background(), &dto.SubmitVoteRequest{
			ServerID:          server.ID,
			MinecraftUsername: name,
		}, "203.0.113.7", "test-agent")
		if err == nil {
			t.Fatalf("username %q accepted", name)
		}

		appErr, ok := shared.GetAppError(err)
		if !ok || appErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 AppError for %q, got %v", name, err)
		}
		rejection := appErr.Data.(dto.VoteRejection)
		if rejection.Reason != shared.ReasonInvalidUsername {
			t.Fatalf("expected reason %q, got %q", shared.ReasonInvalidUsername, rejection.Reason)
		}
	}
}

func TestSubmitVoteServerNotFound(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestVoteService(pg)

	_, err := svc.SubmitVote(context.Background(), &dto.SubmitVoteRequest{
		ServerID:          "missing",
		MinecraftUsername: "Steve_01",
	}, "203.0.113.7", "test-agent")
	if err == nil {
		t.Fatalf("expected rejection")
	}

	appErr, ok := shared.GetAppError(err)
	if !ok || appErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 AppError, got %v", err)
	}

	rejection := appErr.Data.(dto.VoteRejection)
	if rejection.Reason != shared.ReasonServerNotFound {
		t.Fatalf("expected reason %q, got %q", shared.ReasonServerNotFound, rejection.Reason)
	}
}

func TestSubmitVoteVotingDisabled(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestVoteService(pg)

	cases := map[string]func(*model.Server){
		"voting disabled": func(s *model.Server) { s.VotingEnabled = false },
		"not approved":    func(s *model.Server) { s.IsApproved = false },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			server := createTestServer(t, pg, mutate)

			_, err := svc.SubmitVote(context.Background(), &dto.SubmitVoteRequest{
				ServerID:          server.ID,
				MinecraftUsername: "Steve_01",
			}, "203.0.113.7", "test-agent")
			if err == nil {
				t.Fatalf("expected rejection")
			}

			appErr, ok := shared.GetAppError(err)
			if !ok || appErr.StatusCode != http.StatusForbidden {
				t.Fatalf("expected 403 AppError, got %v", err)
			}
			rejection := appErr.Data.(dto.VoteRejection)
			if rejection.Reason != shared.ReasonVotingDisabled {
				t.Fatalf("expected reason %q, got %q", shared.ReasonVotingDisabled, rejection.Reason)
			}
		})
	}
}

func TestCreateVoteDuplicateDay(t *testing.T) {
	pg := newTestPostgres(t)
	server := createTestServer(t, pg, nil)

	now := time.Now().UTC()
	vote := func() *model.Vote {
		return &model.Vote{
			ServerID:          server.ID,
			MinecraftUsername: "Steve_01",
			CreatedAt:         now,
			VoteDay:           model.VoteDayOf(now),
		}
	}

	if _, err := pg.CreateVote(vote()); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := pg.CreateVote(vote()); !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	// Same player on another server is fine.
	other := createTestServer(t, pg, func(s *model.Server) { s.Name = "Other" })
	if _, err := pg.CreateVote(&model.Vote{
		ServerID:          other.ID,
		MinecraftUsername: "Steve_01",
		CreatedAt:         now,
		VoteDay:           model.VoteDayOf(now),
	}); err != nil {
		t.Fatalf("other server insert: %v", err)
	}
}

func TestNextVoteTime(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestVoteService(pg)
	server := createTestServer(t, pg, nil)

	now := time.Now().UTC()
	next, err := svc.NextVoteTime(server.ID, "Steve_01", now)
	if err != nil {
		t.Fatalf("next vote time: %v", err)
	}
	if next != nil {
		t.Fatalf("expected eligible player, got %v", next)
	}

	priorAt := now.Add(-3 * time.Hour)
	if _, err := pg.CreateVote(&model.Vote{
		ServerID:          server.ID,
		MinecraftUsername: "Steve_01",
		CreatedAt:         priorAt,
		VoteDay:           model.VoteDayOf(priorAt),
	}); err != nil {
		t.Fatalf("seed vote: %v", err)
	}

	next, err = svc.NextVoteTime(server.ID, "Steve_01", now)
	if err != nil {
		t.Fatalf("next vote time: %v", err)
	}
	if next == nil {
		t.Fatalf("expected cooldown")
	}
	want := priorAt.Add(24 * time.Hour)
	if diff := next.Sub(want); diff > time.Second || diff < -time.Second {
		t.Fatalf("next vote time %v, want %v", next, want)
	}
}

func TestRecomputeVoteCounters(t *testing.T) {
	pg := newTestPostgres(t)
	server := createTestServer(t, pg, nil)

	now := time.Now().UTC()
	ages := []time.Duration{0, 3 * 24 * time.Hour, 10 * 24 * time.Hour, 40 * 24 * time.Hour}
	for _, age := range ages {
		at := now.Add(-age)
		if _, err := pg.CreateVote(&model.Vote{
			ServerID:          server.ID,
			MinecraftUsername: "Steve_01",
			CreatedAt:         at,
			VoteDay:           model.VoteDayOf(at),
		}); err != nil {
			t.Fatalf("seed vote at -%v: %v", age, err)
		}
	}

	if err := pg.RecomputeVoteCounters(server.ID, now); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	updated, err := pg.GetServer(server.ID)
	if err != nil {
		t.Fatalf("reload server: %v", err)
	}
	if updated.DailyVotes != 1 {
		t.Fatalf("daily = %d, want 1", updated.DailyVotes)
	}
	if updated.WeeklyVotes != 2 {
		t.Fatalf("weekly = %d, want 2", updated.WeeklyVotes)
	}
	if updated.MonthlyVotes != 3 {
		t.Fatalf("monthly = %d, want 3", updated.MonthlyVotes)
	}
	if updated.TotalVotes != 4 {
		t.Fatalf("total = %d, want 4", updated.TotalVotes)
	}
}

func TestGetVoteHistory(t *testing.T) {
	pg := newTestPostgres(t)
	svc := newTestVoteService(pg)
	server := createTestServer(t, pg, nil)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		at := now.Add(-time.Duration(i+1) * 25 * time.Hour)
		if _, err := pg.CreateVote(&model.Vote{
			ServerID:          server.ID,
			MinecraftUsername: "Steve_01",
			CreatedAt:         at,
			VoteDay:           model.VoteDayOf(at),
		}); err != nil {
			t.Fatalf("seed vote: %v", err)
		}
	}

	resp, err := svc.GetVoteHistory(server.ID, 1, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3", resp.Total)
	}
	if len(resp.Votes) != 2 {
		t.Fatalf("page size = %d, want 2", len(resp.Votes))
	}
	if !resp.Votes[0].CreatedAt.After(resp.Votes[1].CreatedAt) {
		t.Fatalf("votes not ordered newest first")
	}

	if _, err := svc.GetVoteHistory("missing", 1, 10); err == nil {
		t.Fatalf("expected not found for unknown server")
	}
}
