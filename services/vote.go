package services

import (
	"context"
	"errors"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/model"
	"github.com/minevote/api/shared"
)

// VoteService runs the submission pipeline: validation, duplicate
// enforcement, persistence, counter recomputation and the plugin
// notification. The notification never decides the outcome of a vote.
type VoteService struct {
	appContext.DefaultService

	postgres *PostgresService
	captcha  *CaptchaService
	votifier *VotifierService
	monitor  *MonitoringService
}

const VOTE_SVC = "vote_svc"

// voteWindow is the span a player must wait between votes on one server.
const voteWindow = 24 * time.Hour

func (svc VoteService) Id() string {
	return VOTE_SVC
}

func (svc *VoteService) Configure(ctx *appContext.Context) error {
	svc.postgres = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.captcha = ctx.Service(CAPTCHA_SVC).(*CaptchaService)
	svc.votifier = ctx.Service(VOTIFIER_SVC).(*VotifierService)
	svc.monitor = ctx.Service(MONITORING_SVC).(*MonitoringService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *VoteService) Start() error {
	return nil
}

// SubmitVote validates and records one vote. Rejections come back as
// shared.AppError with a reason code payload so the transport layer can
// surface a structured response.
func (svc *VoteService) SubmitVote(ctx context.Context, req *dto.SubmitVoteRequest, clientIP, userAgent string) (*dto.SubmitVoteResponse, error) {
	now := time.Now().UTC()

	if !dto.IsValidMinecraftUsername(req.MinecraftUsername) {
		svc.monitor.VoteRejected(shared.ReasonInvalidUsername)
		return nil, shared.NewBadRequestError(nil, "invalid minecraft username").WithData(dto.VoteRejection{
			Reason: shared.ReasonInvalidUsername,
		})
	}

	server, err := svc.postgres.GetServer(req.ServerID)
	if err != nil {
		svc.monitor.VoteRejected(shared.ReasonServerNotFound)
		return nil, shared.NewNotFoundError(err, "server not found").WithData(dto.VoteRejection{
			Reason: shared.ReasonServerNotFound,
		})
	}

	if !server.IsApproved || !server.VotingEnabled {
		svc.monitor.VoteRejected(shared.ReasonVotingDisabled)
		return nil, shared.NewForbiddenError(nil, "voting is disabled for this server").WithData(dto.VoteRejection{
			Reason: shared.ReasonVotingDisabled,
		})
	}

	prior, err := svc.postgres.GetVoteInWindow(server.ID, req.MinecraftUsername, now.Add(-voteWindow))
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to check vote history")
	}
	if prior != nil {
		return nil, svc.duplicateRejection(prior.CreatedAt, now)
	}

	if err := svc.checkCaptcha(ctx, req.CaptchaToken, clientIP); err != nil {
		return nil, err
	}

	vote := &model.Vote{
		ServerID:          server.ID,
		MinecraftUsername: req.MinecraftUsername,
		VoteDay:           model.VoteDayOf(now),
		VoterIPHash:       shared.HashIdentifier(clientIP),
		UserAgentHash:     shared.HashIdentifier(userAgent),
		CreatedAt:         now,
	}

	if _, err := svc.postgres.CreateVote(vote); err != nil {
		if errors.Is(err, ErrDuplicateVote) {
			// Lost a race with a concurrent submission; the stored row
			// carries the authoritative timestamp.
			if stored, lookupErr := svc.postgres.GetVoteInWindow(server.ID, req.MinecraftUsername, now.Add(-voteWindow)); lookupErr == nil && stored != nil {
				return nil, svc.duplicateRejection(stored.CreatedAt, now)
			}
			return nil, svc.duplicateRejection(now, now)
		}
		return nil, shared.NewInternalError(err, "failed to record vote")
	}

	if err := svc.postgres.RecomputeVoteCounters(server.ID, now); err != nil {
		log.WithError(err).WithField("server_id", server.ID).Error("vote counter recompute failed")
	}

	notified := svc.notifyPlugin(ctx, server, vote, clientIP)
	svc.monitor.VoteAccepted(notified)

	return &dto.SubmitVoteResponse{
		Success:        true,
		Message:        "vote recorded",
		VoteID:         vote.ID,
		PluginNotified: notified,
		NextVoteTime:   now.Add(voteWindow),
	}, nil
}

func (svc *VoteService) checkCaptcha(ctx context.Context, token, clientIP string) error {
	if !svc.captcha.Enabled() {
		return nil
	}
	if token == "" {
		svc.monitor.VoteRejected(shared.ReasonCaptchaRequired)
		return shared.NewBadRequestError(nil, "captcha token is required").WithData(dto.VoteRejection{
			Reason: shared.ReasonCaptchaRequired,
		})
	}
	if !svc.captcha.Verify(ctx, token, clientIP) {
		svc.monitor.VoteRejected(shared.ReasonInvalidCaptcha)
		return shared.NewBadRequestError(nil, "captcha verification failed").WithData(dto.VoteRejection{
			Reason: shared.ReasonInvalidCaptcha,
		})
	}
	return nil
}

func (svc *VoteService) duplicateRejection(priorAt, now time.Time) error {
	svc.monitor.VoteRejected(shared.ReasonAlreadyVoted)
	next := priorAt.Add(voteWindow)
	retry := int(time.Until(next).Seconds())
	if retry < 0 {
		retry = 0
	}
	return shared.NewTooManyRequestsError(nil, "already voted for this server today", dto.VoteRejection{
		Reason:       shared.ReasonAlreadyVoted,
		NextVoteTime: &next,
		RetryAfter:   retry,
	})
}

// notifyPlugin sends the votifier packet and records the outcome on the
// vote row, including the "not configured" outcome for servers without a
// target. Failures are logged only.
func (svc *VoteService) notifyPlugin(ctx context.Context, server *model.Server, vote *model.Vote, clientIP string) bool {
	target := VotifierTarget{
		Host:      server.VotifierHost,
		Port:      server.VotifierPort,
		PublicKey: server.VotifierKey,
	}

	result := svc.votifier.Notify(ctx, target, vote.MinecraftUsername, clientIP)
	if !result.Success && server.HasVotifier() {
		log.WithFields(log.Fields{
			"server_id": server.ID,
			"vote_id":   vote.ID,
			"response":  result.Response,
		}).Warn("votifier notification failed")
	}

	if err := svc.postgres.AttachVotifierOutcome(vote.ID, result.Success, result.Response); err != nil {
		log.WithError(err).WithField("vote_id", vote.ID).Error("failed to record votifier outcome")
	}
	return result.Success
}

// GetVoteHistory returns the recent vote log for one server.
func (svc *VoteService) GetVoteHistory(serverID string, page, limit int) (*dto.VoteHistoryResponse, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	if _, err := svc.postgres.GetServer(serverID); err != nil {
		return nil, shared.NewNotFoundError(err, "server not found")
	}

	votes, total, err := svc.postgres.GetServerVotes(serverID, page, limit)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to load votes")
	}

	out := &dto.VoteHistoryResponse{
		Votes: make([]dto.VoteInfo, 0, len(votes)),
		Total: total,
	}
	for _, v := range votes {
		out.Votes = append(out.Votes, dto.VoteInfo{
			ID:                v.ID,
			ServerID:          v.ServerID,
			MinecraftUsername: v.MinecraftUsername,
			VotifierSent:      v.VotifierSent,
			CreatedAt:         v.CreatedAt,
		})
	}
	return out, nil
}

// NextVoteTime reports when a player may vote again on a server, or nil
// when they can vote now.
func (svc *VoteService) NextVoteTime(serverID, username string, now time.Time) (*time.Time, error) {
	prior, err := svc.postgres.GetVoteInWindow(serverID, username, now.Add(-voteWindow))
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to check vote history")
	}
	if prior == nil {
		return nil, nil
	}
	next := prior.CreatedAt.Add(voteWindow)
	return &next, nil
}
