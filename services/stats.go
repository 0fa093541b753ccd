package services

import (
	"context"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/shared"
)

// StatsService serves the public site counters. Results are cached in redis
// for a short TTL since the homepage hits this on every load.
type StatsService struct {
	appContext.DefaultService

	postgres *PostgresService
	redisSvc *RedisService

	cacheExpiry time.Duration
}

const STATS_SVC = "stats_svc"

const siteStatsCacheKey = "stats:site"

func (svc StatsService) Id() string {
	return STATS_SVC
}

func (svc *StatsService) Configure(ctx *appContext.Context) error {
	svc.postgres = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc = ctx.Service(REDIS_SVC).(*RedisService)
	svc.cacheExpiry = 5 * time.Minute
	return svc.DefaultService.Configure(ctx)
}

func (svc *StatsService) Start() error {
	return nil
}

// GetSiteStats returns the public counters, from cache when fresh.
func (svc *StatsService) GetSiteStats(ctx context.Context) (*dto.SiteStats, error) {
	if svc.redisSvc.Enabled() {
		var cached dto.SiteStats
		if err := svc.redisSvc.GetJSON(ctx, siteStatsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := svc.postgres.GetSiteStats()
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to load site stats")
	}

	if svc.redisSvc.Enabled() {
		if err := svc.redisSvc.Set(ctx, siteStatsCacheKey, stats, svc.cacheExpiry); err != nil {
			log.WithError(err).Debug("failed to cache site stats")
		}
	}
	return stats, nil
}

// GetDashboardStats returns the moderation panel counters. Never cached;
// admins expect live numbers.
func (svc *StatsService) GetDashboardStats() (*dto.AdminDashboardStats, error) {
	stats, err := svc.postgres.GetAdminDashboardStats()
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to load dashboard stats")
	}
	return stats, nil
}

// InvalidateSiteStats drops the cached counters, used after moderation
// actions that change them.
func (svc *StatsService) InvalidateSiteStats(ctx context.Context) {
	if !svc.redisSvc.Enabled() {
		return
	}
	if err := svc.redisSvc.Delete(ctx, siteStatsCacheKey); err != nil {
		log.WithError(err).Debug("failed to invalidate site stats cache")
	}
}
