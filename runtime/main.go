package main

import (
	"github.com/minevote/api/services"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.PostgresService{},
		&services.RedisService{},
		&services.MonitoringService{},
		&services.RateLimitService{},
		&services.CaptchaService{},
		&services.VotifierService{},
		&services.MCPingService{},
		&services.JWTService{},
		&services.AuthService{},
		&services.MinIOService{},
		&services.MediaService{},
		&services.VoteService{},
		&services.ServerService{},
		&services.StatsService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err)
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err)
		return
	}
}
