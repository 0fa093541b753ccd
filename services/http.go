package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/minevote/api/services/handlers"
	"github.com/minevote/api/shared"
)

// HttpService owns the public fiber app and the route table.
type HttpService struct {
	appContext.DefaultService

	voteSvc   *VoteService
	serverSvc *ServerService
	authSvc   *AuthService
	statsSvc  *StatsService
	mediaSvc  *MediaService
	rateLimit *RateLimitService
	monitor   *MonitoringService

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *appContext.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.voteSvc = svc.Service(VOTE_SVC).(*VoteService)
	svc.serverSvc = svc.Service(SERVER_SVC).(*ServerService)
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.statsSvc = svc.Service(STATS_SVC).(*StatsService)
	svc.mediaSvc = svc.Service(MEDIA_SVC).(*MediaService)
	svc.rateLimit = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.monitor = svc.Service(MONITORING_SVC).(*MonitoringService)

	app := fiber.New(fiber.Config{
		JSONEncoder:  shared.JSONEncoder,
		JSONDecoder:  shared.JSONDecoder,
		ErrorHandler: svc.errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(svc.clientIPMiddleware())
	app.Use(MonitoringMiddleware(svc.monitor))

	app.Get("/ping", svc.ping)

	svc.registerRoutes(app)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	svc.server = app

	log.Printf("HTTP server listening on :%d", svc.port)
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func (svc *HttpService) registerRoutes(app *fiber.App) {
	voteHandler := handlers.NewVoteHandler(svc.voteSvc)
	serverHandler := handlers.NewServerHandler(svc.serverSvc)
	adminHandler := handlers.NewAdminHandler(svc.authSvc, svc.serverSvc, svc.statsSvc, svc.mediaSvc)
	statsHandler := handlers.NewStatsHandler(svc.statsSvc)

	v1 := app.Group("/api/v1", svc.rateLimit.Limit(ActionAPI))

	v1.Get("/ping", svc.ping)
	v1.Get("/stats", statsHandler.SiteStats)

	// Vote submission carries its own, much tighter, per-IP ceiling.
	v1.Post("/votes", svc.rateLimit.Limit(ActionVote), voteHandler.SubmitVote)

	v1.Get("/servers", serverHandler.ListServers)
	v1.Get("/servers/search", svc.rateLimit.Limit(ActionSearch), serverHandler.ListServers)
	v1.Post("/servers", serverHandler.RegisterServer)
	v1.Get("/servers/:id", serverHandler.GetServer)
	v1.Get("/servers/:id/ping", svc.rateLimit.Limit(ActionPing), serverHandler.PingServer)
	v1.Get("/servers/:id/votes", voteHandler.GetVoteHistory)
	v1.Get("/servers/:id/votes/next", voteHandler.GetNextVoteTime)

	admin := v1.Group("/admin")
	admin.Post("/setup", svc.rateLimit.Limit(ActionAdminLogin), adminHandler.Setup)
	admin.Post("/login", svc.rateLimit.Limit(ActionAdminLogin), adminHandler.Login)

	protected := admin.Group("", svc.authSvc.RequiredAuth())
	protected.Get("/servers", adminHandler.ListServers)
	protected.Patch("/servers/:id", adminHandler.UpdateServer)
	protected.Put("/servers/:id", adminHandler.EditServer)
	protected.Delete("/servers/:id", svc.authSvc.RequireRole(shared.RoleSuperAdmin), adminHandler.DeleteServer)
	protected.Post("/servers/:id/banner", adminHandler.UploadBanner)
	protected.Delete("/servers/:id/banner", adminHandler.DeleteBanner)
	protected.Get("/stats", adminHandler.DashboardStats)
	protected.Get("/audit", adminHandler.AuditLogs)
}

// clientIPMiddleware resolves the caller identity once per request so
// handlers and the limiter agree on it.
func (svc *HttpService) clientIPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(shared.ClientIP, GetClientIP(c))
		return c.Next()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")
	return shared.ResponseOK(c, "pong")
}

func (svc *HttpService) errorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).Error("unhandled request error")
	return shared.ResponseInternalError(c, err)
}
