package services

import (
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/model"
	"github.com/minevote/api/shared"
)

// AuthService handles moderation panel logins and guards admin routes.
// Accounts lock for a cooldown period after repeated failed passwords.
type AuthService struct {
	appContext.DefaultService

	postgres *PostgresService
	jwtSvc   *JWTService
}

const AUTH_SVC = "auth_svc"

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Configure(ctx *appContext.Context) error {
	svc.postgres = ctx.Service(POSTGRES_SVC).(*PostgresService)
	svc.jwtSvc = ctx.Service(JWT_SVC).(*JWTService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	return nil
}

// Setup creates the first admin account. Refused once any admin exists;
// later accounts are created by a super admin.
func (svc *AuthService) Setup(req *dto.AdminSetupRequest) (*dto.AdminInfo, error) {
	count, err := svc.postgres.CountAdmins()
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to check admin accounts")
	}
	if count > 0 {
		return nil, shared.NewForbiddenError(nil, "setup has already been completed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to hash password")
	}

	admin, err := svc.postgres.CreateAdmin(&model.Admin{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         shared.RoleSuperAdmin,
		IsActive:     true,
	})
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to create admin")
	}

	return &dto.AdminInfo{
		ID:       admin.ID,
		Username: admin.Username,
		Email:    admin.Email,
		Role:     admin.Role,
	}, nil
}

// Login verifies credentials and returns a signed token. Failed attempts
// are counted per account and never reveal which check failed.
func (svc *AuthService) Login(req *dto.AdminLoginRequest, clientIP string) (*dto.AdminLoginResponse, error) {
	admin, err := svc.postgres.GetAdminByUsername(req.Username)
	if err != nil {
		// Burn a comparison so unknown usernames take as long as bad
		// passwords.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"), []byte(req.Password))
		return nil, shared.NewUnauthorizedError(nil, "invalid credentials")
	}

	if !admin.IsActive {
		return nil, shared.NewUnauthorizedError(nil, "invalid credentials")
	}

	now := time.Now()
	if admin.LockedUntil != nil && admin.LockedUntil.After(now) {
		return nil, shared.NewUnauthorizedError(nil, "account is temporarily locked")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		svc.recordFailedLogin(admin, now)
		return nil, shared.NewUnauthorizedError(nil, "invalid credentials")
	}

	admin.FailedLogins = 0
	admin.LockedUntil = nil
	admin.LastLogin = &now
	if err := svc.postgres.UpdateAdmin(admin); err != nil {
		log.WithError(err).WithField("admin_id", admin.ID).Error("failed to update login state")
	}

	token, err := svc.jwtSvc.ToJWT(admin.ID, admin.Role)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to issue token")
	}

	svc.Audit(admin.ID, "login", "", clientIP, "")

	return &dto.AdminLoginResponse{
		Token:     token,
		ExpiresIn: int64(svc.jwtSvc.TokenDuration.Seconds()),
		Admin: dto.AdminInfo{
			ID:       admin.ID,
			Username: admin.Username,
			Email:    admin.Email,
			Role:     admin.Role,
		},
	}, nil
}

func (svc *AuthService) recordFailedLogin(admin *model.Admin, now time.Time) {
	admin.FailedLogins++
	if admin.FailedLogins >= maxFailedLogins {
		until := now.Add(lockoutDuration)
		admin.LockedUntil = &until
		admin.FailedLogins = 0
		log.WithField("admin_id", admin.ID).Warn("admin account locked after repeated failures")
	}
	if err := svc.postgres.UpdateAdmin(admin); err != nil {
		log.WithError(err).WithField("admin_id", admin.ID).Error("failed to record login failure")
	}
}

// Audit writes one moderation audit row. Failures are logged only.
func (svc *AuthService) Audit(adminID, action, targetID, clientIP, detail string) {
	entry := &model.AdminAuditLog{
		AdminID:  adminID,
		Action:   action,
		TargetID: targetID,
		IPHash:   shared.HashIdentifier(clientIP),
		Detail:   detail,
	}
	if err := svc.postgres.CreateAuditLog(entry); err != nil {
		log.WithError(err).WithField("action", action).Error("failed to write audit log")
	}
}

// ListAuditLogs returns the moderation audit trail, newest first.
func (svc *AuthService) ListAuditLogs(page, limit int) (*dto.AdminAuditLogResponse, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	logs, total, err := svc.postgres.ListAuditLogs(page, limit)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to load audit logs")
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &dto.AdminAuditLogResponse{
		Logs: logs,
		Pagination: dto.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

// RequiredAuth guards admin routes with a bearer token check.
func (svc *AuthService) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := svc.jwtSvc.ExtractTokenFromHeader(c.Get("Authorization"))
		if err != nil {
			return shared.ResponseUnauthorized(c, err.Error())
		}

		claims, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil {
			return shared.ResponseUnauthorized(c, "invalid JWT token")
		}

		admin, err := svc.postgres.GetAdmin(claims.AdminID)
		if err != nil || !admin.IsActive {
			return shared.ResponseUnauthorized(c, "account no longer active")
		}

		c.Locals(shared.AdminID, admin.ID)
		c.Locals(shared.AdminRole, admin.Role)
		return c.Next()
	}
}

// RequireRole restricts a route to one role. Super admins pass everywhere.
func (svc *AuthService) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, _ := c.Locals(shared.AdminRole).(string)
		if current == shared.RoleSuperAdmin || current == role {
			return c.Next()
		}
		return shared.ResponseJSON(c, fiber.StatusForbidden, "insufficient role", nil)
	}
}
