package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minevote/api/dto"
	"github.com/minevote/api/model"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

const POSTGRES_SVC = "postgres_svc"

// ErrDuplicateVote is returned by CreateVote when the (server, player, day)
// uniqueness constraint rejects the insert. It is the canonical
// already-voted signal; callers must treat it as a business rejection, not a
// storage failure.
var ErrDuplicateVote = errors.New("duplicate vote")

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" {
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "minevote"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}

		ds.database = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			host, user, password, dbname, port, sslmode)
	}

	return ds.DefaultService.Configure(ctx)
}

func (ds *PostgresService) Start() (err error) {
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		ds.db, err = gorm.Open(postgres.Open(ds.database), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Error),
			TranslateError: true,
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					log.Println("Successfully connected to database")
					break
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	err = ds.db.AutoMigrate(migrationModels()...)
	if err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

func migrationModels() []interface{} {
	return []interface{}{
		&model.Server{},
		&model.Vote{},
		&model.ServerPingHistory{},
		&model.Admin{},
		&model.AdminAuditLog{},
	}
}

func (ds *PostgresService) Shutdown() {
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (ds *PostgresService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		if isDuplicateKeyError(err) {
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		} else if strings.Contains(err.Error(), "connection refused") {
			statusCode = http.StatusServiceUnavailable
			errorType = "DATABASE_CONNECTION_ERROR"
		} else {
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// ==================== SERVER METHODS ====================

func (ds *PostgresService) CreateServer(server *model.Server) (*model.Server, error) {
	if server.ID == "" {
		id, _ := uuid.NewV7()
		server.ID = id.String()
	}
	server.CreatedAt = time.Now()
	server.UpdatedAt = time.Now()

	if err := ds.db.Create(server).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return server, nil
}

func (ds *PostgresService) GetServer(id string) (*model.Server, error) {
	var server model.Server
	if err := ds.db.Where("id = ?", id).First(&server).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &server, nil
}

func (ds *PostgresService) UpdateServer(server *model.Server) error {
	server.UpdatedAt = time.Now()
	if err := ds.db.Save(server).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

func (ds *PostgresService) DeleteServer(id string) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("server_id = ?", id).Delete(&model.Vote{}).Error; err != nil {
			return ds.HandleError(err)
		}
		if err := tx.Where("server_id = ?", id).Delete(&model.ServerPingHistory{}).Error; err != nil {
			return ds.HandleError(err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.Server{}).Error; err != nil {
			return ds.HandleError(err)
		}
		return nil
	})
}

func (ds *PostgresService) ListServers(req dto.ListServersRequest, approvedOnly bool) ([]model.Server, int64, error) {
	var servers []model.Server
	var total int64

	query := ds.db.Model(&model.Server{})
	if approvedOnly {
		query = query.Where("is_approved = ?", true)
	}
	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ? OR host LIKE ?", pattern, pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, ds.HandleError(err)
	}

	switch req.Sort {
	case "newest":
		query = query.Order("created_at DESC")
	case "players":
		query = query.Order("current_players DESC")
	default:
		query = query.Order("featured DESC, total_votes DESC")
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&servers).Error; err != nil {
		return nil, 0, ds.HandleError(err)
	}
	return servers, total, nil
}

func (ds *PostgresService) AdminListServers(req dto.AdminListServersRequest) ([]model.Server, int64, error) {
	var servers []model.Server
	var total int64

	query := ds.db.Model(&model.Server{})
	switch req.Filter {
	case "pending":
		query = query.Where("is_approved = ?", false)
	case "approved":
		query = query.Where("is_approved = ?", true)
	case "featured":
		query = query.Where("featured = ?", true)
	}
	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		query = query.Where("name LIKE ? OR host LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, ds.HandleError(err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&servers).Error; err != nil {
		return nil, 0, ds.HandleError(err)
	}
	return servers, total, nil
}

// ==================== VOTE METHODS ====================

// CreateVote inserts the vote row. A uniqueness violation on
// (server_id, minecraft_username, vote_day) surfaces as ErrDuplicateVote.
func (ds *PostgresService) CreateVote(vote *model.Vote) (*model.Vote, error) {
	if vote.ID == "" {
		id, _ := uuid.NewV7()
		vote.ID = id.String()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now()
	}
	if vote.VoteDay == "" {
		vote.VoteDay = model.VoteDayOf(vote.CreatedAt)
	}

	if err := ds.db.Create(vote).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateVote
		}
		return nil, ds.HandleError(err)
	}
	return vote, nil
}

// GetVoteInWindow returns the most recent vote for (server, player) created
// after since, or nil when the player is eligible.
func (ds *PostgresService) GetVoteInWindow(serverID, username string, since time.Time) (*model.Vote, error) {
	var vote model.Vote
	err := ds.db.Where("server_id = ? AND minecraft_username = ? AND created_at > ?", serverID, username, since).
		Order("created_at DESC").First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, ds.HandleError(err)
	}
	return &vote, nil
}

// AttachVotifierOutcome records the notifier result on an already-committed
// vote. The vote itself is never mutated beyond these fields.
func (ds *PostgresService) AttachVotifierOutcome(voteID string, sent bool, response string) error {
	now := time.Now()
	err := ds.db.Model(&model.Vote{}).Where("id = ?", voteID).Updates(map[string]interface{}{
		"votifier_sent":     sent,
		"votifier_response": response,
		"processed_at":      &now,
	}).Error
	if err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// RecomputeVoteCounters rebuilds the server's denormalized counters from the
// vote log. Each window is counted independently; previous counter values
// are never trusted.
func (ds *PostgresService) RecomputeVoteCounters(serverID string, now time.Time) error {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	weekStart := now.Add(-7 * 24 * time.Hour)
	monthStart := now.Add(-30 * 24 * time.Hour)

	var daily, weekly, monthly, total int64

	votes := func() *gorm.DB { return ds.db.Model(&model.Vote{}).Where("server_id = ?", serverID) }

	if err := votes().Where("created_at >= ?", dayStart).Count(&daily).Error; err != nil {
		return ds.HandleError(err)
	}
	if err := votes().Where("created_at >= ?", weekStart).Count(&weekly).Error; err != nil {
		return ds.HandleError(err)
	}
	if err := votes().Where("created_at >= ?", monthStart).Count(&monthly).Error; err != nil {
		return ds.HandleError(err)
	}
	if err := votes().Count(&total).Error; err != nil {
		return ds.HandleError(err)
	}

	err := ds.db.Model(&model.Server{}).Where("id = ?", serverID).Updates(map[string]interface{}{
		"daily_votes":   daily,
		"weekly_votes":  weekly,
		"monthly_votes": monthly,
		"total_votes":   total,
		"last_vote":     now,
		"updated_at":    time.Now(),
	}).Error
	if err != nil {
		return ds.HandleError(err)
	}
	return nil
}

func (ds *PostgresService) GetServerVotes(serverID string, page, limit int) ([]model.Vote, int64, error) {
	var votes []model.Vote
	var total int64

	query := ds.db.Model(&model.Vote{}).Where("server_id = ?", serverID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, ds.HandleError(err)
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&votes).Error; err != nil {
		return nil, 0, ds.HandleError(err)
	}
	return votes, total, nil
}

// PurgeServerVotes deletes all votes for a server and zeroes its counters.
// Administrative use only.
func (ds *PostgresService) PurgeServerVotes(serverID string) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("server_id = ?", serverID).Delete(&model.Vote{}).Error; err != nil {
			return ds.HandleError(err)
		}
		err := tx.Model(&model.Server{}).Where("id = ?", serverID).Updates(map[string]interface{}{
			"daily_votes":   0,
			"weekly_votes":  0,
			"monthly_votes": 0,
			"total_votes":   0,
			"updated_at":    time.Now(),
		}).Error
		if err != nil {
			return ds.HandleError(err)
		}
		return nil
	})
}

// ==================== PING HISTORY METHODS ====================

func (ds *PostgresService) CreatePingHistory(record *model.ServerPingHistory) error {
	if record.ID == "" {
		id, _ := uuid.NewV7()
		record.ID = id.String()
	}
	record.CreatedAt = time.Now()

	if err := ds.db.Create(record).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

func (ds *PostgresService) CleanupPingHistory(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	err := ds.db.Where("created_at < ?", cutoff).Delete(&model.ServerPingHistory{}).Error
	if err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// ==================== ADMIN METHODS ====================

func (ds *PostgresService) GetAdminByUsername(username string) (*model.Admin, error) {
	var admin model.Admin
	if err := ds.db.Where("username = ? AND is_active = ?", username, true).First(&admin).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &admin, nil
}

func (ds *PostgresService) GetAdmin(id string) (*model.Admin, error) {
	var admin model.Admin
	if err := ds.db.Where("id = ?", id).First(&admin).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &admin, nil
}

func (ds *PostgresService) CreateAdmin(admin *model.Admin) (*model.Admin, error) {
	if admin.ID == "" {
		id, _ := uuid.NewV7()
		admin.ID = id.String()
	}
	admin.CreatedAt = time.Now()
	admin.UpdatedAt = time.Now()

	if err := ds.db.Create(admin).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return admin, nil
}

func (ds *PostgresService) UpdateAdmin(admin *model.Admin) error {
	admin.UpdatedAt = time.Now()
	if err := ds.db.Save(admin).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

func (ds *PostgresService) CountAdmins() (int64, error) {
	var count int64
	if err := ds.db.Model(&model.Admin{}).Count(&count).Error; err != nil {
		return 0, ds.HandleError(err)
	}
	return count, nil
}

func (ds *PostgresService) CreateAuditLog(entry *model.AdminAuditLog) error {
	if entry.ID == "" {
		id, _ := uuid.NewV7()
		entry.ID = id.String()
	}
	entry.CreatedAt = time.Now()

	if err := ds.db.Create(entry).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

func (ds *PostgresService) ListAuditLogs(page, limit int) ([]model.AdminAuditLog, int64, error) {
	var logs []model.AdminAuditLog
	var total int64

	if err := ds.db.Model(&model.AdminAuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, ds.HandleError(err)
	}

	offset := (page - 1) * limit
	if err := ds.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, ds.HandleError(err)
	}
	return logs, total, nil
}

// ==================== STATS METHODS ====================

func (ds *PostgresService) GetSiteStats() (*dto.SiteStats, error) {
	stats := &dto.SiteStats{}

	if err := ds.db.Model(&model.Server{}).Where("is_approved = ?", true).Count(&stats.TotalServers).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	if err := ds.db.Model(&model.Server{}).Where("is_approved = ? AND status = ?", true, "online").
		Count(&stats.OnlineServers).Error; err != nil {
		return nil, ds.HandleError(err)
	}

	var players struct{ Total int64 }
	err := ds.db.Model(&model.Server{}).
		Select("COALESCE(SUM(current_players), 0) AS total").
		Where("is_approved = ? AND status = ?", true, "online").
		Scan(&players).Error
	if err != nil {
		return nil, ds.HandleError(err)
	}
	stats.TotalPlayers = players.Total

	if err := ds.db.Model(&model.Vote{}).Count(&stats.TotalVotes).Error; err != nil {
		return nil, ds.HandleError(err)
	}

	return stats, nil
}

func (ds *PostgresService) GetAdminDashboardStats() (*dto.AdminDashboardStats, error) {
	stats := &dto.AdminDashboardStats{}

	if err := ds.db.Model(&model.Server{}).Count(&stats.TotalServers).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	if err := ds.db.Model(&model.Server{}).Where("is_approved = ?", false).Count(&stats.PendingServers).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	if err := ds.db.Model(&model.Vote{}).Count(&stats.TotalVotes).Error; err != nil {
		return nil, ds.HandleError(err)
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	if err := ds.db.Model(&model.Vote{}).Where("created_at >= ?", dayStart).Count(&stats.VotesToday).Error; err != nil {
		return nil, ds.HandleError(err)
	}

	return stats, nil
}
