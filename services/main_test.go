package services

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/minevote/api/model"
	"github.com/minevote/api/shared"
)

func newTestPostgres(t *testing.T) *PostgresService {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(migrationModels()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	pg := &PostgresService{db: db}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return pg
}

func newTestVoteService(pg *PostgresService) *VoteService {
	return &VoteService{
		postgres: pg,
		captcha:  &CaptchaService{httpClient: http.DefaultClient},
		votifier: &VotifierService{serviceName: "MineVote", timeout: time.Second},
		monitor:  &MonitoringService{},
	}
}

func createTestServer(t *testing.T, pg *PostgresService, mutate func(*model.Server)) *model.Server {
	t.Helper()

	server := &model.Server{
		Name:          "Test Server",
		Host:          "play.test.example",
		Port:          25565,
		Category:      "survival",
		VotingEnabled: true,
		IsApproved:    true,
		Status:        shared.ServerStatusUnknown,
	}
	if mutate != nil {
		mutate(server)
	}

	created, err := pg.CreateServer(server)
	if err != nil {
		t.Fatalf("create test server: %v", err)
	}
	return created
}
