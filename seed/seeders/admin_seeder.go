package seeders

import (
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/minevote/api/model"
	"github.com/minevote/api/shared"
)

// AdminSeeder handles seeding the default admin account
type AdminSeeder struct {
	db *gorm.DB
}

// NewAdminSeeder creates a new admin seeder
func NewAdminSeeder(db *gorm.DB) *AdminSeeder {
	return &AdminSeeder{db: db}
}

// SeedAdmin creates a default super admin when none exists. The password
// comes from SEED_ADMIN_PASSWORD so no default credential ships.
func (s *AdminSeeder) SeedAdmin() error {
	var count int64
	if err := s.db.Model(&model.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Admin account already exists, skipping admin seeding")
		return nil
	}

	username := os.Getenv("SEED_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Println("SEED_ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, _ := uuid.NewV7()

	admin := model.Admin{
		ID:           id.String(),
		Username:     username,
		Email:        os.Getenv("SEED_ADMIN_EMAIL"),
		PasswordHash: string(hashedPassword),
		Role:         shared.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.db.Create(&admin).Error; err != nil {
		log.Printf("Error creating admin account: %v", err)
		return err
	}

	log.Printf("Created admin account: %s", admin.Username)
	return nil
}
