package seeders

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minevote/api/model"
	"github.com/minevote/api/shared"
)

// ServerSeeder handles seeding sample server listings
type ServerSeeder struct {
	db *gorm.DB
}

// NewServerSeeder creates a new server seeder
func NewServerSeeder(db *gorm.DB) *ServerSeeder {
	return &ServerSeeder{db: db}
}

// SeedServers creates a handful of approved sample listings for local
// development. Skipped when any server already exists.
func (s *ServerSeeder) SeedServers() error {
	var count int64
	if err := s.db.Model(&model.Server{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Servers already exist, skipping server seeding")
		return nil
	}

	samples := []model.Server{
		{
			Name:          "SkyBlock Legends",
			Description:   "Classic skyblock with custom islands and an economy.",
			Host:          "play.skyblocklegends.example",
			Port:          25565,
			Category:      "skyblock",
			Tags:          "economy,islands,ranks",
			VotingEnabled: true,
			IsApproved:    true,
			Featured:      true,
		},
		{
			Name:          "Warfront PvP",
			Description:   "Factions and kit PvP with weekly tournaments.",
			Host:          "pvp.warfront.example",
			Port:          25565,
			Category:      "pvp",
			Tags:          "factions,kitpvp,tournaments",
			VotingEnabled: true,
			IsApproved:    true,
		},
		{
			Name:          "Creative Haven",
			Description:   "Large creative plots and build competitions.",
			Host:          "build.creativehaven.example",
			Port:          25566,
			Category:      "creative",
			Tags:          "plots,worldedit,competitions",
			VotingEnabled: true,
			IsApproved:    true,
		},
	}

	now := time.Now()
	for i := range samples {
		id, _ := uuid.NewV7()
		samples[i].ID = id.String()
		samples[i].Status = shared.ServerStatusUnknown
		samples[i].CreatedAt = now
		samples[i].UpdatedAt = now

		if err := s.db.Create(&samples[i]).Error; err != nil {
			log.Printf("Error creating sample server %s: %v", samples[i].Name, err)
			return err
		}
	}

	log.Printf("Created %d sample servers", len(samples))
	return nil
}
