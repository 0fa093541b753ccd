package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/minevote/api/seed/seeders"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, admin, servers")
		dsn      = flag.String("dsn", "", "Database DSN (overrides DATABASE_URL env var)")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	databaseDSN := *dsn
	if databaseDSN == "" {
		databaseDSN = os.Getenv("DATABASE_URL")
		if databaseDSN == "" {
			log.Fatal("DATABASE_URL is required")
		}
	}

	db, err := gorm.Open(postgres.Open(databaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Connected to database")

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		err = mainSeeder.SeedAll()
	case "admin":
		log.Println("Seeding admin account...")
		err = mainSeeder.SeedAdminOnly()
	case "servers":
		log.Println("Seeding sample servers...")
		err = mainSeeder.SeedServersOnly()
	default:
		log.Fatalf("Unknown seed type: %s", *seedType)
	}

	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding completed")
}

func showHelp() {
	fmt.Println("Database seeder")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  seed -type=all       Seed admin account and sample servers")
	fmt.Println("  seed -type=admin     Seed the default admin account only")
	fmt.Println("  seed -type=servers   Seed sample server listings only")
	fmt.Println("  seed -dsn=<dsn>      Override DATABASE_URL")
}
