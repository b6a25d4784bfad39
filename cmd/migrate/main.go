package main

import (
	"soofia-clockbook/app/config"
	"soofia-clockbook/app/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel)
	log.Println("Starting manual migration...")

	db, err := config.OpenDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Manual migration completed successfully!")
}
