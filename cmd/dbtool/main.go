package main

import (
	"log"
	"sla-attribution-service/internal/adapters/repositories"
	"sla-attribution-service/internal/config"
	"sla-attribution-service/internal/platform/db"
	"strings"

	"github.com/joho/godotenv"
)

// dbtool prepares a shared postgres database for run storage.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := config.Get(config.Prefix+"_DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal(config.Prefix + "_DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitPostgresSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
}
