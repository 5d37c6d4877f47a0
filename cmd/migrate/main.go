package main

import (
	"log"
	"os"

	"ai-platform-be/internal/model"
	"ai-platform-be/pkg/database"
	"ai-platform-be/pkg/vectorstore"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up Extensions...")
	for _, sql := range []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	} {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}
	vectorEnabled := true
	if err := database.EnableVectorExtension(db); err != nil {
		// Only the pgvector backend needs it
		log.Printf("Warn: pgvector extension unavailable: %v. Skipping vector tables", err)
		vectorEnabled = false
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.Collection{},
		&model.Document{},
	}
	if vectorEnabled {
		models = append(models, vectorstore.Models()...)
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
