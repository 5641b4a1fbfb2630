package main

import (
	"log"
	"os"

	"contract-review-be/internal/model"
	"contract-review-be/pkg/database"

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

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions
	log.Println("Step 1: Setting up Extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.Contract{},
		&model.RiskAssessment{},
		&model.Recommendation{},
		&model.AppliedRecommendation{},
		&model.SignatureDocument{},
		&model.SignatureRecipient{},
		&model.SignatureField{},
		&model.SignatureTemplate{},
		&model.SigningSession{},
		&model.AuditEvent{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: the audit table rejects UPDATE and DELETE.
	log.Println("Step 3: Creating Functions and Triggers...")
	postMigrationSQL := []string{
		`CREATE OR REPLACE FUNCTION audit_events_append_only() RETURNS trigger LANGUAGE plpgsql AS $$
		BEGIN
		  RAISE EXCEPTION 'audit_events is append-only';
		END; $$;`,

		`DROP TRIGGER IF EXISTS audit_events_no_update ON audit_events;`,
		`CREATE TRIGGER audit_events_no_update BEFORE UPDATE OR DELETE ON audit_events
		 FOR EACH ROW EXECUTE FUNCTION audit_events_append_only();`,

		// Contracts analyzed before analyzed_run_id existed.
		`UPDATE contracts SET analyzed_run_id = (
		   SELECT run_id FROM risk_assessments ra WHERE ra.contract_id = contracts.id LIMIT 1)
		 WHERE analyzed_run_id IS NULL
		   AND EXISTS (SELECT 1 FROM risk_assessments ra WHERE ra.contract_id = contracts.id);`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
