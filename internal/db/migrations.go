package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS users (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name            TEXT NOT NULL,
		email           TEXT NOT NULL,
		password_hash   TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'user',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users(email);`,
	`CREATE TABLE IF NOT EXISTS waste_records (
		id                  UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id             UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		items               JSONB NOT NULL DEFAULT '[]'::jsonb,
		image_file          TEXT NOT NULL,
		detected_image_file TEXT,
		is_saved            BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_waste_records_user_id ON waste_records(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_waste_records_created_at ON waste_records(created_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
