// Command create-schema applies the MySQL schema for the productivity hub
// backend. It is idempotent: every statement uses IF NOT EXISTS so running
// it against an existing database is safe.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/prodhub/productivity-hub/internal/config"
	"github.com/prodhub/productivity-hub/internal/database"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) NOT NULL,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		email_verification_token CHAR(36) NULL,
		email_verification_expires DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_verification_token (email_verification_token)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id CHAR(36) NOT NULL,
		current_theme VARCHAR(64) NOT NULL,
		enabled_themes JSON NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id),
		CONSTRAINT fk_preferences_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_enabled_plugins (
		user_id CHAR(36) NOT NULL,
		plugin_id VARCHAR(64) NOT NULL,
		settings JSON NOT NULL,
		enabled_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, plugin_id),
		CONSTRAINT fk_plugins_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("schema statement failed: %v", err)
		}
	}
	log.Printf("schema applied to %s", cfg.DBName)
}
