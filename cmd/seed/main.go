package main

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/config"
	"github.com/oksasatya/pks-portal/pkg/helpers"
)

// seed upserts a verified ADMIN account so a fresh install can be reviewed.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	if cfg.SeedAdminPassword == "" {
		logger.Fatal("SEED_ADMIN_PASSWORD is not set")
	}
	if len(cfg.SeedAdminPassword) < 6 {
		logger.Fatal("SEED_ADMIN_PASSWORD must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.WithError(err).Fatal("failed to open db")
	}
	defer pool.Close()

	hash, err := helpers.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	var id int64
	err = pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password, role, is_verified)
		VALUES ($1, $2, $3, 'ADMIN', TRUE)
		ON CONFLICT (email) DO UPDATE
		   SET name = EXCLUDED.name,
		       password = EXCLUDED.password,
		       role = 'ADMIN',
		       is_verified = TRUE,
		       verification_token = NULL,
		       updated_at = now()
		RETURNING id
	`, cfg.SeedAdminName, email, hash).Scan(&id)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed admin")
	}
	logger.WithFields(logrus.Fields{"id": id, "email": email}).Info("admin account ready")
}
