// Command seed bootstraps the first admin account and the default donation
// categories. Safe to run repeatedly: everything is upserted.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"donation-server/internal/infra"
)

var defaultCategories = []struct {
	name        string
	description string
}{
	{"General Fund", "Unrestricted donations"},
	{"Education", "Scholarships and school supplies"},
	{"Medical Aid", "Treatment and medicine support"},
	{"Food Relief", "Meals and ration kits"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		logger.Fatal().Msg("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}
	adminName := os.Getenv("SEED_ADMIN_NAME")
	if adminName == "" {
		adminName = "Administrator"
	}

	if err := infra.Migrate(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to hash admin password")
	}

	_, err = pool.Exec(ctx, `
INSERT INTO users (email, name, password_hash, role)
VALUES ($1, $2, $3, 'ADMIN')
ON CONFLICT (email) DO UPDATE
SET name = EXCLUDED.name,
    password_hash = EXCLUDED.password_hash,
    role = 'ADMIN',
    is_active = TRUE,
    updated_at = NOW();
`, adminEmail, adminName, string(hash))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to upsert admin user")
	}
	logger.Info().Str("email", adminEmail).Msg("admin account ready")

	for _, c := range defaultCategories {
		_, err := pool.Exec(ctx, `
INSERT INTO categories (name, description)
VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING;
`, c.name, c.description)
		if err != nil {
			logger.Fatal().Err(err).Str("category", c.name).Msg("failed to seed category")
		}
	}
	logger.Info().Int("categories", len(defaultCategories)).Msg("default categories ready")
}
