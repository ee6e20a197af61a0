package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/donations")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
	assert.Equal(t, "donation_confirmation", cfg.WhatsAppTemplate)
	assert.Equal(t, "Donation Desk", cfg.OrgName)
	assert.Equal(t, 15*time.Second, cfg.HTTPReadTimeout())
	assert.Equal(t, 30*time.Second, cfg.HTTPWriteTimeout())
	assert.Equal(t, time.Minute, cfg.RateLimitWindow())
}

func TestLoadConfigRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost:5432/donations")
	t.Setenv("JWT_SECRET", "")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestCORSOrigins(t *testing.T) {
	cfg := &Config{CORSOrigin: "https://a.example.com, https://b.example.com ,,"}
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins())

	cfg = &Config{CORSOrigin: ""}
	assert.Nil(t, cfg.CORSOrigins())
}
