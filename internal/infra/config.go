package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV" env-default:"development"`
	Port        string `env:"PORT" env-default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`

	CORSOrigin        string `env:"CORS_ORIGIN" env-default:"http://localhost:5173"`
	RateLimitPerMin   int    `env:"RATE_LIMIT_PER_MINUTE" env-default:"60"`
	RateLimitWindowS  int    `env:"RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
	HTTPReadTimeoutS  int    `env:"HTTP_READ_TIMEOUT_SECONDS" env-default:"15"`
	HTTPWriteTimeoutS int    `env:"HTTP_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HTTPIdleTimeoutS  int    `env:"HTTP_IDLE_TIMEOUT_SECONDS" env-default:"60"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" env-default:"receipts@localhost"`

	WhatsAppPhoneNumberID    string `env:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppAccessToken      string `env:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppTemplate         string `env:"WHATSAPP_TEMPLATE" env-default:"donation_confirmation"`
	WhatsAppFallbackTemplate string `env:"WHATSAPP_FALLBACK_TEMPLATE"`

	OrgName          string `env:"ORG_NAME" env-default:"Donation Desk"`
	OrgEmail         string `env:"ORG_EMAIL"`
	OrgPhone         string `env:"ORG_PHONE"`
	PaymentPortalURL string `env:"PAYMENT_PORTAL_URL"`

	GeoIPDBPath string `env:"GEOIP_DB_PATH"`
}

// LoadConfig reads configuration from environment variables and validates
// the settings the service cannot run without.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &cfg, nil
}

// CORSOrigins splits the configured origin list.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) HTTPReadTimeout() time.Duration {
	return time.Duration(c.HTTPReadTimeoutS) * time.Second
}

func (c *Config) HTTPWriteTimeout() time.Duration {
	return time.Duration(c.HTTPWriteTimeoutS) * time.Second
}

func (c *Config) HTTPIdleTimeout() time.Duration {
	return time.Duration(c.HTTPIdleTimeoutS) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowS) * time.Second
}
