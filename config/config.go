package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the KshetraNetra backend
type Config struct {
	// HTTP server configuration
	Port string

	// Active pipeline strategies
	ImageryProvider string // "demo", "upload" or "remote"
	ChangeRenderer  string // "blend", "grayscale" or "static"

	// Demo / static assets
	AssetsDir string

	// Geocoding configuration
	NominatimURL   string
	GeocodeTimeout time.Duration

	// Remote imagery provider configuration
	RemoteBaseURL  string
	RemoteUser     string
	RemotePassword string
	RemoteTimeout  time.Duration

	// Mail configuration
	MailProvider      string // "smtp" or "sendgrid"
	SMTPHost          string
	SMTPPort          int
	SMTPSender        string
	SMTPPassword      string
	SendGridAPIKey    string
	SendGridFromName  string
	SendGridFromEmail string

	// Report configuration
	UnicodeFontPath string

	// Session configuration
	SessionTTL time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{}

	cfg.Port = getEnv("PORT", "8080")

	cfg.ImageryProvider = getEnv("IMAGERY_PROVIDER", "demo")
	cfg.ChangeRenderer = getEnv("CHANGE_RENDERER", "blend")

	cfg.AssetsDir = getEnv("ASSETS_DIR", "assets")

	cfg.NominatimURL = getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	cfg.GeocodeTimeout = getDurationEnv("GEOCODE_TIMEOUT", 10*time.Second)

	cfg.RemoteBaseURL = getEnv("REMOTE_IMAGERY_URL", "")
	cfg.RemoteUser = getEnv("REMOTE_IMAGERY_USER", "")
	cfg.RemotePassword = getEnv("REMOTE_IMAGERY_PASSWORD", "")
	cfg.RemoteTimeout = getDurationEnv("REMOTE_IMAGERY_TIMEOUT", 30*time.Second)

	cfg.MailProvider = getEnv("MAIL_PROVIDER", "smtp")
	cfg.SMTPHost = getEnv("SMTP_HOST", "smtp.gmail.com")
	cfg.SMTPPort = getIntEnv("SMTP_PORT", 465)
	cfg.SMTPSender = getEnv("SMTP_SENDER", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SendGridAPIKey = getEnv("SENDGRID_API_KEY", "")
	cfg.SendGridFromName = getEnv("SENDGRID_FROM_NAME", "KshetraNetra")
	cfg.SendGridFromEmail = getEnv("SENDGRID_FROM_EMAIL", "")

	cfg.UnicodeFontPath = getEnv("UNICODE_FONT_PATH", "")

	cfg.SessionTTL = getDurationEnv("SESSION_TTL", 30*time.Minute)

	return cfg
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback default value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback default value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
