package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.ImageryProvider != "demo" {
		t.Errorf("expected default imagery provider demo, got %s", cfg.ImageryProvider)
	}
	if cfg.ChangeRenderer != "blend" {
		t.Errorf("expected default renderer blend, got %s", cfg.ChangeRenderer)
	}
	if cfg.SMTPPort != 465 {
		t.Errorf("expected default SMTP port 465, got %d", cfg.SMTPPort)
	}
	if cfg.GeocodeTimeout != 10*time.Second {
		t.Errorf("expected default geocode timeout 10s, got %v", cfg.GeocodeTimeout)
	}
	// credentials have no baked-in defaults
	if cfg.SMTPPassword != "" || cfg.SendGridAPIKey != "" {
		t.Error("expected no credential defaults in source")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IMAGERY_PROVIDER", "remote")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("GEOCODE_TIMEOUT", "3s")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.ImageryProvider != "remote" {
		t.Errorf("expected imagery provider remote, got %s", cfg.ImageryProvider)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("expected SMTP port 587, got %d", cfg.SMTPPort)
	}
	if cfg.GeocodeTimeout != 3*time.Second {
		t.Errorf("expected geocode timeout 3s, got %v", cfg.GeocodeTimeout)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg := Load()

	if cfg.SMTPPort != 465 {
		t.Errorf("expected fallback SMTP port 465, got %d", cfg.SMTPPort)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected fallback session TTL, got %v", cfg.SessionTTL)
	}
}
