package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/hirelocal")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GetMissedLeadTimeout() != 30*time.Minute {
		t.Fatalf("expected 30m missed-lead timeout, got %s", cfg.GetMissedLeadTimeout())
	}
	if cfg.GetPollInterval() != 10*time.Second || cfg.GetPollIntervalConnected() != 30*time.Second {
		t.Fatalf("unexpected poll intervals %s/%s", cfg.GetPollInterval(), cfg.GetPollIntervalConnected())
	}
	if cfg.GetPhoneDefaultRegion() != "IN" {
		t.Fatalf("expected IN region, got %s", cfg.GetPhoneDefaultRegion())
	}
	if cfg.GetEmailEnabled() {
		t.Fatalf("email should be disabled without SMTP_HOST")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for wildcard CORS with credentials")
	}
}

func TestMustIntFallsBack(t *testing.T) {
	if got := mustInt("abc", 8); got != 8 {
		t.Fatalf("expected fallback 8, got %d", got)
	}
	if got := mustInt("-3", 8); got != 8 {
		t.Fatalf("expected fallback for negative, got %d", got)
	}
	if got := mustInt(" 12 ", 8); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}
