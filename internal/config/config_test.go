package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PUBLIC_BASE_URL", "https://provision.example.com/")
	t.Setenv("INSTALL_STEP_DELAY", "")
	t.Setenv("LLM_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Store.Driver)
	}
	if cfg.App.PublicBaseURL != "https://provision.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.App.PublicBaseURL)
	}
	if cfg.Workflow.InstallStepDelay != 700*time.Millisecond {
		t.Fatalf("unexpected step delay: %v", cfg.Workflow.InstallStepDelay)
	}
	if cfg.Workflow.TicketPrefix != "SNW" {
		t.Fatalf("unexpected prefix: %q", cfg.Workflow.TicketPrefix)
	}
	if cfg.LLM.Enabled() {
		t.Fatal("llm should be disabled without an api key")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestLoadParsesDurations(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("INSTALL_STEP_DELAY", "0s")
	t.Setenv("REDIS_SESSION_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workflow.InstallStepDelay != 0 {
		t.Fatalf("expected zero delay, got %v", cfg.Workflow.InstallStepDelay)
	}
	if cfg.Redis.SessionTTL != time.Hour {
		t.Fatalf("expected 1h session ttl, got %v", cfg.Redis.SessionTTL)
	}
}
