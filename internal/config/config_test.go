package config

import (
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123456:test-token")
	t.Setenv("OWNER_ID", "10001")
	t.Setenv("VAULT_CHANNEL_ID", "-1001000000001")
	t.Setenv("BACKUP_CHANNEL_ID", "-1001000000002")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DBPath != "data/vault.db" {
		t.Fatalf("expected default DB path, got %q", cfg.DBPath)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.BroadcastConcurrency != DefaultBroadcastConcurrency {
		t.Fatalf("expected default concurrency %d, got %d", DefaultBroadcastConcurrency, cfg.BroadcastConcurrency)
	}
	if cfg.OwnerID != 10001 {
		t.Fatalf("expected owner id 10001, got %d", cfg.OwnerID)
	}
	if cfg.VaultChannelID != -1001000000001 {
		t.Fatalf("expected vault channel id, got %d", cfg.VaultChannelID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "missing token", unset: "BOT_TOKEN"},
		{name: "missing owner", unset: "OWNER_ID"},
		{name: "missing vault channel", unset: "VAULT_CHANNEL_ID"},
		{name: "missing backup channel", unset: "BACKUP_CHANNEL_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s is empty", tt.unset)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_PATH", "/tmp/other.db")
	t.Setenv("PORT", "9090")
	t.Setenv("BROADCAST_CONCURRENCY", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DBPath != "/tmp/other.db" {
		t.Fatalf("expected overridden DB path, got %q", cfg.DBPath)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.BroadcastConcurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", cfg.BroadcastConcurrency)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad owner id", key: "OWNER_ID", value: "abc"},
		{name: "bad port", key: "PORT", value: "-1"},
		{name: "bad concurrency", key: "BROADCAST_CONCURRENCY", value: "0"},
		{name: "non numeric concurrency", key: "BROADCAST_CONCURRENCY", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
