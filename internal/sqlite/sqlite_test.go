package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewClientCreatesFileAndSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "vault.db")

	c, err := NewClient(Config{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file to exist: %v", err)
	}

	var count int
	err = c.DB().Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('settings','users','sessions','files','delete_jobs')")
	if err != nil {
		t.Fatalf("failed to query schema: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 tables, got %d", count)
	}
}

func TestNewClientEmptyPath(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestCheckpointAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	c, err := NewClient(Config{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if _, err := c.DB().Exec("INSERT INTO settings(key, value) VALUES('start_text', 'hello')"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	if err := c.Checkpoint(context.Background()); err != nil {
		t.Fatalf("checkpoint failed: %v", err)
	}

	if err := c.Reopen(); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	var value string
	if err := c.DB().Get(&value, "SELECT value FROM settings WHERE key='start_text'"); err != nil {
		t.Fatalf("failed to read after reopen: %v", err)
	}
	if value != "hello" {
		t.Fatalf("expected 'hello', got %q", value)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	c, err := NewClient(Config{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail after close")
	}
}
