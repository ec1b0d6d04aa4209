package repository

import (
	"path/filepath"
	"testing"

	"vaultbot/internal/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Client {
	t.Helper()

	store, err := sqlite.NewClient(sqlite.Config{Path: filepath.Join(t.TempDir(), "vault.db")})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
