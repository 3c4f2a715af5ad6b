package testsupport

import (
	"context"
	"testing"

	"slyce/internal/artifacts"
	"slyce/internal/config"
)

// MustOpenRegistry opens an artifacts.Store for tests and registers cleanup.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *artifacts.Store {
	t.Helper()

	store, err := artifacts.Open(cfg)
	if err != nil {
		t.Fatalf("artifacts.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a running run for tests using the provided store.
func NewRun(t testing.TB, store *artifacts.Store, source string) *artifacts.Run {
	t.Helper()

	run, err := store.CreateRun(context.Background(), artifacts.NewRun{Source: source, OutputDir: t.TempDir(), TileCount: 1})
	if err != nil {
		t.Fatalf("store.CreateRun: %v", err)
	}
	return run
}
