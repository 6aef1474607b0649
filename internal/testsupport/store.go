package testsupport

import (
	"testing"

	"shutter/internal/config"
	"shutter/internal/index"
	"shutter/internal/logging"
)

// MustOpenStore opens an index.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *index.Store {
	t.Helper()

	store, err := index.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
