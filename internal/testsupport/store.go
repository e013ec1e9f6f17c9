package testsupport

import (
	"testing"

	"reel/internal/config"
	"reel/internal/job"
	"reel/internal/logging"
	"reel/internal/registry"
)

// MustOpenRegistry opens the job registry rooted in the config's jobs
// directory.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.NewStore(cfg.Paths.JobsDir, logging.NewNop())
	if err != nil {
		t.Fatalf("registry.NewStore: %v", err)
	}
	return store
}

// SaveJob persists a record and returns the filename it landed in.
func SaveJob(t testing.TB, store *registry.Store, record job.Record) string {
	t.Helper()

	name, err := store.Save(record)
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return name
}
