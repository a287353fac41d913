package testsupport

import (
	"context"
	"testing"

	"nestling/internal/config"
	"nestling/internal/pipeline"
	"nestling/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedEntries persists retry entries under the given batch for tests.
func SeedEntries(t testing.TB, store *queue.Store, batchID string, entries ...pipeline.RetryEntry) {
	t.Helper()

	if err := store.SaveBatch(context.Background(), batchID, entries); err != nil {
		t.Fatalf("store.SaveBatch: %v", err)
	}
}
