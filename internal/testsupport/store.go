package testsupport

import (
	"context"
	"testing"

	"narrator/internal/config"
	"narrator/internal/queue"
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

// NewItem creates a draft item for tests using the provided store.
func NewItem(t testing.TB, store *queue.Store, topic string) *queue.Item {
	t.Helper()

	item, err := store.Create(context.Background(), topic, "cinematique")
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}

// SaveItem persists item or fails the test.
func SaveItem(t testing.TB, store *queue.Store, item *queue.Item) {
	t.Helper()

	if err := store.Save(context.Background(), item); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
}
