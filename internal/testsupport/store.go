package testsupport

import (
	"context"
	"testing"

	"beacon/internal/config"
	"beacon/internal/profile"
)

// MustOpenStore opens a profile.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *profile.Store {
	t.Helper()

	store, err := profile.Open(cfg)
	if err != nil {
		t.Fatalf("profile.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// InsertProfile appends a profile row for tests.
func InsertProfile(t testing.TB, store *profile.Store, p *profile.Profile) *profile.Profile {
	t.Helper()

	inserted, err := store.Insert(context.Background(), p)
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return inserted
}
