package memory

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	writes := []Fact{
		{Section: SectionProfile, Key: "name", Value: "Alice"},
		{Section: SectionProfile, Key: "location", Value: "Lisbon"},
		{Section: SectionPreferences, Key: "meeting_time", Value: "mornings"},
		{Section: SectionProfile, Key: "name", Value: "Alicia"},
	}
	for _, w := range writes {
		if err := store.Merge(ctx, "user-1", w.Section, w.Key, w.Value); err != nil {
			t.Fatalf("Merge(%s/%s) error = %v", w.Section, w.Key, err)
		}
	}

	profile, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, _ := profile.Get(SectionProfile, "name"); got != "Alicia" {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if got, _ := profile.Get(SectionPreferences, "meeting_time"); got != "mornings" {
		t.Fatalf("unexpected preference value: %q", got)
	}

	// overwriting must not move 'name' behind 'location'
	entries := profile.Entries(SectionProfile)
	if len(entries) != 2 || entries[0].Key != "name" || entries[1].Key != "location" {
		t.Fatalf("insertion order lost: %#v", entries)
	}
}

func TestSQLiteStoreUserIsolation(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Merge(ctx, "user-1", SectionProfile, "name", "Alice"); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	other, err := store.Load(ctx, "user-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !other.Empty() {
		t.Fatalf("expected empty profile for a different user")
	}
}

func TestSQLiteStoreMergeValidation(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Merge(ctx, "", SectionProfile, "name", "Alice"); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if err := store.Merge(ctx, "user-1", Section("secrets"), "k", "v"); err == nil {
		t.Fatal("expected error for invalid section")
	}
	if err := store.Merge(ctx, "user-1", SectionProfile, "  ", "v"); err == nil {
		t.Fatal("expected error for empty key")
	}
}
