package memory

import (
	"context"
	"testing"
)

func TestInMemoryStoreLoadMissReturnsEmptyProfile(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	p, err := store.Load(context.Background(), "unknown-user")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p == nil || !p.Empty() {
		t.Fatalf("expected empty profile, got %+v", p)
	}
}

func TestInMemoryStoreMergeRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Merge(ctx, "user-1", SectionProfile, "name", "Alice"); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if err := store.Merge(ctx, "user-1", SectionPreferences, "coffee", "i like coffee"); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if err := store.Merge(ctx, "user-1", SectionProfile, "name", "Alicia"); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	p, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, _ := p.Get(SectionProfile, "name"); v != "Alicia" {
		t.Fatalf("expected last write to win, got %q", v)
	}
	if p.Len() != 2 {
		t.Fatalf("expected two entries, got %d", p.Len())
	}
}

func TestInMemoryStoreMergeValidation(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Merge(ctx, "", SectionProfile, "name", "x"); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if err := store.Merge(ctx, "user-1", Section("nope"), "name", "x"); err == nil {
		t.Fatal("expected error for invalid section")
	}
	if err := store.Merge(ctx, "user-1", SectionProfile, " ", "x"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestInMemoryStoreLoadReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	ctx := context.Background()
	_ = store.Merge(ctx, "user-1", SectionProfile, "name", "Alice")

	first, _ := store.Load(ctx, "user-1")
	_ = first.Set(SectionProfile, "name", "Hacked")

	second, _ := store.Load(ctx, "user-1")
	if v, _ := second.Get(SectionProfile, "name"); v != "Alice" {
		t.Fatalf("store state mutated through a loaded profile: %q", v)
	}
}

func TestInMemoryStoreIsolatesUsers(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	ctx := context.Background()
	_ = store.Merge(ctx, "user-1", SectionProfile, "name", "Alice")
	_ = store.Merge(ctx, "user-2", SectionProfile, "name", "Bob")

	p1, _ := store.Load(ctx, "user-1")
	p2, _ := store.Load(ctx, "user-2")
	if v, _ := p1.Get(SectionProfile, "name"); v != "Alice" {
		t.Fatalf("user-1 profile polluted: %q", v)
	}
	if v, _ := p2.Get(SectionProfile, "name"); v != "Bob" {
		t.Fatalf("user-2 profile polluted: %q", v)
	}
}
