package state

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	st := NewConversationState("user-1", now)
	st.Append(contractx.RoleUser, "hello", now)
	st.Append(contractx.RoleAssistant, "hi", now)
	st.SetRoute(contractx.RouteCalendar)

	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Content != "hello" || loaded.Turns[1].Content != "hi" {
		t.Fatalf("turn order lost across round trip: %+v", loaded.Turns)
	}
	if loaded.Route != contractx.RouteCalendar {
		t.Fatalf("route lost across round trip: %q", loaded.Route)
	}
}

func TestInMemoryStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	if _, err := store.Load(context.Background(), "nobody"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}

func TestInMemoryStoreSaveValidates(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, nil); !errors.Is(err, ErrNilState) {
		t.Fatalf("expected ErrNilState, got %v", err)
	}
	if err := store.Save(ctx, NewConversationState("", time.Now())); err == nil {
		t.Fatal("expected validation error for empty user id")
	}
}

func TestInMemoryStoreSaveTakesCopy(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	st := NewConversationState("user-1", now)
	st.Append(contractx.RoleUser, "before", now)
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// mutating the caller's copy after save must not leak into the store
	st.Turns[0].Content = "after"

	loaded, _ := store.Load(ctx, "user-1")
	if loaded.Turns[0].Content != "before" {
		t.Fatalf("store aliased caller state: %q", loaded.Turns[0].Content)
	}
}

func TestInMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	st := NewConversationState("user-1", now)
	st.Append(contractx.RoleUser, "hello", now)
	_ = store.Save(ctx, st)

	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "user-1"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound after delete, got %v", err)
	}
}
