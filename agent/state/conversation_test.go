package state

import (
	"testing"
	"time"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

func TestAppendPreservesOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := NewConversationState("user-1", now)

	st.Append(contractx.RoleUser, "first", now)
	st.Append(contractx.RoleAssistant, "second", now.Add(time.Second))
	st.Append(contractx.RoleUser, "third", now.Add(2*time.Second))

	if len(st.Turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(st.Turns))
	}
	for i, want := range []string{"first", "second", "third"} {
		if st.Turns[i].Content != want {
			t.Fatalf("turn %d: expected %q, got %q", i, want, st.Turns[i].Content)
		}
		if st.Turns[i].ID == "" {
			t.Fatalf("turn %d: missing id", i)
		}
	}
}

func TestLastUserTurn(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewConversationState("user-1", now)
	if st.LastUserTurn() != nil {
		t.Fatal("expected nil for empty conversation")
	}

	st.Append(contractx.RoleUser, "hello", now)
	st.Append(contractx.RoleAssistant, "hi there", now)

	last := st.LastUserTurn()
	if last == nil || last.Content != "hello" {
		t.Fatalf("expected last user turn 'hello', got %+v", last)
	}
}

func TestRecentWindow(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewConversationState("user-1", now)
	for i := 0; i < 10; i++ {
		st.Append(contractx.RoleUser, "msg", now)
	}

	if got := len(st.Recent(4)); got != 4 {
		t.Fatalf("expected window of 4, got %d", got)
	}
	if got := len(st.Recent(0)); got != 10 {
		t.Fatalf("expected full history for n<=0, got %d", got)
	}
	if got := len(st.Recent(50)); got != 10 {
		t.Fatalf("expected full history when n exceeds length, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	now := time.Now()

	st := NewConversationState("  ", now)
	if err := st.Validate(); err == nil {
		t.Fatal("expected error for empty user id")
	}

	st = NewConversationState("user-1", now)
	st.Turns = append(st.Turns, contractx.Turn{Role: contractx.Role("ghost"), Content: "x"})
	if err := st.Validate(); err == nil {
		t.Fatal("expected error for invalid role")
	}

	st = NewConversationState("user-1", now)
	st.Append(contractx.RoleUser, "hello", now)
	st.SetRoute(contractx.RouteEmail)
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	st.Route = contractx.RouteDecision("weather")
	if err := st.Validate(); err == nil {
		t.Fatal("expected error for invalid route")
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewConversationState("user-1", now)
	st.Append(contractx.RoleUser, "original", now)

	cp := st.Clone()
	cp.Turns[0].Content = "mutated"
	cp.Append(contractx.RoleAssistant, "extra", now)
	cp.SetRoute(contractx.RouteBudget)

	if st.Turns[0].Content != "original" {
		t.Fatalf("clone aliased turn storage: %q", st.Turns[0].Content)
	}
	if len(st.Turns) != 1 {
		t.Fatalf("clone aliased turn slice: %d turns", len(st.Turns))
	}
	if st.Route != "" {
		t.Fatalf("clone aliased route: %q", st.Route)
	}
}
