package memory

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestProfileSetLastWriteWins(t *testing.T) {
	t.Parallel()

	p := NewProfile("user-1")
	if err := p.Set(SectionProfile, "name", "Alice"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := p.Set(SectionProfile, "name", "Alicia"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok := p.Get(SectionProfile, "name")
	if !ok || got != "Alicia" {
		t.Fatalf("expected latest value, got %q ok=%v", got, ok)
	}
	if p.Len() != 1 {
		t.Fatalf("expected one entry, got %d", p.Len())
	}
}

func TestProfileEntriesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	p := NewProfile("user-1")
	keys := []string{"name", "occupation", "location", "timezone"}
	for _, k := range keys {
		if err := p.Set(SectionProfile, k, "v-"+k); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}
	// overwrite must not move the key
	if err := p.Set(SectionProfile, "occupation", "engineer"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entries := p.Entries(SectionProfile)
	if len(entries) != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), len(entries))
	}
	for i, k := range keys {
		if entries[i].Key != k {
			t.Fatalf("entry %d: expected key %q, got %q", i, k, entries[i].Key)
		}
	}
	if entries[1].Value != "engineer" {
		t.Fatalf("expected overwritten value, got %q", entries[1].Value)
	}
}

func TestProfileRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	p := NewProfile("user-1")
	if err := p.Set(Section("unknown"), "k", "v"); err == nil {
		t.Fatal("expected error for invalid section")
	}
	if err := p.Set(SectionProfile, "   ", "v"); err == nil {
		t.Fatal("expected error for empty key")
	}
	if !p.Empty() {
		t.Fatal("failed writes must not modify the profile")
	}
}

func TestProfileCloneIsIndependent(t *testing.T) {
	t.Parallel()

	p := NewProfile("user-1")
	_ = p.Set(SectionPreferences, "coffee", "i like coffee")

	cp := p.Clone()
	_ = cp.Set(SectionPreferences, "coffee", "i hate coffee")
	_ = cp.Set(SectionInstructions, "reply_short", "always reply briefly")

	if v, _ := p.Get(SectionPreferences, "coffee"); v != "i like coffee" {
		t.Fatalf("original mutated through clone: %q", v)
	}
	if p.Len() != 1 {
		t.Fatalf("original gained entries through clone: %d", p.Len())
	}
}

func TestRenderDeterministicAndOrdered(t *testing.T) {
	t.Parallel()

	p := NewProfile("user-1")
	_ = p.Set(SectionInstructions, "reply_short", "always reply briefly")
	_ = p.Set(SectionProfile, "name", "Alice")
	_ = p.Set(SectionPreferences, "coffee", "i like coffee")
	_ = p.Set(SectionProfile, "location", "Bangkok")

	first := Render(p)
	second := Render(p)
	if first != second {
		t.Fatal("render must be deterministic for an unmodified profile")
	}

	profileIdx := strings.Index(first, "<user_profile>")
	prefIdx := strings.Index(first, "<user_preferences>")
	instrIdx := strings.Index(first, "<system_instructions>")
	if profileIdx < 0 || prefIdx < 0 || instrIdx < 0 {
		t.Fatalf("missing section tags in rendered context:\n%s", first)
	}
	if !(profileIdx < prefIdx && prefIdx < instrIdx) {
		t.Fatalf("sections rendered out of order:\n%s", first)
	}
	if !strings.Contains(first, "- name: Alice") {
		t.Fatalf("missing entry line:\n%s", first)
	}
	if strings.Index(first, "- name:") > strings.Index(first, "- location:") {
		t.Fatalf("profile keys lost insertion order:\n%s", first)
	}
}

func TestRenderEmptyProfile(t *testing.T) {
	t.Parallel()

	if got := Render(NewProfile("user-1")); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
	if got := Render(nil); got != "" {
		t.Fatalf("expected empty context for nil profile, got %q", got)
	}
}

func TestRenderTruncatesLongValues(t *testing.T) {
	t.Parallel()

	p := NewProfile("user-1")
	long := strings.Repeat("x", maxRenderedValueLen+50)
	_ = p.Set(SectionProfile, "bio", long)

	out := Render(p)
	if strings.Contains(out, long) {
		t.Fatal("expected long value to be truncated")
	}
	if !strings.Contains(out, "...") {
		t.Fatal("expected truncation marker")
	}
}

func TestRenderTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	p := NewProfile("user-1")
	// three-byte runes, so the byte cap lands mid-rune
	long := strings.Repeat("€", maxRenderedValueLen)
	_ = p.Set(SectionProfile, "bio", long)

	out := Render(p)
	if !utf8.ValidString(out) {
		t.Fatal("rendered context contains invalid UTF-8")
	}
	if !strings.Contains(out, "...") {
		t.Fatal("expected truncation marker")
	}
}
