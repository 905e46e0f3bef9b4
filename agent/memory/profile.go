// Package memory holds the per-user memory profile: three independent sections
// of keyed free-form facts that personalize every turn.
package memory

import (
	"fmt"
	"strings"
	"time"
)

type Section string

const (
	SectionProfile      Section = "profile"
	SectionPreferences  Section = "preferences"
	SectionInstructions Section = "instructions"
)

// Sections is the render order; it never changes between calls.
var Sections = []Section{SectionProfile, SectionPreferences, SectionInstructions}

func (s Section) Valid() bool {
	switch s {
	case SectionProfile, SectionPreferences, SectionInstructions:
		return true
	}
	return false
}

// Entry is one keyed fact within a section.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fact is a durable statement detected in a turn, destined for one section.
type Fact struct {
	Section Section `json:"section"`
	Key     string  `json:"key"`
	Value   string  `json:"value"`
}

type section struct {
	order  []string
	values map[string]string
}

func newSection() *section {
	return &section{values: make(map[string]string, 8)}
}

func (s *section) set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.order = append(s.order, key)
	}
	s.values[key] = value
}

// Profile is the per-user persisted memory record. Keys within a section are
// unique; writing an existing key overwrites in place, keeping its original
// position so rendered context stays stable.
type Profile struct {
	userID    string
	sections  map[Section]*section
	updatedAt time.Time
}

// NewProfile returns an empty-but-valid profile for the user.
func NewProfile(userID string) *Profile {
	return &Profile{
		userID:   strings.TrimSpace(userID),
		sections: make(map[Section]*section, len(Sections)),
	}
}

func (p *Profile) UserID() string { return p.userID }

func (p *Profile) UpdatedAt() time.Time { return p.updatedAt }

// Set upserts one key in one section. Last write wins.
func (p *Profile) Set(sec Section, key, value string) error {
	if !sec.Valid() {
		return fmt.Errorf("invalid memory section %q", sec)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("memory key is empty")
	}
	s, ok := p.sections[sec]
	if !ok {
		s = newSection()
		p.sections[sec] = s
	}
	s.set(key, strings.TrimSpace(value))
	p.updatedAt = time.Now().UTC()
	return nil
}

// Get returns the value for a key, and whether it is present.
func (p *Profile) Get(sec Section, key string) (string, bool) {
	s, ok := p.sections[sec]
	if !ok {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Entries returns the section's entries in key insertion order.
func (p *Profile) Entries(sec Section) []Entry {
	s, ok := p.sections[sec]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, Entry{Key: k, Value: s.values[k]})
	}
	return out
}

func (p *Profile) Len() int {
	n := 0
	for _, s := range p.sections {
		n += len(s.order)
	}
	return n
}

func (p *Profile) Empty() bool { return p.Len() == 0 }

func (p *Profile) Clone() *Profile {
	out := NewProfile(p.userID)
	out.updatedAt = p.updatedAt
	for sec, s := range p.sections {
		cp := newSection()
		cp.order = append([]string(nil), s.order...)
		for k, v := range s.values {
			cp.values[k] = v
		}
		out.sections[sec] = cp
	}
	return out
}
