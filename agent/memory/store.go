package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Store is the durable memory persistence contract. Load returns an
// empty-but-valid profile when the user has none yet; it never errors on a
// miss. Merge upserts one key in one section, atomically per key.
type Store interface {
	Load(ctx context.Context, userID string) (*Profile, error)
	Merge(ctx context.Context, userID string, sec Section, key, value string) error
}

func validateMerge(userID string, sec Section, key string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("memory: user id is empty")
	}
	if !sec.Valid() {
		return fmt.Errorf("memory: invalid section %q", sec)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("memory: key is empty")
	}
	return nil
}

// InMemoryStore partitions profiles by user behind one lock; suitable for
// tests and single-process runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]*Profile)}
}

func (s *InMemoryStore) Load(_ context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p.Clone(), nil
	}
	return NewProfile(userID), nil
}

func (s *InMemoryStore) Merge(_ context.Context, userID string, sec Section, key, value string) error {
	if err := validateMerge(userID, sec, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = NewProfile(userID)
		s.profiles[userID] = p
	}
	return p.Set(sec, key, value)
}
