package state

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrStateNotFound = errors.New("conversation state not found")
	ErrNilState      = errors.New("conversation state is nil")
)

// Store is the conversation persistence contract used by the manager. Turn
// order must survive a Save/Load round-trip unchanged.
type Store interface {
	Load(ctx context.Context, userID string) (*ConversationState, error)
	Save(ctx context.Context, st *ConversationState) error
	Delete(ctx context.Context, userID string) error
}

// InMemoryStore keeps conversations in process memory, partitioned by user.
// Default backend for the CLI and for tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*ConversationState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{convs: make(map[string]*ConversationState)}
}

func (s *InMemoryStore) Load(_ context.Context, userID string) (*ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.convs[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, st *ConversationState) error {
	if st == nil {
		return ErrNilState
	}
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	s.convs[st.UserID] = st.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, userID)
	return nil
}
