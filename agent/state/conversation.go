package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/orbita/agent/contract"
)

var (
	ErrInvalidUser = errors.New("user id is empty")
	ErrInvalidRole = errors.New("turn role is invalid")
)

// ConversationState is the unit of orchestration: the ordered turn history for
// one user plus the route selected for the current turn. It has single-writer
// discipline; the manager owns it for the duration of one turn.
type ConversationState struct {
	UserID    string                  `json:"user_id"`
	Turns     []contractx.Turn        `json:"turns,omitempty"`
	Route     contractx.RouteDecision `json:"route,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func NewConversationState(userID string, now time.Time) *ConversationState {
	return &ConversationState{
		UserID:    strings.TrimSpace(userID),
		UpdatedAt: now.UTC(),
	}
}

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Append adds a turn and returns a pointer to the stored copy. Turns are never
// reordered or removed.
func (s *ConversationState) Append(role contractx.Role, content string, now time.Time) *contractx.Turn {
	s.Turns = append(s.Turns, contractx.Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: now.UTC(),
	})
	s.Touch(now)
	return &s.Turns[len(s.Turns)-1]
}

// SetRoute records the destination for the in-flight turn.
func (s *ConversationState) SetRoute(route contractx.RouteDecision) {
	s.Route = route
}

// ClearRoute resets the per-turn route after dispatch consumed it.
func (s *ConversationState) ClearRoute() {
	s.Route = ""
}

// LastUserTurn returns the most recent user turn, or nil.
func (s *ConversationState) LastUserTurn() *contractx.Turn {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == contractx.RoleUser {
			return &s.Turns[i]
		}
	}
	return nil
}

// Recent returns up to n trailing turns without copying their contents.
func (s *ConversationState) Recent(n int) []contractx.Turn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

func (s *ConversationState) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrInvalidUser
	}
	for i, turn := range s.Turns {
		if !turn.Role.Valid() {
			return fmt.Errorf("%w: turn=%d role=%q", ErrInvalidRole, i, turn.Role)
		}
	}
	if s.Route != "" && !s.Route.Valid() {
		return fmt.Errorf("%w: route=%q", contractx.ErrValidation, s.Route)
	}
	return nil
}

// Clone deep-copies the state so stores and tests never alias the manager's
// working copy.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := &ConversationState{
		UserID:    s.UserID,
		Route:     s.Route,
		UpdatedAt: s.UpdatedAt,
	}
	if len(s.Turns) > 0 {
		out.Turns = make([]contractx.Turn, len(s.Turns))
		copy(out.Turns, s.Turns)
		for i := range out.Turns {
			if len(s.Turns[i].ToolCalls) > 0 {
				out.Turns[i].ToolCalls = append([]contractx.ToolCall(nil), s.Turns[i].ToolCalls...)
			}
		}
	}
	return out
}
