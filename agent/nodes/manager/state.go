// Package managernode holds the per-turn pipeline steps the manager graph
// wires together. Each step takes the shared GraphState, does one thing, and
// hands the state on.
package managernode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/orbita/agent/contract"
	memoryx "github.com/tanpawarit/orbita/agent/memory"
	statex "github.com/tanpawarit/orbita/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidUser    = errors.New("user id is empty")
)

type GraphInput struct {
	UserID string
	Text   string
}

type GraphOutput struct {
	Reply string
	Route contractx.RouteDecision
}

type GraphState struct {
	UserID string
	Text   string
	Now    time.Time

	Conversation   *statex.ConversationState
	Profile        *memoryx.Profile
	MemoryContext  string
	MemoryDegraded bool

	Route    contractx.RouteDecision
	Result   contractx.AgentResult
	AgentErr error

	Reply string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		UserID: userID,
		Text:   text,
		Now:    nowFn().UTC(),
	}, nil
}
