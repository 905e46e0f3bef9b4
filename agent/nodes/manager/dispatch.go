package managernode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/orbita/agent/contract"
)

// Dispatch hands the turn to the routed capability agent, or to the manager's
// own completer for a direct answer. Agent failures are recorded on the state
// so the reply composer can degrade; only a direct-completion failure is
// fatal, because there is no further fallback for it.
func Dispatch(
	ctx context.Context,
	in *GraphState,
	agents contractx.Registry,
	direct contractx.Completer,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation is not loaded", contractx.ErrValidation)
	}

	req := contractx.AgentRequest{
		UserMessage:   in.Text,
		History:       in.Conversation.Recent(historyWindow),
		MemoryContext: in.MemoryContext,
	}

	if in.Route == contractx.RouteManager {
		reply, err := direct.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%w: direct completion for user=%s: %v", contractx.ErrBackendUnavailable, in.UserID, err)
		}
		in.Result = contractx.AgentResult{Reply: strings.TrimSpace(reply)}
		return in, nil
	}

	agent, err := pickAgent(in.Route, agents)
	if err != nil {
		return nil, err
	}

	result, err := agent.Handle(ctx, req)
	if err != nil {
		wrapped := fmt.Errorf("%w: agent=%s: %v", contractx.ErrAgentExecution, in.Route, err)
		log.Error().
			Err(wrapped).
			Str("user_id", in.UserID).
			Str("route", string(in.Route)).
			Str("step", "dispatch").
			Msg("capability agent failed, degrading to apology")
		in.AgentErr = wrapped
		return in, nil
	}

	in.Result = result
	return in, nil
}

func pickAgent(route contractx.RouteDecision, agents contractx.Registry) (contractx.CapabilityAgent, error) {
	switch route {
	case contractx.RouteEmail:
		return agents.Email(), nil
	case contractx.RouteCalendar:
		return agents.Calendar(), nil
	case contractx.RouteBudget:
		return agents.Budget(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported route=%q", contractx.ErrValidation, route)
	}
}
