package managernode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/orbita/agent/contract"
	statex "github.com/tanpawarit/orbita/agent/state"
)

// SaveConversation persists the updated conversation. The reply has already
// been composed, so a store failure is logged for operators but does not take
// the reply away from the user.
func SaveConversation(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation is not loaded", contractx.ErrValidation)
	}

	// Dispatch consumed the route; only messages carry forward across turns.
	in.Conversation.ClearRoute()
	in.Conversation.Touch(in.Now)
	if err := in.Conversation.Validate(); err != nil {
		return nil, err
	}

	if err := store.Save(ctx, in.Conversation); err != nil {
		log.Error().
			Err(fmt.Errorf("%w: %v", contractx.ErrBackendUnavailable, err)).
			Str("user_id", in.UserID).
			Str("route", string(in.Route)).
			Str("step", "persist_state").
			Msg("conversation save failed, reply still emitted")
	}
	return in, nil
}

// FinalizeReply is the terminal step; it shapes the graph output.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply: in.Reply,
		Route: in.Route,
	}, nil
}
