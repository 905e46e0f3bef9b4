package managernode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/orbita/agent/contract"
	statex "github.com/tanpawarit/orbita/agent/state"
)

// LoadConversation restores the user's conversation or starts a fresh one,
// then appends the incoming user turn.
func LoadConversation(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	conv, err := store.Load(ctx, in.UserID)
	switch {
	case errors.Is(err, statex.ErrStateNotFound):
		conv = statex.NewConversationState(in.UserID, in.Now)
	case err != nil:
		return nil, fmt.Errorf("%w: load conversation for user=%s: %v", contractx.ErrBackendUnavailable, in.UserID, err)
	}

	conv.Append(contractx.RoleUser, in.Text, in.Now)

	in.Conversation = conv
	return in, nil
}
