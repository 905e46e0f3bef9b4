package managernode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/orbita/agent/contract"
	routerx "github.com/tanpawarit/orbita/agent/router"
)

// historyWindow bounds how much conversation the classifier sees. The latest
// user turn is excluded: it is the message under classification, not context.
const historyWindow = 6

func RouteTurn(ctx context.Context, in *GraphState, r *routerx.Router) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation is not loaded", contractx.ErrValidation)
	}

	turns := in.Conversation.Turns
	history := turns
	if len(turns) > 0 && turns[len(turns)-1].Role == contractx.RoleUser {
		history = turns[:len(turns)-1]
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	in.Route = r.Route(ctx, in.Text, history, in.MemoryContext)
	in.Conversation.SetRoute(in.Route)
	return in, nil
}
