package managernode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

// degradedReplyFor names the action that failed so the user knows what to
// retry.
func degradedReplyFor(route contractx.RouteDecision) string {
	action := "that request"
	switch route {
	case contractx.RouteEmail:
		action = "that email request"
	case contractx.RouteCalendar:
		action = "that calendar request"
	case contractx.RouteBudget:
		action = "that budget request"
	}
	return fmt.Sprintf("Sorry, I couldn't complete %s. "+
		"Nothing was changed on your behalf; please try again in a moment.", action)
}

// ComposeReply turns the dispatch outcome into the user-visible reply and
// appends the assistant turn. Side effects the agent reported are echoed
// verbatim, never reinterpreted.
func ComposeReply(in *GraphState) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation is not loaded", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Result.Reply)
	switch {
	case in.AgentErr != nil:
		reply = degradedReplyFor(in.Route)
	case in.Result.Err != "":
		if reply == "" {
			reply = degradedReplyFor(in.Route)
		}
	case reply == "":
		return nil, fmt.Errorf("%w: empty reply from route=%s", contractx.ErrSchemaViolation, in.Route)
	}

	if len(in.Result.SideEffects) > 0 && in.AgentErr == nil {
		var b strings.Builder
		b.WriteString(reply)
		for _, se := range in.Result.SideEffects {
			if strings.TrimSpace(se.Detail) == "" {
				continue
			}
			b.WriteString(fmt.Sprintf("\n[%s] %s", se.Kind, se.Detail))
		}
		reply = b.String()
	}

	in.Reply = reply
	in.Conversation.Append(contractx.RoleAssistant, reply, in.Now)
	return in, nil
}
