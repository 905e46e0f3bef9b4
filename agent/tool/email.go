package tool

import (
	"context"
	"fmt"
	"net/mail"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

const maxFetchCount = 50

func executeEmailFetch(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Mail == nil {
		return errResult(tool, "mail transport is not configured"), nil
	}
	k := argInt(args, "k", 5)
	if k < 1 {
		k = 1
	}
	if k > maxFetchCount {
		k = maxFetchCount
	}
	from := argString(args, "from")

	msgs, err := deps.Mail.Fetch(ctx, k, from)
	if err != nil {
		return errResult(tool, "fetching emails: %v", err), nil
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"count":  len(msgs),
			"emails": msgs,
		},
	}, nil
}

func executeEmailSend(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Mail == nil {
		return errResult(tool, "mail transport is not configured"), nil
	}
	to := argString(args, "to")
	subject := argString(args, "subject")
	body := argString(args, "body")
	if to == "" || subject == "" || body == "" {
		return errResult(tool, "'to', 'subject' and 'body' are all required"), nil
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return errResult(tool, "invalid recipient address %q", to), nil
	}

	if err := deps.Mail.Send(ctx, to, subject, body); err != nil {
		return errResult(tool, "sending email: %v", err), nil
	}
	return contractx.ToolResult{
		Tool:   tool,
		Result: fmt.Sprintf("email sent to %s with subject %q", to, subject),
	}, nil
}
