package tool

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

func executeBudgetBalance(ctx context.Context, deps Deps, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Budget == nil {
		return errResult(tool, "budget client is not configured"), nil
	}
	account := argString(args, "account_number")
	if account == "" {
		return errResult(tool, "'account_number' is required"), nil
	}

	balance, err := deps.Budget.Balance(ctx, account)
	if err != nil {
		return errResult(tool, "fetching balance: %v", err), nil
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"account_number": account,
			"balance":        balance,
			"formatted":      fmt.Sprintf("%.2f", balance),
		},
	}, nil
}
