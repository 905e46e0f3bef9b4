package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/orbita/agent/contract"
	llmx "github.com/tanpawarit/orbita/agent/llm"
	promptx "github.com/tanpawarit/orbita/agent/prompt"
	toolx "github.com/tanpawarit/orbita/agent/tool"
)

const directHistoryWindow = 6

// DirectCompleter answers manager-routed turns conversationally. It carries
// the shared utility tools (arithmetic) but no domain backends.
type DirectCompleter struct {
	runner  compose.Runnable[map[string]any, *schema.Message]
	execute toolx.Executor
}

func NewDirectCompleter(ctx context.Context, chatModel einomodel.ToolCallingChatModel) (*DirectCompleter, error) {
	prompts := promptx.LoadPromptSet()

	infos, execute := toolx.BuildForAgent(contractx.AgentTypeManager, toolx.Deps{})
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind manager tools: %v", contractx.ErrModelInvoke, err)
	}

	runner, err := llmx.MessageRunner(ctx, toolModel, prompts.Manager, "manager.direct_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile direct graph: %v", contractx.ErrModelInvoke, err)
	}

	return &DirectCompleter{runner: runner, execute: execute}, nil
}

func (d *DirectCompleter) Complete(ctx context.Context, req contractx.AgentRequest) (string, error) {
	msg, err := d.invoke(ctx, map[string]any{
		"mode":           "reply",
		"user_message":   req.UserMessage,
		"memory_context": req.MemoryContext,
		"history":        trimHistory(req.History),
	})
	if err != nil {
		return "", err
	}

	// One round of tool use, then a final pass over the results.
	if len(msg.ToolCalls) > 0 {
		results := make([]contractx.ToolResult, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			results = append(results, d.executeCall(ctx, call))
		}
		msg, err = d.invoke(ctx, map[string]any{
			"mode":           "reply_with_tool_results",
			"user_message":   req.UserMessage,
			"memory_context": req.MemoryContext,
			"tool_results":   results,
		})
		if err != nil {
			return "", err
		}
	}

	reply := strings.TrimSpace(msg.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: empty direct reply", contractx.ErrSchemaViolation)
	}
	return reply, nil
}

func (d *DirectCompleter) invoke(ctx context.Context, payload map[string]any) (*schema.Message, error) {
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal direct payload: %v", contractx.ErrValidation, err)
	}
	msg, err := d.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return nil, fmt.Errorf("%w: direct invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty direct response", contractx.ErrSchemaViolation)
	}
	return msg, nil
}

func (d *DirectCompleter) executeCall(ctx context.Context, call schema.ToolCall) contractx.ToolResult {
	name := strings.TrimSpace(call.Function.Name)
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return contractx.ToolResult{Tool: name, Error: fmt.Sprintf("invalid tool args: %v", err)}
		}
	}
	res, err := d.execute(ctx, name, args)
	if err != nil {
		return contractx.ToolResult{Tool: name, Error: err.Error()}
	}
	return res
}

func trimHistory(history []contractx.Turn) []map[string]string {
	if len(history) > directHistoryWindow {
		history = history[len(history)-directHistoryWindow:]
	}
	out := make([]map[string]string, 0, len(history))
	for _, t := range history {
		out = append(out, map[string]string{
			"role":    string(t.Role),
			"content": t.Content,
		})
	}
	return out
}
