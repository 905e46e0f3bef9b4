// Package capability implements the task agents the manager dispatches to.
// Each agent runs the same three-step turn: plan tool calls, execute them,
// then compose a reply over the results. Tool failures stay inside their
// result entry; only model failures abort the turn.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/orbita/agent/contract"
	llmx "github.com/tanpawarit/orbita/agent/llm"
	toolx "github.com/tanpawarit/orbita/agent/tool"
)

const historyWindow = 6

type agentImpl struct {
	agentType      contractx.AgentType
	planRunner     compose.Runnable[map[string]any, *schema.Message]
	finalizeRunner compose.Runnable[map[string]any, agentLLMOutput]
	execute        toolx.Executor
	allowedTools   map[string]struct{}
	clock          func() time.Time
}

type agentLLMOutput struct {
	Reply string `json:"reply"`
}

func newAgent(
	ctx context.Context,
	agentType contractx.AgentType,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	deps toolx.Deps,
) (*agentImpl, error) {
	infos, execute := toolx.BuildForAgent(agentType, deps)
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}

	planRunner, err := llmx.MessageRunner(ctx, toolModel, systemPrompt,
		fmt.Sprintf("%s.plan_graph", agentType))
	if err != nil {
		return nil, fmt.Errorf("%w: compile plan graph for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}
	finalizeRunner, err := llmx.StructuredRunner[agentLLMOutput](ctx, chatModel, systemPrompt,
		fmt.Sprintf("%s.finalize_graph", agentType))
	if err != nil {
		return nil, fmt.Errorf("%w: compile finalize graph for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}

	allowed := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		if info == nil || strings.TrimSpace(info.Name) == "" {
			continue
		}
		allowed[info.Name] = struct{}{}
	}

	return &agentImpl{
		agentType:      agentType,
		planRunner:     planRunner,
		finalizeRunner: finalizeRunner,
		execute:        execute,
		allowedTools:   allowed,
		clock:          deps.Now,
	}, nil
}

func (a *agentImpl) now() time.Time {
	if a.clock != nil {
		return a.clock()
	}
	return time.Now()
}

func (a *agentImpl) Handle(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return contractx.AgentResult{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	planned, directReply, err := a.plan(ctx, req)
	if err != nil {
		return contractx.AgentResult{}, err
	}
	if len(planned) == 0 {
		return contractx.AgentResult{Reply: directReply}, nil
	}

	results := make([]contractx.ToolResult, 0, len(planned))
	var sideEffects []contractx.SideEffect
	for _, tr := range planned {
		res := a.executeOne(ctx, tr)
		results = append(results, res)
		if se, ok := sideEffectFor(tr.Tool, res); ok {
			sideEffects = append(sideEffects, se)
		}
	}

	reply, err := a.finalize(ctx, req, results)
	if err != nil {
		return contractx.AgentResult{}, err
	}
	return contractx.AgentResult{
		Reply:       reply,
		SideEffects: sideEffects,
	}, nil
}

// plan asks the model which tools to call. A plain-text answer with no tool
// calls is a valid plan: the agent replies without touching any backend.
func (a *agentImpl) plan(ctx context.Context, req contractx.AgentRequest) ([]contractx.ToolRequest, string, error) {
	payload := map[string]any{
		"mode":           "plan",
		"user_message":   req.UserMessage,
		"memory_context": req.MemoryContext,
		"history":        summarizeHistory(req.History),
		"now":            a.now().Format(time.RFC3339),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: marshal plan payload: %v", contractx.ErrValidation, err)
	}

	msg, err := a.planRunner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return nil, "", fmt.Errorf("%w: plan invoke for agent=%s: %v", contractx.ErrModelInvoke, a.agentType, err)
	}
	if msg == nil {
		return nil, "", fmt.Errorf("%w: empty plan response", contractx.ErrSchemaViolation)
	}

	requests, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return nil, "", err
	}
	if len(requests) == 0 {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			return nil, "", fmt.Errorf("%w: plan produced neither tools nor a reply", contractx.ErrSchemaViolation)
		}
		return nil, content, nil
	}
	return requests, "", nil
}

// executeOne never returns an error: execution failures ride inside the
// ToolResult so the remaining calls still run.
func (a *agentImpl) executeOne(ctx context.Context, tr contractx.ToolRequest) contractx.ToolResult {
	if _, ok := a.allowedTools[tr.Tool]; !ok {
		return contractx.ToolResult{
			Tool:  tr.Tool,
			Error: fmt.Sprintf("tool=%s is not allowed for agent=%s", tr.Tool, a.agentType),
		}
	}
	res, err := a.execute(ctx, tr.Tool, tr.Args)
	if err != nil {
		return contractx.ToolResult{Tool: tr.Tool, Error: err.Error()}
	}
	return res
}

func (a *agentImpl) finalize(ctx context.Context, req contractx.AgentRequest, results []contractx.ToolResult) (string, error) {
	payload := map[string]any{
		"mode":           "finalize",
		"user_message":   req.UserMessage,
		"memory_context": req.MemoryContext,
		"tool_results":   results,
		"now":            a.now().Format(time.RFC3339),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal finalize payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.finalizeRunner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return "", fmt.Errorf("%w: finalize invoke for agent=%s: %v", contractx.ErrModelInvoke, a.agentType, err)
	}
	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		return "", fmt.Errorf("%w: finalize reply is empty", contractx.ErrSchemaViolation)
	}
	return reply, nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
			}
		}
		reqs = append(reqs, contractx.ToolRequest{Tool: name, Args: args})
	}
	return reqs, nil
}

// sideEffectFor records externally visible mutations so the manager can echo
// them. Read-only tools produce none.
func sideEffectFor(tool string, res contractx.ToolResult) (contractx.SideEffect, bool) {
	if res.Error != "" {
		return contractx.SideEffect{}, false
	}
	switch tool {
	case toolx.ToolEmailSend:
		detail, _ := res.Result.(string)
		return contractx.SideEffect{Kind: "email_sent", Detail: detail}, true
	case toolx.ToolCalendarSchedule:
		if m, ok := res.Result.(map[string]any); ok {
			if scheduled, _ := m["scheduled"].(bool); scheduled {
				return contractx.SideEffect{Kind: "event_created", Detail: describeEvent(m["event"])}, true
			}
		}
		return contractx.SideEffect{}, false
	case toolx.ToolCalendarReschedule:
		if m, ok := res.Result.(map[string]any); ok {
			if moved, _ := m["rescheduled"].(bool); moved {
				return contractx.SideEffect{Kind: "event_updated", Detail: describeEvent(m["event"])}, true
			}
		}
		return contractx.SideEffect{}, false
	case toolx.ToolCalendarCancel:
		if m, ok := res.Result.(map[string]any); ok {
			if cancelled, _ := m["cancelled"].(bool); cancelled {
				id, _ := m["event_id"].(string)
				return contractx.SideEffect{Kind: "event_cancelled", Detail: id}, true
			}
		}
		return contractx.SideEffect{}, false
	default:
		return contractx.SideEffect{}, false
	}
}

func describeEvent(v any) string {
	ev, ok := v.(contractx.CalendarEvent)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s at %s", ev.Summary, ev.Start.Format("2006-01-02 15:04"))
}

func summarizeHistory(history []contractx.Turn) []map[string]string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
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
