// Package tool defines the action surface each agent may invoke and the
// executor that carries those actions out against external clients. Every
// execution is independently failable: errors come back inside the ToolResult,
// never as a Go error, so one failed call cannot corrupt a turn.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/orbita/agent/contract"
)

const (
	ToolEmailFetch         = "email.fetch"
	ToolEmailSend          = "email.send"
	ToolCalendarEvents     = "calendar.events"
	ToolCalendarSchedule   = "calendar.schedule"
	ToolCalendarReschedule = "calendar.reschedule"
	ToolCalendarCancel     = "calendar.cancel"
	ToolCalendarFreeSlots  = "calendar.free_slots"
	ToolCalendarSummary    = "calendar.summary"
	ToolBudgetBalance      = "budget.balance"
	ToolMathEvaluate       = "math.evaluate"
)

// Deps are the external edges the executors call through.
type Deps struct {
	Mail     contractx.MailTransport
	Calendar contractx.CalendarAPI
	Budget   contractx.BudgetAPI
	Now      func() time.Time
	Location *time.Location
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) location() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.Local
}

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// BuildForAgent returns the tool catalog and executor for one agent type.
func BuildForAgent(agentType contractx.AgentType, deps Deps) ([]*schema.ToolInfo, Executor) {
	return infosForAgent(agentType), NewExecutor(agentType, deps)
}

func NewExecutor(agentType contractx.AgentType, deps Deps) Executor {
	fallback := DefaultExecutor(agentType)
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		switch tool {
		case ToolMathEvaluate:
			return executeMathTool(tool, args)
		case ToolEmailFetch:
			return executeEmailFetch(ctx, deps, tool, args)
		case ToolEmailSend:
			return executeEmailSend(ctx, deps, tool, args)
		case ToolCalendarEvents:
			return executeCalendarEvents(ctx, deps, tool, args)
		case ToolCalendarSchedule:
			return executeCalendarSchedule(ctx, deps, tool, args)
		case ToolCalendarReschedule:
			return executeCalendarReschedule(ctx, deps, tool, args)
		case ToolCalendarCancel:
			return executeCalendarCancel(ctx, deps, tool, args)
		case ToolCalendarFreeSlots:
			return executeCalendarFreeSlots(ctx, deps, tool, args)
		case ToolCalendarSummary:
			return executeCalendarSummary(ctx, deps, tool, args)
		case ToolBudgetBalance:
			return executeBudgetBalance(ctx, deps, tool, args)
		default:
			return fallback(ctx, tool, args)
		}
	}
}

// DefaultExecutor reports any unrecognized tool as unavailable for the agent.
func DefaultExecutor(agentType contractx.AgentType) Executor {
	return func(_ context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", tool, agentType),
		}, nil
	}
}

var mathToolInfo = &schema.ToolInfo{
	Name: ToolMathEvaluate,
	Desc: "Evaluate a mathematical expression.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"expression": {Type: schema.String, Desc: "Expression to evaluate", Required: true},
	}),
}

func infosForAgent(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeEmail:
		return []*schema.ToolInfo{
			{
				Name: ToolEmailFetch,
				Desc: "Read the latest k emails, optionally filtered by sender address.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"k":    {Type: schema.Number, Desc: "Number of emails to read", Required: true},
					"from": {Type: schema.String, Desc: "Sender address to filter by"},
				}),
			},
			{
				Name: ToolEmailSend,
				Desc: "Send an email to a specific address.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"to":      {Type: schema.String, Desc: "Recipient address", Required: true},
					"subject": {Type: schema.String, Desc: "Email subject", Required: true},
					"body":    {Type: schema.String, Desc: "Email body", Required: true},
				}),
			},
			mathToolInfo,
		}
	case contractx.AgentTypeCalendar:
		return []*schema.ToolInfo{
			{
				Name: ToolCalendarEvents,
				Desc: "Get calendar events for a period.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"period":      {Type: schema.String, Desc: "'today', 'week', or 'month'", Required: true},
					"max_results": {Type: schema.Number, Desc: "Maximum number of events"},
				}),
			},
			{
				Name: ToolCalendarSchedule,
				Desc: "Schedule a new calendar event, checking for conflicts first.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"title":            {Type: schema.String, Desc: "Event title", Required: true},
					"start":            {Type: schema.String, Desc: "Start time as YYYY-MM-DD HH:MM", Required: true},
					"duration_minutes": {Type: schema.Number, Desc: "Event duration in minutes"},
					"description":      {Type: schema.String, Desc: "Optional description"},
					"location":         {Type: schema.String, Desc: "Optional location"},
				}),
			},
			{
				Name: ToolCalendarReschedule,
				Desc: "Move an existing event to a new time, checking for conflicts first.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"event_id":         {Type: schema.String, Desc: "ID of the event to move", Required: true},
					"title":            {Type: schema.String, Desc: "Event title", Required: true},
					"start":            {Type: schema.String, Desc: "New start time as YYYY-MM-DD HH:MM", Required: true},
					"duration_minutes": {Type: schema.Number, Desc: "Event duration in minutes"},
				}),
			},
			{
				Name: ToolCalendarCancel,
				Desc: "Cancel an existing event.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"event_id": {Type: schema.String, Desc: "ID of the event to cancel", Required: true},
				}),
			},
			{
				Name: ToolCalendarFreeSlots,
				Desc: "Find free time slots on a specific date within work hours.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"date":             {Type: schema.String, Desc: "Date as YYYY-MM-DD", Required: true},
					"duration_minutes": {Type: schema.Number, Desc: "Minimum slot duration needed"},
				}),
			},
			{
				Name: ToolCalendarSummary,
				Desc: "Summarize calendar usage for a period.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"period": {Type: schema.String, Desc: "'today', 'week', or 'month'", Required: true},
				}),
			},
			mathToolInfo,
		}
	case contractx.AgentTypeBudget:
		return []*schema.ToolInfo{
			{
				Name: ToolBudgetBalance,
				Desc: "Get the accumulated budget for an account number.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"account_number": {Type: schema.String, Desc: "Bank account number", Required: true},
				}),
			},
			mathToolInfo,
		}
	case contractx.AgentTypeManager:
		// shared utilities only
		return []*schema.ToolInfo{mathToolInfo}
	default:
		return nil
	}
}
