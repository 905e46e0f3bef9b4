package contract

import "time"

type AgentType string

const (
	AgentTypeManager  AgentType = "manager"
	AgentTypeEmail    AgentType = "email"
	AgentTypeCalendar AgentType = "calendar"
	AgentTypeBudget   AgentType = "budget"
)

// RouteDecision is the destination selected for one turn. Exactly one value
// per turn; MANAGER means the manager answers directly.
type RouteDecision string

const (
	RouteEmail    RouteDecision = "email"
	RouteCalendar RouteDecision = "calendar"
	RouteBudget   RouteDecision = "budget"
	RouteManager  RouteDecision = "manager"
)

func (d RouteDecision) Valid() bool {
	switch d {
	case RouteEmail, RouteCalendar, RouteBudget, RouteManager:
		return true
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Turn is one entry in a conversation. Turns are append-only within a pass and
// their slice order is the conversation order.
type Turn struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Label is one domain candidate produced by a classifier. Confidence is the
// classifier's own scale; the selection policy only compares it against a
// threshold, never across calls.
type Label struct {
	Domain     RouteDecision `json:"domain"`
	Confidence float64       `json:"confidence"`
}

type AgentRequest struct {
	UserMessage   string `json:"user_message"`
	History       []Turn `json:"history,omitempty"`
	MemoryContext string `json:"memory_context,omitempty"`
}

// SideEffect records an external action an agent performed (event created,
// email sent). Opaque to the manager: echoed into the reply, never interpreted.
type SideEffect struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type AgentResult struct {
	Reply       string       `json:"reply"`
	SideEffects []SideEffect `json:"side_effects,omitempty"`
	Err         string       `json:"error,omitempty"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

/* ------------------------- external client types ------------------------- */

type EmailMessage struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Status      string    `json:"status,omitempty"`
	Location    string    `json:"location,omitempty"`
	Attendees   int       `json:"attendees,omitempty"`
}

type EventInput struct {
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
}
