package contract

import (
	"context"
	"time"
)

// Classifier maps a user message to candidate domains. Implementations may be
// model-backed and non-deterministic; the router's selection policy over the
// returned labels is deterministic.
type Classifier interface {
	Classify(ctx context.Context, userMessage string, history []Turn, memoryContext string) ([]Label, error)
}

// CapabilityAgent is a stateless task executor for one domain. All persisted
// personalization flows through the memory profile, never agent-local state.
type CapabilityAgent interface {
	Handle(ctx context.Context, req AgentRequest) (AgentResult, error)
}

type Registry interface {
	Email() CapabilityAgent
	Calendar() CapabilityAgent
	Budget() CapabilityAgent
}

// Completer produces the manager's direct conversational reply when no
// capability agent is selected.
type Completer interface {
	Complete(ctx context.Context, req AgentRequest) (string, error)
}

// MailTransport is the email I/O edge (IMAP read, SMTP send).
type MailTransport interface {
	Fetch(ctx context.Context, k int, from string) ([]EmailMessage, error)
	Send(ctx context.Context, to, subject, body string) error
}

// CalendarAPI is the calendar I/O edge, CRUD over events.
type CalendarAPI interface {
	Events(ctx context.Context, timeMin, timeMax time.Time, maxResults int) ([]CalendarEvent, error)
	CreateEvent(ctx context.Context, in EventInput) (CalendarEvent, error)
	UpdateEvent(ctx context.Context, id string, in EventInput) (CalendarEvent, error)
	DeleteEvent(ctx context.Context, id string) error
}

// BudgetAPI is the payment-provider edge used by the budget agent.
type BudgetAPI interface {
	Balance(ctx context.Context, accountNumber string) (float64, error)
}
