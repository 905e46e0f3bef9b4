package capability

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/orbita/agent/contract"
	llmx "github.com/tanpawarit/orbita/agent/llm"
	promptx "github.com/tanpawarit/orbita/agent/prompt"
	toolx "github.com/tanpawarit/orbita/agent/tool"
)

type registryImpl struct {
	email    contractx.CapabilityAgent
	calendar contractx.CapabilityAgent
	budget   contractx.CapabilityAgent
}

func (r *registryImpl) Email() contractx.CapabilityAgent {
	return r.email
}

func (r *registryImpl) Calendar() contractx.CapabilityAgent {
	return r.calendar
}

func (r *registryImpl) Budget() contractx.CapabilityAgent {
	return r.budget
}

// NewRegistry builds the three capability agents, each on its own model
// settings. All agents share the external client deps.
func NewRegistry(ctx context.Context, cfg llmx.Config, deps toolx.Deps) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	emailModelCfg := cfg.OpenRouterFor(contractx.AgentTypeEmail)
	emailModel, err := emailModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create email model: %v", contractx.ErrModelInvoke, err)
	}
	calendarModelCfg := cfg.OpenRouterFor(contractx.AgentTypeCalendar)
	calendarModel, err := calendarModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create calendar model: %v", contractx.ErrModelInvoke, err)
	}
	budgetModelCfg := cfg.OpenRouterFor(contractx.AgentTypeBudget)
	budgetModel, err := budgetModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create budget model: %v", contractx.ErrModelInvoke, err)
	}

	email, err := newAgent(ctx, contractx.AgentTypeEmail, emailModel, prompts.Email, deps)
	if err != nil {
		return nil, err
	}
	calendar, err := newAgent(ctx, contractx.AgentTypeCalendar, calendarModel, prompts.Calendar, deps)
	if err != nil {
		return nil, err
	}
	budget, err := newAgent(ctx, contractx.AgentTypeBudget, budgetModel, prompts.Budget, deps)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		email:    email,
		calendar: calendar,
		budget:   budget,
	}, nil
}
