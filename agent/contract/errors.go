package contract

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")

	// ErrRoutingAmbiguous: no confident domain match. Recovered locally by
	// defaulting to RouteManager; never escapes a turn.
	ErrRoutingAmbiguous = errors.New("routing ambiguous")

	// ErrMemoryUnavailable: memory store read/write failed. The turn proceeds
	// with whatever profile is available.
	ErrMemoryUnavailable = errors.New("memory store unavailable")

	// ErrAgentExecution: a capability agent's external call failed. Surfaced
	// to the user as a polite failure message; the turn still completes.
	ErrAgentExecution = errors.New("agent execution failed")

	// ErrBackendUnavailable: the LLM backend itself is unreachable. The only
	// error kind fatal to a turn.
	ErrBackendUnavailable = errors.New("llm backend unreachable")
)
