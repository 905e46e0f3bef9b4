package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/orbita/agent/contract"
	llmx "github.com/tanpawarit/orbita/agent/llm"
)

const historyWindow = 6

type classifierLLMOutput struct {
	Labels []struct {
		Domain     string  `json:"domain"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
}

// LLMClassifier asks a chat model which domains a message belongs to. The
// model sees the message, a short history window, and the rendered memory
// context; it answers with labeled confidences.
type LLMClassifier struct {
	runner compose.Runnable[map[string]any, classifierLLMOutput]
}

func NewLLMClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*LLMClassifier, error) {
	runner, err := llmx.StructuredRunner[classifierLLMOutput](ctx, chatModel, systemPrompt, "router.classifier_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &LLMClassifier{runner: runner}, nil
}

func (c *LLMClassifier) Classify(
	ctx context.Context,
	userMessage string,
	history []contractx.Turn,
	memoryContext string,
) ([]contractx.Label, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"user_message":   userMessage,
		"memory_context": memoryContext,
		"history":        summarizeHistory(history),
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	labels := make([]contractx.Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		domain := contractx.RouteDecision(strings.ToLower(strings.TrimSpace(l.Domain)))
		if !domain.Valid() {
			continue
		}
		labels = append(labels, contractx.Label{Domain: domain, Confidence: l.Confidence})
	}
	return labels, nil
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
