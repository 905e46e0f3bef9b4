package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/orbita/agent/contract"
)

// LLMExtractor asks a chat model for durable facts as a JSON array. Facts with
// unknown sections or empty keys are dropped rather than failing the turn.
type LLMExtractor struct {
	client *openaisdk.Client
	model  string
	prompt string
}

func NewLLMExtractor(client *openaisdk.Client, model, prompt string) (*LLMExtractor, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: extractor model is required", contractx.ErrValidation)
	}
	return &LLMExtractor{
		client: client,
		model:  strings.TrimSpace(model),
		prompt: strings.TrimSpace(prompt),
	}, nil
}

func (e *LLMExtractor) Extract(ctx context.Context, userMessage string) ([]Fact, error) {
	resp, err := e.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(e.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(e.prompt),
			openaisdk.UserMessage(userMessage),
		},
		Temperature: openaisdk.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: extract facts: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty extractor response", contractx.ErrSchemaViolation)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" || content == "[]" {
		return nil, nil
	}

	var raw []Fact
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: decode extractor response: %v", contractx.ErrSchemaViolation, err)
	}

	facts := raw[:0]
	for _, f := range raw {
		if !f.Section.Valid() || strings.TrimSpace(f.Key) == "" {
			continue
		}
		facts = append(facts, f)
	}
	return facts, nil
}
