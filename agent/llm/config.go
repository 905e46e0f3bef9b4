package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/orbita/agent/contract"
	openrouterx "github.com/tanpawarit/orbita/pkg/openrouter"
)

// Config carries the shared LLM settings plus per-agent model overrides.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel   string `envconfig:"ROUTER_MODEL" split_words:"true"`
	ManagerModel  string `envconfig:"MANAGER_MODEL" split_words:"true"`
	EmailModel    string `envconfig:"EMAIL_MODEL" split_words:"true"`
	CalendarModel string `envconfig:"CALENDAR_MODEL" split_words:"true"`
	BudgetModel   string `envconfig:"BUDGET_MODEL" split_words:"true"`

	RouterTemperature   float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`
	ManagerTemperature  float32 `envconfig:"MANAGER_TEMPERATURE" split_words:"true" default:"-1"`
	EmailTemperature    float32 `envconfig:"EMAIL_TEMPERATURE" split_words:"true" default:"-1"`
	CalendarTemperature float32 `envconfig:"CALENDAR_TEMPERATURE" split_words:"true" default:"-1"`
	BudgetTemperature   float32 `envconfig:"BUDGET_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model settings for one agent, falling back to the
// shared defaults. The router runs at temperature 0 unless overridden: its
// classification feeds a selection policy that expects stable output.
func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, t float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch agentType {
	case contractx.AgentTypeManager:
		override(c.ManagerModel, c.ManagerTemperature)
	case contractx.AgentTypeEmail:
		override(c.EmailModel, c.EmailTemperature)
	case contractx.AgentTypeCalendar:
		override(c.CalendarModel, c.CalendarTemperature)
	case contractx.AgentTypeBudget:
		override(c.BudgetModel, c.BudgetTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// OpenRouterForRouter resolves the classifier model settings.
func (c Config) OpenRouterForRouter() openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.RouterModel); v != "" {
		modelName = v
	}
	temp := c.RouterTemperature
	if temp < 0 {
		temp = 0
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
