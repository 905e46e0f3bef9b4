package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	capabilityx "github.com/tanpawarit/orbita/agent/agents/capability"
	managerx "github.com/tanpawarit/orbita/agent/agents/manager"
	contractx "github.com/tanpawarit/orbita/agent/contract"
	llmx "github.com/tanpawarit/orbita/agent/llm"
	memoryx "github.com/tanpawarit/orbita/agent/memory"
	promptx "github.com/tanpawarit/orbita/agent/prompt"
	routerx "github.com/tanpawarit/orbita/agent/router"
	statex "github.com/tanpawarit/orbita/agent/state"
	toolx "github.com/tanpawarit/orbita/agent/tool"
	configx "github.com/tanpawarit/orbita/pkg/config"
	gcalendarx "github.com/tanpawarit/orbita/pkg/gcalendar"
	_ "github.com/tanpawarit/orbita/pkg/logger/autoload"
	mailerx "github.com/tanpawarit/orbita/pkg/mailer"
	openrouterx "github.com/tanpawarit/orbita/pkg/openrouter"
	sepayx "github.com/tanpawarit/orbita/pkg/sepay"
	telemetryx "github.com/tanpawarit/orbita/pkg/telemetry"
)

const serviceVersion = "0.1.0"

type AppConfig struct {
	UserID              string `envconfig:"USER_ID" split_words:"true"`
	ConversationBackend string `split_words:"true" default:"memory"`
	MemoryBackend       string `split_words:"true" default:"sqlite"`
	MemoryPath          string `split_words:"true" default:"orbita_memory.db"`
	Timezone            string `split_words:"true" default:"Local"`
	Extractor           string `split_words:"true" default:"keyword"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("ORBITA")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	telemetryCfg := configx.MustNew[telemetryx.Config]("OTEL")
	shutdown, err := telemetryx.Init("orbita", serviceVersion, *telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	mgr := buildManager(ctx, appCfg, *llmCfg)
	defer mgr.Drain()

	userID := strings.TrimSpace(appCfg.UserID)
	if userID == "" {
		userID = uuid.NewString()
	}

	fmt.Println("orbita ready. Type a message, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			break
		}

		reply, err := mgr.HandleTurn(ctx, userID, text)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("turn failed")
			fmt.Println("! the assistant is unavailable right now, please try again")
			continue
		}
		fmt.Println(reply)
	}
}

func buildManager(ctx context.Context, appCfg *AppConfig, llmCfg llmx.Config) *managerx.Manager {
	prompts := promptx.LoadPromptSet()

	routerModelCfg := llmCfg.OpenRouterForRouter()
	routerModel, err := routerModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create router model")
	}
	classifier, err := routerx.NewLLMClassifier(ctx, routerModel, prompts.Router)
	if err != nil {
		log.Fatal().Err(err).Msg("build classifier")
	}
	rt, err := routerx.New(classifier)
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	registry, err := capabilityx.NewRegistry(ctx, llmCfg, buildToolDeps(appCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("build agent registry")
	}

	managerModelCfg := llmCfg.OpenRouterFor(contractx.AgentTypeManager)
	managerModel, err := managerModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create manager model")
	}
	direct, err := managerx.NewDirectCompleter(ctx, managerModel)
	if err != nil {
		log.Fatal().Err(err).Msg("build direct completer")
	}

	mgr, err := managerx.New(
		buildConversationStore(appCfg),
		buildMemoryStore(ctx, appCfg),
		rt,
		registry,
		direct,
		buildExtractor(llmCfg, prompts.Memory, appCfg.Extractor),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build manager")
	}
	return mgr
}

func buildConversationStore(appCfg *AppConfig) statex.Store {
	switch appCfg.ConversationBackend {
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH")
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build upstash conversation store")
		}
		return store
	case "", "memory":
		return statex.NewInMemoryStore()
	default:
		log.Fatal().Str("backend", appCfg.ConversationBackend).Msg("unknown conversation backend")
		return nil
	}
}

func buildMemoryStore(ctx context.Context, appCfg *AppConfig) memoryx.Store {
	switch appCfg.MemoryBackend {
	case "postgres":
		cfg := configx.MustNew[memoryx.PostgresConfig]("POSTGRES")
		store, err := memoryx.NewPostgresStore(ctx, *cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build postgres memory store")
		}
		return store
	case "", "sqlite":
		store, err := memoryx.OpenSQLiteStore(appCfg.MemoryPath)
		if err != nil {
			log.Fatal().Err(err).Msg("build sqlite memory store")
		}
		return store
	case "memory":
		return memoryx.NewInMemoryStore()
	default:
		log.Fatal().Str("backend", appCfg.MemoryBackend).Msg("unknown memory backend")
		return nil
	}
}

// buildToolDeps wires whichever external clients are configured. A missing
// client leaves its tools reporting "not configured" instead of blocking
// startup.
func buildToolDeps(appCfg *AppConfig) toolx.Deps {
	deps := toolx.Deps{Now: time.Now}

	if loc, err := time.LoadLocation(appCfg.Timezone); err == nil {
		deps.Location = loc
	} else {
		log.Warn().Str("timezone", appCfg.Timezone).Msg("unknown timezone, using local")
	}

	if cfg, err := configx.New[mailerx.Config]("MAIL"); err == nil {
		if client, err := mailerx.NewClient(*cfg); err == nil {
			deps.Mail = client
		} else {
			log.Warn().Err(err).Msg("mail transport misconfigured, email tools disabled")
		}
	} else {
		log.Info().Msg("mail transport not configured")
	}

	if cfg, err := configx.New[gcalendarx.Config]("GCAL"); err == nil {
		if client, err := gcalendarx.NewClient(*cfg); err == nil {
			deps.Calendar = client
		} else {
			log.Warn().Err(err).Msg("calendar client misconfigured, calendar tools disabled")
		}
	} else {
		log.Info().Msg("calendar client not configured")
	}

	if cfg, err := configx.New[sepayx.Config]("SEPAY"); err == nil {
		if client, err := sepayx.NewClient(*cfg); err == nil {
			deps.Budget = client
		} else {
			log.Warn().Err(err).Msg("budget client misconfigured, budget tools disabled")
		}
	} else {
		log.Info().Msg("budget client not configured")
	}

	return deps
}

func buildExtractor(llmCfg llmx.Config, memoryPrompt, mode string) memoryx.Extractor {
	if mode != "llm" {
		return memoryx.KeywordExtractor{}
	}

	client := openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.AgentTypeManager))
	if client == nil {
		log.Warn().Msg("llm extractor requested without api key, using keyword extractor")
		return memoryx.KeywordExtractor{}
	}
	extractor, err := memoryx.NewLLMExtractor(client, llmCfg.Model, memoryPrompt)
	if err != nil {
		log.Warn().Err(err).Msg("llm extractor unavailable, using keyword extractor")
		return memoryx.KeywordExtractor{}
	}
	return extractor
}
