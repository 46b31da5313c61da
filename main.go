// Panelin server: quotation engine, product catalog and conversational
// sales assistant for BMC isopanel distribution.
package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/bmc-uruguay/panelin-server/internal/agent/graph"
	"github.com/bmc-uruguay/panelin-server/internal/agent/model"
	"github.com/bmc-uruguay/panelin-server/internal/agent/repo"
	"github.com/bmc-uruguay/panelin-server/internal/api"
	"github.com/bmc-uruguay/panelin-server/internal/catalog"
	"github.com/bmc-uruguay/panelin-server/internal/catalog/kbfile"
	"github.com/bmc-uruguay/panelin-server/internal/core"
	"github.com/bmc-uruguay/panelin-server/internal/quote"
	"github.com/bmc-uruguay/panelin-server/kb"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
	redisx "github.com/bmc-uruguay/panelin-server/pkg/redis"
)

type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`

	// KBDir overrides the embedded knowledge base when set.
	KBDir string `envconfig:"KB_DIR"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`

	Redis redisx.Config `envconfig:"REDIS"`

	NLUModel       model.NLUModelConfig
	ResponseModel  model.ResponseModelConfig
	ResponsePrompt model.ResponsePromptConfig
	Conversation   model.ConversationConfig
}

func main() {
	if err := godotenv.Load(); err != nil {
		logx.Warn().Msg("No .env file found, using system environment variables")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Invalid configuration")
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	doc, err := loadKB(cfg.KBDir)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to load knowledge base")
	}

	report := kbfile.Evaluate(doc, time.Now().UTC())
	if report.HasErrors() {
		for _, f := range report.Findings {
			if f.Severity == kbfile.SeverityError {
				logx.Error().Str("code", f.Code).Str("sku", f.SKU).Msg(f.Message)
			}
		}
		logx.Fatal().Int("errors", report.Errors).Msg("Knowledge base failed evaluation")
	}
	logx.Info().
		Int("panels", len(doc.Panels)).
		Int("accessories", len(doc.Accessories)).
		Int("score", report.Score).
		Msg("Knowledge base loaded")

	cat, err := doc.Build()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build catalog")
	}
	engine := quote.NewEngine(cat)

	runner := buildRunner(cfg, cat, engine)

	server := api.New(env, cat, engine, runner)
	if err := server.Run(":" + cfg.HTTPPort); err != nil {
		logx.Fatal().Err(err).Msg("HTTP server failed")
	}
}

func loadKB(dir string) (*kbfile.Document, error) {
	if dir != "" {
		logx.Info().Str("dir", dir).Msg("Loading knowledge base from directory")
		return kbfile.LoadDir(dir)
	}
	return kbfile.LoadFS(kb.Files)
}

// buildRunner assembles the conversation graph. Without a Gemini key the
// server still runs quote and catalog endpoints, only chat is disabled.
func buildRunner(cfg AppConfig, cat *catalog.Catalog, engine *quote.Engine) graph.Runner {
	if cfg.GeminiAPIKey == "" {
		logx.Warn().Msg("GEMINI_API_KEY not set, chat endpoint disabled")
		return nil
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("Redis connection failed")
	}

	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("ttl", cfg.Conversation.TTL).Msg("Invalid conversation TTL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runner, err := graph.BuildResponseGraph(ctx, graph.Config{
		APIKey:           cfg.GeminiAPIKey,
		BaseURL:          cfg.GeminiBaseURL,
		NLUModel:         cfg.NLUModel,
		ResponseModel:    cfg.ResponseModel,
		ResponsePrompt:   cfg.ResponsePrompt,
		Conversation:     cfg.Conversation,
		ConversationRepo: repo.NewRedisConversationRepository(rdb, ttl),
		Catalog:          cat,
		Engine:           engine,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build response graph")
	}

	return runner
}
