// Command kbextract exports the product master data from MongoDB into a
// knowledge-base JSON file, then audits the result. The exported file is
// what the server and the assistant load at startup.
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/bmc-uruguay/panelin-server/internal/catalog/kbfile"
	"github.com/bmc-uruguay/panelin-server/internal/ingest"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
	mongox "github.com/bmc-uruguay/panelin-server/pkg/mongo"
)

type config struct {
	Mongo mongox.Config `envconfig:"MONGO"`
	Out   string        `envconfig:"KB_OUT" default:"kb/products.json"`
}

func main() {
	_ = godotenv.Load()
	logx.Init()

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := cfg.Mongo.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	doc, err := ingest.NewExtractor(client, cfg.Mongo.Database).Extract(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("extraction failed")
	}

	report := kbfile.Evaluate(doc, time.Now().UTC())
	for _, f := range report.Findings {
		ev := logx.Warn()
		if f.Severity == kbfile.SeverityError {
			ev = logx.Error()
		}
		ev.Str("code", f.Code).Str("sku", f.SKU).Msg(f.Message)
	}
	if report.HasErrors() {
		logx.Error().Int("errors", report.Errors).Msg("kb document failed evaluation; not writing")
		os.Exit(1)
	}

	if err := ingest.WriteDocument(doc, cfg.Out); err != nil {
		logx.Fatal().Err(err).Msg("writing kb document failed")
	}

	logx.Info().Str("path", cfg.Out).Int("score", report.Score).Msg("kb export done")
}
