// Command etl runs the Heart Disease batch pipeline: fetch the dataset from
// the UCI ML Repository, clean and validate it, and load it into the
// configured relational database. All configuration comes from environment
// variables; the process exits non-zero when the run fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"heartetl/internal/config"
	"heartetl/internal/extract"
	"heartetl/internal/logging"
	"heartetl/internal/metrics"
	"heartetl/internal/metrics/prompush"
	"heartetl/internal/pipeline"
	"heartetl/internal/schema"
	"heartetl/internal/storage"
	"heartetl/internal/transform"
	"heartetl/pkg/records"

	// register all backends with the storage factory.
	_ "heartetl/internal/storage/all"
)

func main() {
	os.Exit(run())
}

func run() int {
	validateOnly := flag.Bool("validate", false, "validate the configuration and exit")
	flag.Parse()

	cfg := config.FromEnv()
	logger := logging.Setup(cfg.LogLevel)

	hasError := false
	for _, iss := range config.Validate(cfg) {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		logger.Error("configuration is invalid")
		return 1
	}
	if *validateOnly {
		logger.Info("configuration is valid")
		return 0
	}

	spec := schema.HeartDisease()
	if cfg.DBTable != "" {
		spec.Table = cfg.DBTable
	}
	job := spec.Table

	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err := prompush.NewBackend(job, cfg.PushgatewayURL)
		if err != nil {
			logger.Warn("metrics backend init failed, using nop", "error", err)
		} else {
			logger.Info("metrics enabled", "backend", "pushgateway", "url", cfg.PushgatewayURL)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					logger.Warn("metrics flush failed", "error", err)
				}
			}()
		}
	default:
		logger.Debug("metrics disabled", "backend", cfg.MetricsBackend)
	}

	ctx := context.Background()

	repo, err := storage.Open(ctx, cfg.DBBackend, storage.Config{DSN: cfg.DSN()})
	if err != nil {
		logger.Error("storage connection failed", "backend", cfg.DBBackend, "error", err)
		return 1
	}
	defer repo.Close()

	client := extract.NewClient(extract.Config{BaseURL: cfg.SourceBaseURL}, logger)
	transformer := transform.New(spec, logger)
	loader := storage.NewLoader(repo, spec, cfg.BatchSize, logger)

	p := pipeline.New(job, pipeline.Stages{
		Extract: func(ctx context.Context) (*records.Table, error) {
			t, _, err := client.Extract(ctx, cfg.DatasetID)
			return t, err
		},
		Transform: func(t *records.Table) (*records.Table, *transform.Report, error) {
			return transformer.Transform(t, cfg.DatasetID)
		},
		Load: loader.Load,
	}, logger)

	if err := p.Run(ctx); err != nil {
		return 1
	}
	return 0
}
