// metazone populates table and column business metadata in AWS DataZone by
// prompting a generative AI model and writing the results back as asset
// revisions.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metazone-io/metazone/pkg/apperrors"
	"github.com/metazone-io/metazone/pkg/catalog"
	"github.com/metazone-io/metazone/pkg/config"
	"github.com/metazone-io/metazone/pkg/llm"
	"github.com/metazone-io/metazone/pkg/retry"
	"github.com/metazone-io/metazone/pkg/services"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes. Column-scoped failures after retries end the run with a
// partial or total failure code; configuration problems never reach the
// pipeline.
const (
	exitOK             = 0
	exitTotalFailure   = 1
	exitConfigError    = 2
	exitPartialFailure = 3
)

// exitError carries an exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitTotalFailure)
	}
}

func newRootCmd() *cobra.Command {
	var (
		domainID    string
		assetID     string
		description string
		concurrency int
		dryRun      bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:           "metazone",
		Short:         "Generate business metadata for a DataZone asset with an AI model",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)
			defer logger.Sync() //nolint:errcheck

			cfg, err := config.Load(Version)
			if err != nil {
				logger.Error("Configuration failed", zap.Error(err))
				return &exitError{code: exitConfigError, err: err}
			}

			// Flags override file/environment configuration.
			if domainID != "" {
				cfg.Catalog.DomainID = domainID
			}
			if assetID != "" {
				cfg.Catalog.AssetID = assetID
			}
			if description != "" {
				cfg.SchemaDescriptionPath = description
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Concurrency = concurrency
			}

			if err := cfg.Validate(); err != nil {
				logger.Error("Configuration invalid", zap.Error(err))
				return &exitError{code: exitConfigError, err: err}
			}

			return run(cmd, cfg, dryRun, logger)
		},
	}

	cmd.Flags().StringVar(&domainID, "domain", "", "catalog domain identifier (overrides DATAZONE_DOMAIN_ID)")
	cmd.Flags().StringVar(&assetID, "asset", "", "catalog asset identifier (overrides DATAZONE_ASSET_ID)")
	cmd.Flags().StringVar(&description, "description", "", "path to the schema description file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum concurrent model calls (1 = sequential)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "generate and report metadata without writing to the catalog")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(cmd *cobra.Command, cfg *config.Config, dryRun bool, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schemaDescription, err := config.LoadSchemaDescription(cfg.SchemaDescriptionPath)
	if err != nil {
		logger.Error("Schema description unavailable", zap.Error(err))
		return &exitError{code: exitConfigError, err: err}
	}

	catalogClient, err := catalog.NewDataZoneClient(ctx, &catalog.DataZoneConfig{
		Region:          cfg.Catalog.Region,
		DomainID:        cfg.Catalog.DomainID,
		AccessKeyID:     cfg.Credentials.AccessKeyID,
		SecretAccessKey: cfg.Credentials.SecretAccessKey,
	}, logger)
	if err != nil {
		logger.Error("Catalog client failed", zap.Error(err))
		return &exitError{code: exitConfigError, err: err}
	}

	llmClient, err := llm.NewClient(cfg.LLMConfig(), logger)
	if err != nil {
		logger.Error("AI client failed", zap.Error(err))
		return &exitError{code: exitConfigError, err: err}
	}

	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.Concurrency}, logger)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries

	svc := services.NewEnrichmentService(
		catalogClient,
		llmClient,
		pool,
		schemaDescription,
		cfg.AI.MaxContextChars,
		retryCfg,
		dryRun,
		logger,
	)

	result, err := svc.EnrichAsset(ctx, cfg.Catalog.DomainID, cfg.Catalog.AssetID)
	if err != nil {
		logger.Error("Run failed", zap.Error(err))
		if errors.Is(err, apperrors.ErrConfig) {
			return &exitError{code: exitConfigError, err: err}
		}
		return &exitError{code: exitTotalFailure, err: err}
	}

	report(cmd, result, dryRun)

	switch {
	case result.TotalFailure():
		return &exitError{code: exitTotalFailure, err: fmt.Errorf("no columns updated")}
	case result.PartialFailure():
		return &exitError{code: exitPartialFailure, err: fmt.Errorf("%d columns failed", len(result.ColumnsFailed))}
	default:
		return nil
	}
}

// report prints the per-column outcome to stdout.
func report(cmd *cobra.Command, result *services.EnrichResult, dryRun bool) {
	verb := "updated"
	if dryRun {
		verb = "generated (dry run)"
	}

	cmd.Printf("Asset %s: %d columns %s, %d failed\n",
		result.AssetID, len(result.ColumnsUpdated), verb, len(result.ColumnsFailed))

	for _, col := range result.ColumnsUpdated {
		cmd.Printf("  ok    %s\n", col)
	}
	for col, reason := range result.ColumnsFailed {
		cmd.Printf("  fail  %s: %s\n", col, reason)
	}
}

// newLogger builds the CLI logger. Debug level with --verbose, console
// encoding either way.
func newLogger(verbose bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	if verbose {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := logConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
