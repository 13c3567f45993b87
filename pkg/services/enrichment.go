// Package services orchestrates the metadata generation pipeline: read the
// asset, generate metadata per column, parse, and write back.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metazone-io/metazone/pkg/apperrors"
	"github.com/metazone-io/metazone/pkg/catalog"
	"github.com/metazone-io/metazone/pkg/llm"
	"github.com/metazone-io/metazone/pkg/logging"
	"github.com/metazone-io/metazone/pkg/models"
	"github.com/metazone-io/metazone/pkg/prompts"
	"github.com/metazone-io/metazone/pkg/retry"
)

// EnrichmentService runs the pipeline for one asset. Generation fans out
// per column with bounded concurrency; the write phase starts only after
// every generation job has finished, so an interrupted run never leaves a
// partially written column.
type EnrichmentService struct {
	catalog           catalog.ReadWriter
	llmClient         llm.Client
	pool              *llm.WorkerPool
	schemaDescription string
	maxContextChars   int
	retryCfg          *retry.Config
	dryRun            bool
	logger            *zap.Logger
}

// EnrichResult reports the outcome of one run.
type EnrichResult struct {
	RunID          string            `json:"run_id"`
	AssetID        string            `json:"asset_id"`
	ColumnsUpdated []string          `json:"columns_updated"`
	ColumnsFailed  map[string]string `json:"columns_failed,omitempty"`
	DurationMs     int64             `json:"duration_ms"`
}

// PartialFailure reports whether some but not all columns succeeded.
func (r *EnrichResult) PartialFailure() bool {
	return len(r.ColumnsFailed) > 0 && len(r.ColumnsUpdated) > 0
}

// TotalFailure reports whether no column was updated despite columns being
// present.
func (r *EnrichResult) TotalFailure() bool {
	return len(r.ColumnsFailed) > 0 && len(r.ColumnsUpdated) == 0
}

// NewEnrichmentService creates the pipeline service.
func NewEnrichmentService(
	cat catalog.ReadWriter,
	llmClient llm.Client,
	pool *llm.WorkerPool,
	schemaDescription string,
	maxContextChars int,
	retryCfg *retry.Config,
	dryRun bool,
	logger *zap.Logger,
) *EnrichmentService {
	return &EnrichmentService{
		catalog:           cat,
		llmClient:         llmClient,
		pool:              pool,
		schemaDescription: schemaDescription,
		maxContextChars:   maxContextChars,
		retryCfg:          retryCfg,
		dryRun:            dryRun,
		logger:            logger.Named("enrichment"),
	}
}

// columnGeneration pairs a column with its generated metadata.
type columnGeneration struct {
	Column string
	Meta   models.ColumnMetadata
}

// EnrichAsset runs the full pipeline for one asset. Fatal errors (asset
// missing, auth failure, cancelled before the write phase) are returned;
// column-scoped failures are collected in the result.
func (s *EnrichmentService) EnrichAsset(ctx context.Context, domainID, assetID string) (*EnrichResult, error) {
	startTime := time.Now()
	runID := uuid.New().String()

	result := &EnrichResult{
		RunID:          runID,
		AssetID:        assetID,
		ColumnsUpdated: []string{},
		ColumnsFailed:  make(map[string]string),
	}

	logger := s.logger.With(
		zap.String("run_id", runID),
		zap.String("asset_id", assetID))

	asset, err := s.catalog.GetAsset(ctx, domainID, assetID)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}

	if len(asset.Columns) == 0 {
		logger.Warn("Asset has no columns")
		result.DurationMs = time.Since(startTime).Milliseconds()
		return result, nil
	}

	logger.Info("Starting metadata generation",
		zap.String("asset_name", asset.Name),
		zap.Int("column_count", len(asset.Columns)),
		zap.String("model", s.llmClient.Model()))

	builder := prompts.NewBuilder(asset.Name, s.schemaDescription, s.maxContextChars)

	generated, err := s.generateAll(ctx, logger, builder, asset.Columns, result)
	if err != nil {
		return nil, err
	}

	// Generation is done; nothing has touched the catalog yet. A cancelled
	// context stops here with the asset unmodified.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled before write phase: %w", err)
	}

	s.writeAll(ctx, logger, asset, generated, result)

	result.DurationMs = time.Since(startTime).Milliseconds()
	logger.Info("Run complete",
		zap.Int("columns_updated", len(result.ColumnsUpdated)),
		zap.Int("columns_failed", len(result.ColumnsFailed)),
		zap.Int64("duration_ms", result.DurationMs))

	return result, nil
}

// generateAll fans out one generate+parse job per column and collects the
// successes into a GenerationResult. Column-scoped failures land in the
// result; an auth failure from the AI service aborts the whole run.
func (s *EnrichmentService) generateAll(
	ctx context.Context,
	logger *zap.Logger,
	builder *prompts.Builder,
	columns []models.Column,
	result *EnrichResult,
) (models.GenerationResult, error) {
	jobs := make([]llm.Job[columnGeneration], 0, len(columns))
	for _, col := range columns {
		col := col
		jobs = append(jobs, llm.Job[columnGeneration]{
			ID: col.Name,
			Execute: func(ctx context.Context) (columnGeneration, error) {
				meta, err := s.generateColumn(ctx, builder, col)
				if err != nil {
					return columnGeneration{Column: col.Name}, err
				}
				return columnGeneration{Column: col.Name, Meta: meta}, nil
			},
		})
	}

	jobResults := llm.Process(ctx, s.pool, jobs, func(completed, total int) {
		logger.Debug("Generation progress",
			zap.Int("completed", completed),
			zap.Int("total", total))
	})

	generated := make(models.GenerationResult, len(columns))
	for _, r := range jobResults {
		if r.Err != nil {
			if errors.Is(r.Err, apperrors.ErrAuth) {
				return nil, fmt.Errorf("generate column %s: %w", r.ID, r.Err)
			}
			logger.Error("Column generation failed",
				zap.String("column", r.ID),
				zap.Error(r.Err))
			result.ColumnsFailed[r.ID] = logging.SanitizeError(r.Err)
			continue
		}
		generated[r.Result.Column] = r.Result.Meta
	}

	return generated, nil
}

// generateColumn calls the model for one column with retry on transient
// failures, then parses the completion into a metadata pair.
func (s *EnrichmentService) generateColumn(ctx context.Context, builder *prompts.Builder, col models.Column) (models.ColumnMetadata, error) {
	prompt := builder.BuildColumnPrompt(col)
	systemMsg := builder.SystemMessage()

	var raw string
	err := retry.DoIfRetryable(ctx, s.retryCfg, func() error {
		var callErr error
		raw, callErr = s.llmClient.GenerateMetadata(ctx, prompt, systemMsg)
		if callErr != nil {
			classified := llm.ClassifyError(callErr)
			if classified.Retryable {
				s.logger.Warn("Model call failed, retrying",
					zap.String("column", col.Name),
					zap.String("error_type", string(classified.Type)),
					zap.Error(callErr))
			}
			// Classified errors carry their own retryability, so the retry
			// loop stops immediately on permanent failures.
			return classified
		}
		return nil
	})
	if err != nil {
		if llm.ClassifyError(err).Type == llm.ErrorTypeAuth {
			return models.ColumnMetadata{}, fmt.Errorf("%w: %v", apperrors.ErrAuth, err)
		}
		return models.ColumnMetadata{}, fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, err)
	}

	meta, err := ParseColumnMetadata(raw, col.Name)
	if err != nil {
		return models.ColumnMetadata{}, err
	}
	return meta, nil
}

// writeAll applies the collected metadata column-by-column, in catalog
// column order. A failed column is recorded and skipped; the remaining
// columns are still attempted. Columns with no generated entry were already
// recorded as failed during generation.
func (s *EnrichmentService) writeAll(
	ctx context.Context,
	logger *zap.Logger,
	asset *models.Asset,
	generated models.GenerationResult,
	result *EnrichResult,
) {
	for _, col := range asset.Columns {
		meta, ok := generated[col.Name]
		if !ok || !meta.Complete() {
			// Skipped: failure already recorded, or the pair is incomplete
			// and must never be written.
			if _, recorded := result.ColumnsFailed[col.Name]; !recorded {
				result.ColumnsFailed[col.Name] = "no complete metadata generated"
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			// Stop between columns on cancellation; never mid-column.
			for _, remaining := range remainingColumns(asset.Columns, col.Name, result) {
				result.ColumnsFailed[remaining] = "run cancelled before write"
			}
			return
		}

		if s.dryRun {
			logger.Info("Dry run, skipping write",
				zap.String("column", col.Name),
				zap.String("business_name", meta.BusinessName))
			result.ColumnsUpdated = append(result.ColumnsUpdated, col.Name)
			continue
		}

		if err := s.catalog.UpdateColumnMetadata(ctx, asset, col.Name, meta); err != nil {
			logger.Error("Column write failed",
				zap.String("column", col.Name),
				zap.Error(err))
			result.ColumnsFailed[col.Name] = logging.SanitizeError(err)
			continue
		}

		result.ColumnsUpdated = append(result.ColumnsUpdated, col.Name)
	}
}

// remainingColumns lists columns from col onward that have no outcome yet.
func remainingColumns(columns []models.Column, from string, result *EnrichResult) []string {
	var out []string
	seen := false
	for _, col := range columns {
		if col.Name == from {
			seen = true
		}
		if !seen {
			continue
		}
		if _, failed := result.ColumnsFailed[col.Name]; failed {
			continue
		}
		done := false
		for _, updated := range result.ColumnsUpdated {
			if updated == col.Name {
				done = true
				break
			}
		}
		if !done {
			out = append(out, col.Name)
		}
	}
	return out
}
