package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/metazone-io/metazone/pkg/apperrors"
	"github.com/metazone-io/metazone/pkg/catalog"
	"github.com/metazone-io/metazone/pkg/llm"
	"github.com/metazone-io/metazone/pkg/models"
	"github.com/metazone-io/metazone/pkg/retry"
)

// newOrdersAsset builds the "orders" asset with columns id (int) and
// total (decimal).
func newOrdersAsset() *models.Asset {
	glueContent, _ := json.Marshal(models.GlueTableForm{
		Columns: []models.GlueColumn{
			{ColumnName: "id", DataType: "int"},
			{ColumnName: "total", DataType: "decimal"},
		},
	})
	return &models.Asset{
		ID:       "asset-1",
		DomainID: "domain-1",
		Name:     "orders",
		Columns: []models.Column{
			{Name: "id", DataType: "int"},
			{Name: "total", DataType: "decimal"},
		},
		GlueTableContent: glueContent,
		BusinessMetadata: &models.ColumnBusinessMetadataForm{},
	}
}

// deterministicModel answers each column prompt with the documented
// grammar, derived only from the column name.
func deterministicModel() *llm.MockClient {
	client := llm.NewMockClient()
	client.GenerateMetadataFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		switch {
		case strings.Contains(prompt, "Name: id"):
			return "Business Name: Order ID | Description: Unique identifier of the order", nil
		case strings.Contains(prompt, "Name: total"):
			return "Business Name: Order Total | Description: Total monetary amount of the order", nil
		default:
			return "", fmt.Errorf("unexpected prompt: %s", prompt)
		}
	}
	return client
}

func fastRetryConfig() *retry.Config {
	return &retry.Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newTestService(cat catalog.ReadWriter, client llm.Client, description string, concurrency int) *EnrichmentService {
	logger := zap.NewNop()
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: concurrency}, logger)
	return NewEnrichmentService(cat, client, pool, description, 0, fastRetryConfig(), false, logger)
}

func TestEnrichAsset_UpdatesEveryColumnExactlyOnce(t *testing.T) {
	mock := catalog.NewMockClient(newOrdersAsset())
	svc := newTestService(mock, deterministicModel(), "E-commerce orders table", 2)

	result, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"id", "total"}, result.ColumnsUpdated)
	assert.Empty(t, result.ColumnsFailed)

	// Exactly one write per column, each carrying its own pair.
	require.Equal(t, 1, mock.WriteCount("id"))
	require.Equal(t, 1, mock.WriteCount("total"))
	assert.Equal(t, models.ColumnMetadata{
		BusinessName: "Order ID",
		Description:  "Unique identifier of the order",
	}, mock.Written["id"][0])
	assert.Equal(t, models.ColumnMetadata{
		BusinessName: "Order Total",
		Description:  "Total monetary amount of the order",
	}, mock.Written["total"][0])
}

func TestEnrichAsset_SequentialMatchesConcurrent(t *testing.T) {
	// Concurrency 1 is the documented sequential design and must produce
	// the same catalog state as a parallel run.
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency_%d", concurrency), func(t *testing.T) {
			mock := catalog.NewMockClient(newOrdersAsset())
			svc := newTestService(mock, deterministicModel(), "E-commerce orders table", concurrency)

			result, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
			require.NoError(t, err)
			assert.Empty(t, result.ColumnsFailed)

			meta, ok := mock.Asset.BusinessMetadata.Get("total")
			require.True(t, ok)
			assert.Equal(t, "Order Total", meta.Name)
		})
	}
}

func TestEnrichAsset_Idempotent(t *testing.T) {
	mock := catalog.NewMockClient(newOrdersAsset())
	svc := newTestService(mock, deterministicModel(), "E-commerce orders table", 1)

	_, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)
	first := mock.Asset.BusinessMetadata.Clone()

	_, err = svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)

	assert.Equal(t, first, mock.Asset.BusinessMetadata.Clone())
}

func TestEnrichAsset_EmptySchemaDescriptionStillCompletes(t *testing.T) {
	mock := catalog.NewMockClient(newOrdersAsset())
	svc := newTestService(mock, deterministicModel(), "", 1)

	result, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)
	assert.Len(t, result.ColumnsUpdated, 2)
	assert.Empty(t, result.ColumnsFailed)
}

func TestEnrichAsset_UnparsableResponseSkipsOnlyThatColumn(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateMetadataFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		if strings.Contains(prompt, "Name: id") {
			return "I am not sure what this column means.", nil
		}
		return "Business Name: Order Total | Description: Total monetary amount of the order", nil
	}

	mock := catalog.NewMockClient(newOrdersAsset())
	svc := newTestService(mock, client, "E-commerce orders table", 2)

	result, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"total"}, result.ColumnsUpdated)
	require.Contains(t, result.ColumnsFailed, "id")
	assert.True(t, result.PartialFailure())

	// The failed column received no write at all.
	assert.Equal(t, 0, mock.WriteCount("id"))
	assert.Equal(t, 1, mock.WriteCount("total"))
}

func TestEnrichAsset_ThrottledColumnExhaustsRetries(t *testing.T) {
	throttleCalls := 0
	client := llm.NewMockClient()
	client.GenerateMetadataFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		if strings.Contains(prompt, "Name: id") {
			throttleCalls++
			return "", errors.New("429 too many requests")
		}
		return "Business Name: Order Total | Description: Total monetary amount of the order", nil
	}

	mock := catalog.NewMockClient(newOrdersAsset())
	svc := newTestService(mock, client, "E-commerce orders table", 2)

	result, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)

	// "total" is still updated, the failure report lists "id".
	assert.Equal(t, []string{"total"}, result.ColumnsUpdated)
	require.Contains(t, result.ColumnsFailed, "id")
	assert.True(t, result.PartialFailure())
	assert.Equal(t, 0, mock.WriteCount("id"))

	// All retry attempts were spent on the throttled column.
	assert.Equal(t, fastRetryConfig().MaxRetries+1, throttleCalls)
}

func TestEnrichAsset_WriteFailureDoesNotBlockOtherColumns(t *testing.T) {
	mock := catalog.NewMockClient(newOrdersAsset())
	mock.UpdateColumnMetadataFunc = func(ctx context.Context, asset *models.Asset, columnName string, meta models.ColumnMetadata) error {
		if columnName == "id" {
			return fmt.Errorf("%w: column id: revision rejected", apperrors.ErrWrite)
		}
		return nil
	}

	svc := newTestService(mock, deterministicModel(), "E-commerce orders table", 1)

	result, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"total"}, result.ColumnsUpdated)
	require.Contains(t, result.ColumnsFailed, "id")
	assert.Equal(t, 0, mock.WriteCount("id"))
	assert.Equal(t, 1, mock.WriteCount("total"))
}

func TestEnrichAsset_MissingAssetAborts(t *testing.T) {
	mock := catalog.NewMockClient(nil)
	mock.GetAssetFunc = func(ctx context.Context, domainID, assetID string) (*models.Asset, error) {
		return nil, fmt.Errorf("%w: asset %s", apperrors.ErrNotFound, assetID)
	}

	svc := newTestService(mock, deterministicModel(), "", 1)

	_, err := svc.EnrichAsset(context.Background(), "domain-1", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestEnrichAsset_ModelAuthFailureAborts(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateMetadataFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		return "", errors.New("401 unauthorized: invalid api key")
	}

	mock := catalog.NewMockClient(newOrdersAsset())
	svc := newTestService(mock, client, "", 1)

	_, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAuth))
	assert.Empty(t, mock.Written)
}

func TestEnrichAsset_NoColumns(t *testing.T) {
	asset := newOrdersAsset()
	asset.Columns = nil
	mock := catalog.NewMockClient(asset)

	svc := newTestService(mock, deterministicModel(), "", 1)

	result, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)
	assert.Empty(t, result.ColumnsUpdated)
	assert.Empty(t, result.ColumnsFailed)
	assert.False(t, result.TotalFailure())
}

func TestEnrichAsset_CancelledBeforeWritePhaseLeavesCatalogUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client := llm.NewMockClient()
	client.GenerateMetadataFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		// Cancel while generation is still in flight.
		cancel()
		return "Business Name: Order ID | Description: Unique identifier of the order", nil
	}

	mock := catalog.NewMockClient(newOrdersAsset())
	svc := newTestService(mock, client, "", 1)

	_, err := svc.EnrichAsset(ctx, "domain-1", "asset-1")
	require.Error(t, err)
	assert.Empty(t, mock.Written)
}

func TestEnrichAsset_DryRunWritesNothing(t *testing.T) {
	mock := catalog.NewMockClient(newOrdersAsset())
	logger := zap.NewNop()
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: 1}, logger)
	svc := NewEnrichmentService(mock, deterministicModel(), pool, "", 0, fastRetryConfig(), true, logger)

	result, err := svc.EnrichAsset(context.Background(), "domain-1", "asset-1")
	require.NoError(t, err)
	assert.Len(t, result.ColumnsUpdated, 2)
	assert.Empty(t, mock.Written)
}
