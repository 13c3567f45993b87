package catalog

import (
	"context"
	"sync"

	"github.com/metazone-io/metazone/pkg/models"
)

// MockClient is a configurable in-memory catalog for testing. Set the
// function fields to control behavior; writes are recorded per column.
type MockClient struct {
	mu sync.Mutex

	// GetAssetFunc is called when GetAsset is invoked. If nil, returns the
	// Asset field.
	GetAssetFunc func(ctx context.Context, domainID, assetID string) (*models.Asset, error)

	// UpdateColumnMetadataFunc is called when UpdateColumnMetadata is
	// invoked. If nil, the write is recorded and succeeds.
	UpdateColumnMetadataFunc func(ctx context.Context, asset *models.Asset, columnName string, meta models.ColumnMetadata) error

	// Asset is returned by GetAsset when GetAssetFunc is nil.
	Asset *models.Asset

	GetAssetCalls int

	// Written records every accepted write, in order, per column.
	Written map[string][]models.ColumnMetadata
}

var _ ReadWriter = (*MockClient)(nil)

// NewMockClient creates a mock catalog serving the given asset.
func NewMockClient(asset *models.Asset) *MockClient {
	return &MockClient{
		Asset:   asset,
		Written: make(map[string][]models.ColumnMetadata),
	}
}

// GetAsset implements Reader.
func (m *MockClient) GetAsset(ctx context.Context, domainID, assetID string) (*models.Asset, error) {
	m.mu.Lock()
	m.GetAssetCalls++
	m.mu.Unlock()

	if m.GetAssetFunc != nil {
		return m.GetAssetFunc(ctx, domainID, assetID)
	}
	return m.Asset, nil
}

// UpdateColumnMetadata implements Writer.
func (m *MockClient) UpdateColumnMetadata(ctx context.Context, asset *models.Asset, columnName string, meta models.ColumnMetadata) error {
	if m.UpdateColumnMetadataFunc != nil {
		if err := m.UpdateColumnMetadataFunc(ctx, asset, columnName, meta); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Written == nil {
		m.Written = make(map[string][]models.ColumnMetadata)
	}
	m.Written[columnName] = append(m.Written[columnName], meta)
	asset.BusinessMetadata.Upsert(columnName, meta)
	return nil
}

// WriteCount returns how many writes were recorded for a column.
func (m *MockClient) WriteCount(columnName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Written[columnName])
}
