// Package catalog reads assets from and writes column metadata back to the
// data catalog service.
package catalog

import (
	"context"

	"github.com/metazone-io/metazone/pkg/models"
)

// Reader fetches the current definition of a catalog asset.
type Reader interface {
	// GetAsset returns the asset with its column list and any existing
	// business metadata merged in.
	GetAsset(ctx context.Context, domainID, assetID string) (*models.Asset, error)
}

// Writer pushes generated metadata back to the catalog, one column at a
// time. A failure on one column must not prevent attempts on the others.
type Writer interface {
	// UpdateColumnMetadata merges the pair for one column into the asset's
	// business metadata and persists it. Only complete pairs are accepted;
	// fields of other columns are preserved.
	UpdateColumnMetadata(ctx context.Context, asset *models.Asset, columnName string, meta models.ColumnMetadata) error
}

// ReadWriter combines both catalog operations.
type ReadWriter interface {
	Reader
	Writer
}
