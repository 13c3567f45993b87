package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/datazone"
	dztypes "github.com/aws/aws-sdk-go-v2/service/datazone/types"
	"go.uber.org/zap"

	"github.com/metazone-io/metazone/pkg/apperrors"
	"github.com/metazone-io/metazone/pkg/models"
	"github.com/metazone-io/metazone/pkg/retry"
)

// DataZone form names and type identifiers for Glue table assets.
const (
	FormNameGlueTable              = "GlueTableForm"
	FormNameColumnBusinessMetadata = "ColumnBusinessMetadataForm"

	formTypeGlueTable              = "amazon.datazone.GlueTableFormType"
	formTypeColumnBusinessMetadata = "amazon.datazone.ColumnBusinessMetadataFormType"
)

// datazoneAPI is the subset of the DataZone service client this tool calls.
type datazoneAPI interface {
	GetAsset(ctx context.Context, params *datazone.GetAssetInput, optFns ...func(*datazone.Options)) (*datazone.GetAssetOutput, error)
	CreateAssetRevision(ctx context.Context, params *datazone.CreateAssetRevisionInput, optFns ...func(*datazone.Options)) (*datazone.CreateAssetRevisionOutput, error)
	GetFormType(ctx context.Context, params *datazone.GetFormTypeInput, optFns ...func(*datazone.Options)) (*datazone.GetFormTypeOutput, error)
}

// DataZoneClient implements Reader and Writer against AWS DataZone.
type DataZoneClient struct {
	client            datazoneAPI
	formTypeRevisions map[string]string
	retryCfg          *retry.Config
	logger            *zap.Logger
}

var _ ReadWriter = (*DataZoneClient)(nil)

// DataZoneConfig configures the catalog client.
type DataZoneConfig struct {
	Region          string
	DomainID        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewDataZoneClient creates a DataZone client and resolves the current form
// type revisions for the domain. Revision lookup failures fall back to "1"
// so a permission gap on GetFormType does not block the run.
func NewDataZoneClient(ctx context.Context, cfg *DataZoneConfig, logger *zap.Logger) (*DataZoneClient, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: catalog region is required", apperrors.ErrConfig)
	}

	c := &DataZoneClient{
		client: datazone.New(datazone.Options{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			),
		}),
		formTypeRevisions: make(map[string]string),
		retryCfg:          retry.DefaultConfig(),
		logger:            logger.Named("datazone"),
	}

	c.resolveFormTypeRevisions(ctx, cfg.DomainID)
	return c, nil
}

// resolveFormTypeRevisions fetches the latest revision for both form types.
func (c *DataZoneClient) resolveFormTypeRevisions(ctx context.Context, domainID string) {
	for formName, typeID := range map[string]string{
		FormNameGlueTable:              formTypeGlueTable,
		FormNameColumnBusinessMetadata: formTypeColumnBusinessMetadata,
	} {
		out, err := c.client.GetFormType(ctx, &datazone.GetFormTypeInput{
			DomainIdentifier:   aws.String(domainID),
			FormTypeIdentifier: aws.String(typeID),
		})
		if err != nil {
			c.logger.Warn("Failed to get form type revision, using default",
				zap.String("form", formName),
				zap.Error(err))
			c.formTypeRevisions[formName] = "1"
			continue
		}
		c.formTypeRevisions[formName] = aws.ToString(out.Revision)
	}

	c.logger.Debug("Resolved form type revisions",
		zap.Any("revisions", c.formTypeRevisions))
}

// GetAsset implements Reader. Throttled reads are retried with backoff.
func (c *DataZoneClient) GetAsset(ctx context.Context, domainID, assetID string) (*models.Asset, error) {
	var out *datazone.GetAssetOutput
	err := retry.DoIfRetryable(ctx, c.retryCfg, func() error {
		var callErr error
		out, callErr = c.client.GetAsset(ctx, &datazone.GetAssetInput{
			DomainIdentifier: aws.String(domainID),
			Identifier:       aws.String(assetID),
		})
		if callErr != nil {
			return retryableIfThrottled(callErr)
		}
		return nil
	})
	if err != nil {
		return nil, classifyCatalogError(err, assetID)
	}

	asset, err := parseForms(assetID, domainID, aws.ToString(out.Name), out.FormsOutput)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Fetched asset",
		zap.String("asset_id", assetID),
		zap.String("asset_name", asset.Name),
		zap.Int("column_count", len(asset.Columns)))

	return asset, nil
}

// parseForms decodes the asset's forms and merges existing business
// metadata onto the column list. The GlueTableForm is required; a missing
// business metadata form starts empty.
func parseForms(assetID, domainID, name string, forms []dztypes.FormOutput) (*models.Asset, error) {
	asset := &models.Asset{
		ID:               assetID,
		DomainID:         domainID,
		Name:             name,
		BusinessMetadata: &models.ColumnBusinessMetadataForm{},
	}

	for _, form := range forms {
		content := aws.ToString(form.Content)
		switch aws.ToString(form.FormName) {
		case FormNameGlueTable:
			var glue models.GlueTableForm
			if err := json.Unmarshal([]byte(content), &glue); err != nil {
				return nil, fmt.Errorf("decode %s: %w", FormNameGlueTable, err)
			}
			asset.GlueTableContent = json.RawMessage(content)
			for _, col := range glue.Columns {
				asset.Columns = append(asset.Columns, models.Column{
					Name:     col.ColumnName,
					DataType: col.DataType,
				})
			}
		case FormNameColumnBusinessMetadata:
			if err := json.Unmarshal([]byte(content), asset.BusinessMetadata); err != nil {
				return nil, fmt.Errorf("decode %s: %w", FormNameColumnBusinessMetadata, err)
			}
		}
	}

	if asset.GlueTableContent == nil {
		return nil, fmt.Errorf("%w: asset %s has no %s", apperrors.ErrNotFound, assetID, FormNameGlueTable)
	}

	// Merge existing business metadata onto the columns.
	for i, col := range asset.Columns {
		if meta, ok := asset.BusinessMetadata.Get(col.Name); ok {
			asset.Columns[i].BusinessName = meta.Name
			asset.Columns[i].Description = meta.Description
		}
	}

	return asset, nil
}

// UpdateColumnMetadata implements Writer. Each call creates a new asset
// revision carrying the merged business metadata form; the asset's cached
// form is only advanced after the catalog accepts the revision, so a failed
// column leaves no trace.
func (c *DataZoneClient) UpdateColumnMetadata(ctx context.Context, asset *models.Asset, columnName string, meta models.ColumnMetadata) error {
	if !meta.Complete() {
		return fmt.Errorf("%w: incomplete metadata for column %s", apperrors.ErrWrite, columnName)
	}

	merged := asset.BusinessMetadata.Clone()
	merged.Upsert(columnName, meta)

	content, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", apperrors.ErrWrite, FormNameColumnBusinessMetadata, err)
	}

	revisionName := fmt.Sprintf("metazone %s %s", columnName, time.Now().Format("2006-01-02 15:04:05"))

	input := &datazone.CreateAssetRevisionInput{
		DomainIdentifier: aws.String(asset.DomainID),
		Identifier:       aws.String(asset.ID),
		Name:             aws.String(revisionName),
		FormsInput: []dztypes.FormInput{
			{
				FormName:       aws.String(FormNameGlueTable),
				TypeIdentifier: aws.String(formTypeGlueTable),
				TypeRevision:   aws.String(c.formTypeRevisions[FormNameGlueTable]),
				Content:        aws.String(string(asset.GlueTableContent)),
			},
			{
				FormName:       aws.String(FormNameColumnBusinessMetadata),
				TypeIdentifier: aws.String(formTypeColumnBusinessMetadata),
				TypeRevision:   aws.String(c.formTypeRevisions[FormNameColumnBusinessMetadata]),
				Content:        aws.String(string(content)),
			},
		},
	}

	// Creating one revision per column makes back-to-back writes prone to
	// throttling, so throttled revisions are retried before failing the
	// column.
	var out *datazone.CreateAssetRevisionOutput
	err = retry.DoIfRetryable(ctx, c.retryCfg, func() error {
		var callErr error
		out, callErr = c.client.CreateAssetRevision(ctx, input)
		if callErr != nil {
			return retryableIfThrottled(callErr)
		}
		return nil
	})
	if err != nil {
		classified := classifyCatalogError(err, asset.ID)
		if errors.Is(classified, apperrors.ErrAuth) || errors.Is(classified, apperrors.ErrNotFound) {
			return classified
		}
		return fmt.Errorf("%w: column %s: %v", apperrors.ErrWrite, columnName, err)
	}

	// Advance the cached form so later columns build on this revision.
	asset.BusinessMetadata = merged

	c.logger.Info("Created asset revision",
		zap.String("asset_id", asset.ID),
		zap.String("column", columnName),
		zap.String("revision", aws.ToString(out.Revision)))

	return nil
}

// throttledError marks a typed throttling exception retryable for the
// backoff policy without string matching.
type throttledError struct {
	err error
}

func (e *throttledError) Error() string     { return e.err.Error() }
func (e *throttledError) Unwrap() error     { return e.err }
func (e *throttledError) IsRetryable() bool { return true }

// retryableIfThrottled wraps typed throttling exceptions so DoIfRetryable
// retries them; everything else passes through unchanged.
func retryableIfThrottled(err error) error {
	var throttled *dztypes.ThrottlingException
	if errors.As(err, &throttled) {
		return &throttledError{err: err}
	}
	return err
}

// classifyCatalogError maps typed DataZone exceptions onto the tool's
// sentinel errors.
func classifyCatalogError(err error, assetID string) error {
	var (
		notFound     *dztypes.ResourceNotFoundException
		accessDenied *dztypes.AccessDeniedException
		unauthorized *dztypes.UnauthorizedException
		throttled    *dztypes.ThrottlingException
	)

	switch {
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: asset %s: %v", apperrors.ErrNotFound, assetID, err)
	case errors.As(err, &accessDenied), errors.As(err, &unauthorized):
		return fmt.Errorf("%w: %v", apperrors.ErrAuth, err)
	case errors.As(err, &throttled):
		return fmt.Errorf("catalog throttled after retries: %w", err)
	default:
		return fmt.Errorf("catalog request failed: %w", err)
	}
}
