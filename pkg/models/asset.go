// Package models defines the in-memory representation of catalog assets
// and generated column metadata.
package models

import "encoding/json"

// Asset is one catalog table entry: its columns plus the raw forms needed
// to write a new revision back to the catalog.
type Asset struct {
	ID       string
	DomainID string
	Name     string

	// Columns in catalog order.
	Columns []Column

	// GlueTableContent is the raw GlueTableForm content as returned by the
	// catalog. It is passed back verbatim on write so fields this tool does
	// not model survive the round trip.
	GlueTableContent json.RawMessage

	// BusinessMetadata is the decoded ColumnBusinessMetadataForm content.
	BusinessMetadata *ColumnBusinessMetadataForm
}

// Column is a single column of an asset. BusinessName and Description hold
// the existing catalog metadata, empty when none has been set yet.
type Column struct {
	Name         string
	DataType     string
	BusinessName string
	Description  string
}

// ColumnMetadata is one generated business-name/description pair.
type ColumnMetadata struct {
	BusinessName string `json:"business_name"`
	Description  string `json:"description"`
}

// Complete reports whether both fields are populated. Incomplete metadata
// must never be written to the catalog.
func (m ColumnMetadata) Complete() bool {
	return m.BusinessName != "" && m.Description != ""
}

// GenerationResult maps column name to its generated metadata. It exists
// only in memory for the duration of a run.
type GenerationResult map[string]ColumnMetadata

// GlueTableForm is the subset of the GlueTableForm content this tool reads.
type GlueTableForm struct {
	Columns []GlueColumn `json:"columns"`
}

// GlueColumn is one column entry inside a GlueTableForm.
type GlueColumn struct {
	ColumnName string `json:"columnName"`
	DataType   string `json:"dataType"`
}

// ColumnBusinessMetadataForm is the content of the catalog's column
// business metadata form.
type ColumnBusinessMetadataForm struct {
	ColumnsBusinessMetadata []ColumnBusinessMetadata `json:"columnsBusinessMetadata"`
}

// ColumnBusinessMetadata is one per-column entry of the business metadata
// form, keyed by column identifier.
type ColumnBusinessMetadata struct {
	ColumnIdentifier string `json:"columnIdentifier"`
	Name             string `json:"name"`
	Description      string `json:"description"`
}

// Get returns the entry for the named column, or false when absent.
func (f *ColumnBusinessMetadataForm) Get(column string) (ColumnBusinessMetadata, bool) {
	for _, m := range f.ColumnsBusinessMetadata {
		if m.ColumnIdentifier == column {
			return m, true
		}
	}
	return ColumnBusinessMetadata{}, false
}

// Upsert merges generated metadata for one column into the form, replacing
// an existing entry or appending a new one. Entries for other columns are
// left untouched.
func (f *ColumnBusinessMetadataForm) Upsert(column string, meta ColumnMetadata) {
	for i, m := range f.ColumnsBusinessMetadata {
		if m.ColumnIdentifier == column {
			f.ColumnsBusinessMetadata[i].Name = meta.BusinessName
			f.ColumnsBusinessMetadata[i].Description = meta.Description
			return
		}
	}
	f.ColumnsBusinessMetadata = append(f.ColumnsBusinessMetadata, ColumnBusinessMetadata{
		ColumnIdentifier: column,
		Name:             meta.BusinessName,
		Description:      meta.Description,
	})
}

// Clone returns a deep copy so per-column writes can be built without
// mutating the fetched asset.
func (f *ColumnBusinessMetadataForm) Clone() *ColumnBusinessMetadataForm {
	if f == nil {
		return &ColumnBusinessMetadataForm{}
	}
	out := &ColumnBusinessMetadataForm{
		ColumnsBusinessMetadata: make([]ColumnBusinessMetadata, len(f.ColumnsBusinessMetadata)),
	}
	copy(out.ColumnsBusinessMetadata, f.ColumnsBusinessMetadata)
	return out
}
