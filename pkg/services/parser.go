package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/metazone-io/metazone/pkg/apperrors"
	"github.com/metazone-io/metazone/pkg/jsonutil"
	"github.com/metazone-io/metazone/pkg/llm"
	"github.com/metazone-io/metazone/pkg/models"
)

// pairPattern matches the documented output grammar:
//
//	Business Name: <name> | Description: <description>
//
// with tolerance for case, spacing, and markdown emphasis around labels.
var pairPattern = regexp.MustCompile(`(?i)business\s*name[\s*_]*[:\-][\s*_]*(.+?)\s*\|[\s*_]*description[\s*_]*[:\-][\s*_]*(.+)`)

// jsonMetadata accepts the common key spellings models fall back to when
// they answer in JSON despite the prompt.
type jsonMetadata struct {
	BusinessName      jsonutil.FlexibleString `json:"business_name"`
	BusinessNameCamel jsonutil.FlexibleString `json:"businessName"`
	Name              jsonutil.FlexibleString `json:"name"`
	Description       jsonutil.FlexibleString `json:"description"`
}

// ParseColumnMetadata extracts the generated pair for one column from the
// raw model completion. It scans for the documented grammar first and falls
// back to an embedded JSON object. Output with no recognizable pair, or
// with an empty field, fails with a parse error — never a silent empty
// value.
func ParseColumnMetadata(raw string, columnName string) (models.ColumnMetadata, error) {
	for _, line := range strings.Split(raw, "\n") {
		if m := pairPattern.FindStringSubmatch(line); m != nil {
			meta := models.ColumnMetadata{
				BusinessName: cleanField(m[1]),
				Description:  cleanField(m[2]),
			}
			if meta.Complete() {
				return meta, nil
			}
		}
	}

	// Whole-text match catches pairs wrapped across lines.
	normalized := strings.Join(strings.Fields(raw), " ")
	if m := pairPattern.FindStringSubmatch(normalized); m != nil {
		meta := models.ColumnMetadata{
			BusinessName: cleanField(m[1]),
			Description:  cleanField(m[2]),
		}
		if meta.Complete() {
			return meta, nil
		}
	}

	if parsed, err := llm.ParseJSONResponse[jsonMetadata](raw); err == nil {
		meta := models.ColumnMetadata{
			BusinessName: cleanField(firstNonEmpty(parsed.BusinessName.String(), parsed.BusinessNameCamel.String(), parsed.Name.String())),
			Description:  cleanField(parsed.Description.String()),
		}
		if meta.Complete() {
			return meta, nil
		}
	}

	return models.ColumnMetadata{}, fmt.Errorf("%w: column %s: no business-name/description pair found",
		apperrors.ErrParse, columnName)
}

// cleanField strips markdown emphasis and quoting the model may wrap
// values in.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*`\"'")
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
