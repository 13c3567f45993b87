// Package prompts builds the model prompts for column metadata generation.
package prompts

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/metazone-io/metazone/pkg/models"
)

// DefaultMaxContextChars bounds how much of the schema description is
// embedded in a prompt, keeping prompts inside the model context limit.
const DefaultMaxContextChars = 6000

// truncationMarker is appended when the schema description is cut off.
const truncationMarker = "\n[context truncated]"

// Builder produces deterministic prompts for one asset: same asset name,
// schema description, and column always yield the same prompt.
type Builder struct {
	assetName       string
	schemaContext   string
	maxContextChars int
}

// NewBuilder creates a prompt builder. schemaDescription may be empty, in
// which case prompts carry only the column name and type.
func NewBuilder(assetName string, schemaDescription string, maxContextChars int) *Builder {
	if maxContextChars <= 0 {
		maxContextChars = DefaultMaxContextChars
	}
	return &Builder{
		assetName:       assetName,
		schemaContext:   truncate(strings.TrimSpace(schemaDescription), maxContextChars),
		maxContextChars: maxContextChars,
	}
}

// SystemMessage returns the fixed system message for metadata generation.
func (b *Builder) SystemMessage() string {
	return `You are a data catalog steward. You write concise, accurate business metadata for database columns.

Answer in exactly the requested format. Do not add commentary, headers, or markdown.`
}

// BuildColumnPrompt builds the prompt for a single column. The column
// fragment is always kept intact; only the schema description is subject to
// the context budget.
func (b *Builder) BuildColumnPrompt(col models.Column) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Table: %s\n", b.assetName))

	if b.schemaContext != "" {
		sb.WriteString("\n## Domain Context\n")
		sb.WriteString(b.schemaContext)
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Column\n")
	sb.WriteString(fmt.Sprintf("Name: %s\n", col.Name))
	sb.WriteString(fmt.Sprintf("Type: %s\n", col.DataType))

	sb.WriteString("\nProvide a short business name (a human-readable label) and a one-sentence description of the business meaning of this column.\n")
	sb.WriteString("\nRespond with exactly one line in this format:\n")
	sb.WriteString("Business Name: <name> | Description: <description>\n")

	return sb.String()
}

// truncate cuts s to at most max bytes, preserving the head of the text and
// marking the cut. A budget smaller than the marker itself gets a bare cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	keep := max - len(truncationMarker)
	if keep < 0 {
		return cutAtRune(s, max)
	}
	return cutAtRune(s, keep) + truncationMarker
}

// cutAtRune cuts s to at most n bytes without splitting a UTF-8 rune.
func cutAtRune(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
