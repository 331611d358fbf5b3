// Package formatter renders a schema as a data dictionary in text or
// markdown, either as a single document or one file per table.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// Output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Formatter writes a schema
type Formatter interface {
	Format(s *schema.Schema) error
}

// New returns the single-document formatter for format
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText:
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	default:
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", format)
	}
}

// IncomingRelation is a foreign key in another table pointing at a table
type IncomingRelation struct {
	SourceTable  string
	SourceColumn string
	TargetColumn string
	Cardinality  string
	OnDelete     string
}

// IncomingRelations lists the foreign keys of s that reference table
func IncomingRelations(s *schema.Schema, table string) []IncomingRelation {
	var incoming []IncomingRelation
	for _, t := range s.Tables {
		for _, rel := range t.Relations {
			if rel.TargetTable == table {
				incoming = append(incoming, IncomingRelation{
					SourceTable:  t.Name,
					SourceColumn: rel.SourceColumn,
					TargetColumn: rel.TargetColumn,
					Cardinality:  rel.Cardinality,
					OnDelete:     rel.OnDelete,
				})
			}
		}
	}
	return incoming
}

// DescribeCardinality spells out a cardinality seen from the source table
func DescribeCardinality(cardinality, source, target string) string {
	switch cardinality {
	case "N:1":
		return fmt.Sprintf("many %s per %s", source, target)
	case "1:1":
		return fmt.Sprintf("one %s per %s", source, target)
	case "1:N":
		return fmt.Sprintf("one %s to many %s", source, target)
	default:
		return cardinality
	}
}

func typeWithEnum(col schema.Column) string {
	if len(col.EnumValues) > 0 {
		return fmt.Sprintf("%s (%s)", col.Type, strings.Join(col.EnumValues, "|"))
	}
	return col.Type
}

func columnConstraints(col schema.Column, primaryKey []string) []string {
	var constraints []string
	for _, pk := range primaryKey {
		if pk == col.Name {
			constraints = append(constraints, "PK")
			break
		}
	}
	if col.IsUnique {
		constraints = append(constraints, "UNIQUE")
	}
	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}
	if col.DefaultValue != nil {
		constraints = append(constraints, "DEFAULT "+*col.DefaultValue)
	}
	if col.CheckConstraint != nil {
		constraints = append(constraints, fmt.Sprintf("CHECK(%s)", *col.CheckConstraint))
	}
	return constraints
}

// tableChecks returns the checks not already shown on a single column
func tableChecks(table schema.Table) []schema.Check {
	var checks []schema.Check
	for _, chk := range table.Checks {
		if len(chk.Columns) != 1 {
			checks = append(checks, chk)
		}
	}
	return checks
}

func relationRule(rel schema.Relation) string {
	parts := []string{rel.Cardinality}
	if rel.OnDelete != "" {
		parts = append(parts, "ON DELETE "+rel.OnDelete)
	}
	return strings.Join(parts, ", ")
}

// allIndexes lists unique constraints before plain indexes
func allIndexes(table schema.Table) []schema.Index {
	return append(append([]schema.Index{}, table.Unique...), table.Indexes...)
}
