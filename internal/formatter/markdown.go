package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// MarkdownFormatter formats schema as a markdown data dictionary
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintln(f.writer, "# Data Dictionary")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range s.Tables {
		f.FormatTable(table, s)
	}
	return nil
}

// FormatTable writes one table. Foreign keys of s that point at the table
// are listed under "Referenced by".
func (f *MarkdownFormatter) FormatTable(table schema.Table, s *schema.Schema) {
	w := f.writer
	_, _ = fmt.Fprintf(w, "## %s\n\n", table.Name)
	if table.Description != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", table.Description)
	}

	_, _ = fmt.Fprintln(w, "### Columns")
	_, _ = fmt.Fprintln(w)
	for _, col := range table.Columns {
		line := fmt.Sprintf("- **%s:** %s", col.Name, typeWithEnum(col))
		if constraints := columnConstraints(col, table.PrimaryKey); len(constraints) > 0 {
			line += ", " + strings.Join(constraints, ", ")
		}
		if col.Description != "" {
			line += ". " + col.Description
		}
		_, _ = fmt.Fprintln(w, line)
	}
	_, _ = fmt.Fprintln(w)

	if checks := tableChecks(table); len(checks) > 0 {
		_, _ = fmt.Fprintln(w, "### Checks")
		_, _ = fmt.Fprintln(w)
		for _, chk := range checks {
			_, _ = fmt.Fprintf(w, "- %s: `%s`\n", chk.Name, chk.Expr)
		}
		_, _ = fmt.Fprintln(w)
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(w, "### References")
		_, _ = fmt.Fprintln(w)
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(w, "- %s → %s.%s (%s)\n", rel.SourceColumn, rel.TargetTable, rel.TargetColumn, relationRule(rel))
		}
		_, _ = fmt.Fprintln(w)
	}

	if indexes := allIndexes(table); len(indexes) > 0 {
		_, _ = fmt.Fprintln(w, "### Indexes")
		_, _ = fmt.Fprintln(w)
		for _, idx := range indexes {
			unique := ""
			if idx.IsUnique {
				unique = ", unique"
			}
			_, _ = fmt.Fprintf(w, "- %s on (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
		_, _ = fmt.Fprintln(w)
	}

	if s == nil {
		return
	}
	if incoming := IncomingRelations(s, table.Name); len(incoming) > 0 {
		_, _ = fmt.Fprintln(w, "### Referenced by")
		_, _ = fmt.Fprintln(w)
		for _, rel := range incoming {
			rule := DescribeCardinality(rel.Cardinality, rel.SourceTable, table.Name)
			if rel.OnDelete != "" {
				rule += ", ON DELETE " + rel.OnDelete
			}
			_, _ = fmt.Fprintf(w, "- %s.%s → %s (%s)\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn, rule)
		}
		_, _ = fmt.Fprintln(w)
	}
}
