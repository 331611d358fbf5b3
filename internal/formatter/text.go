package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Schema) error {
	for i, table := range s.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer)
		}
		f.FormatTable(table)
	}
	return nil
}

// FormatTable writes one table
func (f *TextFormatter) FormatTable(table schema.Table) {
	w := f.writer

	pkStr := ""
	if len(table.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.PrimaryKey, ", "))
	}
	_, _ = fmt.Fprintf(w, "TABLE %s%s\n", table.Name, pkStr)
	if table.Description != "" {
		_, _ = fmt.Fprintf(w, "  -- %s\n", table.Description)
	}

	for _, col := range table.Columns {
		parts := append([]string{col.Name + ":", typeWithEnum(col)}, columnConstraints(col, nil)...)
		_, _ = fmt.Fprintf(w, "  %s\n", strings.Join(parts, " "))
	}

	if checks := tableChecks(table); len(checks) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "  CHECKS:")
		for _, chk := range checks {
			_, _ = fmt.Fprintf(w, "    %s: %s\n", chk.Name, chk.Expr)
		}
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "  RELATIONS:")
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(w, "    %s → %s.%s (%s)\n", rel.SourceColumn, rel.TargetTable, rel.TargetColumn, relationRule(rel))
		}
	}

	if indexes := allIndexes(table); len(indexes) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "  INDEXES:")
		for _, idx := range indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(w, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}
}
