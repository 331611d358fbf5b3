// Package ddl renders a schema.Schema as CREATE statements for a specific
// database engine.
package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// Dialect identifies a SQL engine.
type Dialect string

const (
	Postgres Dialect = schema.DialectPostgres
	MySQL    Dialect = schema.DialectMySQL
	SQLite   Dialect = schema.DialectSQLite
)

// ParseDialect accepts the dialect names used on the command line.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s (must be postgres, mysql, or sqlite)", name)
	}
}

// Render returns the statements creating every table of s, in order, followed
// by their indexes. Statements are idempotent.
func Render(s *schema.Schema, d Dialect) ([]string, error) {
	var stmts []string
	for _, table := range s.Tables {
		create, err := createTable(table, d)
		if err != nil {
			return nil, fmt.Errorf("failed to render table %s: %w", table.Name, err)
		}
		stmts = append(stmts, create)

		// MySQL has no CREATE INDEX IF NOT EXISTS; indexes are declared inline.
		if d == MySQL {
			continue
		}
		for _, idx := range table.Indexes {
			stmts = append(stmts, createIndex(table.Name, idx))
		}
	}
	return stmts, nil
}

// Script joins rendered statements into a single SQL script.
func Script(stmts []string) string {
	var b strings.Builder
	for i, stmt := range stmts {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(stmt)
		b.WriteString(";\n")
	}
	return b.String()
}

func createTable(table schema.Table, d Dialect) (string, error) {
	var lines []string

	for _, col := range table.Columns {
		line, err := columnDef(col, d)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}

	for _, u := range table.Unique {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", u.Name, strings.Join(u.Columns, ", ")))
	}

	for _, rel := range table.Relations {
		fk := fmt.Sprintf("CONSTRAINT fk_%s_%s FOREIGN KEY (%s) REFERENCES %s(%s)",
			table.Name, rel.SourceColumn, rel.SourceColumn, rel.TargetTable, rel.TargetColumn)
		if rel.OnDelete != "" {
			fk += " ON DELETE " + rel.OnDelete
		}
		lines = append(lines, fk)
	}

	for _, chk := range table.Checks {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", chk.Name, chk.ExprFor(string(d))))
	}

	if d == MySQL {
		for _, idx := range table.Indexes {
			lines = append(lines, fmt.Sprintf("INDEX %s (%s)", idx.Name, strings.Join(idx.Columns, ", ")))
		}
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", table.Name, strings.Join(lines, ",\n    "))
	if d == MySQL {
		stmt += " ENGINE=InnoDB"
	}
	return stmt, nil
}

func columnDef(col schema.Column, d Dialect) (string, error) {
	if col.Kind == schema.KindSerial {
		switch d {
		case Postgres:
			return col.Name + " SERIAL PRIMARY KEY", nil
		case MySQL:
			return col.Name + " INT AUTO_INCREMENT PRIMARY KEY", nil
		case SQLite:
			return col.Name + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
		}
	}

	typ, err := sqlType(col, d)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", col.Name, err)
	}

	parts := []string{col.Name, typ}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.IsUnique {
		parts = append(parts, "UNIQUE")
	}
	if col.DefaultValue != nil {
		parts = append(parts, "DEFAULT "+defaultFor(*col.DefaultValue, col.Kind, d))
	}
	return strings.Join(parts, " "), nil
}

func sqlType(col schema.Column, d Dialect) (string, error) {
	switch col.Kind {
	case schema.KindInteger:
		if d == MySQL {
			return "INT", nil
		}
		return "INTEGER", nil
	case schema.KindBigInt:
		return "BIGINT", nil
	case schema.KindVarchar:
		return fmt.Sprintf("VARCHAR(%d)", col.Size), nil
	case schema.KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", col.Size, col.Scale), nil
	case schema.KindDate:
		return "DATE", nil
	case schema.KindBoolean:
		return "BOOLEAN", nil
	case schema.KindTimestamp:
		return "TIMESTAMP", nil
	default:
		return "", fmt.Errorf("no SQL type for kind %d", col.Kind)
	}
}

// defaultFor adapts boolean literals; SQLite stores booleans as integers.
func defaultFor(value string, kind schema.Kind, d Dialect) string {
	if kind == schema.KindBoolean && d == SQLite {
		switch strings.ToLower(value) {
		case "false":
			return "0"
		case "true":
			return "1"
		}
	}
	return value
}

func createIndex(table string, idx schema.Index) string {
	unique := ""
	if idx.IsUnique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s(%s)", unique, idx.Name, table, strings.Join(idx.Columns, ", "))
}
