package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{client: client}
}

// ExtractSchema extracts the given tables, or every table when tables is empty
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return extractTables(ctx, e, tables)
}

func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	rows, err := e.client.DB().QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// tableInfoRow is one row of PRAGMA table_info
type tableInfoRow struct {
	name      string
	colType   string
	notNull   bool
	dflt      sql.NullString
	pkOrdinal int
}

func (e *SQLiteExtractor) tableInfo(ctx context.Context, tableName string) ([]tableInfoRow, error) {
	rows, err := e.client.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var info []tableInfoRow
	for rows.Next() {
		var cid, notNull int
		var r tableInfoRow
		if err := rows.Scan(&cid, &r.name, &r.colType, &notNull, &r.dflt, &r.pkOrdinal); err != nil {
			return nil, err
		}
		r.notNull = notNull != 0
		info = append(info, r)
	}
	return info, rows.Err()
}

func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	info, err := e.tableInfo(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(info) == 0 {
		return nil, nil
	}

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, err
	}
	unique := make(map[string]bool)
	for _, idx := range indexes {
		if idx.IsUnique && len(idx.Columns) == 1 {
			unique[idx.Columns[0]] = true
		}
	}

	columns := make([]schema.Column, 0, len(info))
	for _, r := range info {
		col := schema.Column{
			Name:     r.name,
			Type:     strings.ToLower(r.colType),
			Nullable: !r.notNull,
			IsUnique: r.pkOrdinal == 0 && unique[r.name],
		}
		if r.dflt.Valid {
			col.DefaultValue = &r.dflt.String
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func (e *SQLiteExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	info, err := e.tableInfo(ctx, tableName)
	if err != nil {
		return nil, err
	}

	var pk []string
	for ordinal := 1; ; ordinal++ {
		found := false
		for _, r := range info {
			if r.pkOrdinal == ordinal {
				pk = append(pk, r.name)
				found = true
			}
		}
		if !found {
			break
		}
	}
	return pk, nil
}

func (e *SQLiteExtractor) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.client.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, toCol, onUpdate, onDelete, match string

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		relations = append(relations, schema.Relation{
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol,
			Cardinality:  "N:1",
			OnDelete:     onDelete,
		})
	}

	return relations, rows.Err()
}

func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := e.client.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", tableName))
	if err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}

		// Primary key indexes are reported through PrimaryKey; UNIQUE
		// constraints keep their sqlite_autoindex entry.
		if origin == "pk" {
			continue
		}
		indexes = append(indexes, schema.Index{Name: name, IsUnique: unique == 1})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Columns are read after index_list is closed so the pool never needs
	// a second connection.
	kept := indexes[:0]
	for _, idx := range indexes {
		cols, err := e.indexColumns(ctx, idx.Name)
		if err != nil {
			return nil, err
		}
		if len(cols) > 0 {
			idx.Columns = cols
			kept = append(kept, idx)
		}
	}
	return kept, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", indexName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString
		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}

var namedCheck = regexp.MustCompile(`(?i)\bCONSTRAINT\s+(\w+)\s+CHECK\s*\(`)

// extractChecks parses named CHECK constraints out of the stored CREATE TABLE
// text; SQLite keeps no catalog of them.
func (e *SQLiteExtractor) extractChecks(ctx context.Context, tableName string) ([]schema.Check, error) {
	var ddl sql.NullString
	err := e.client.DB().QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", tableName).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ddl.Valid {
		return nil, nil
	}
	return parseChecks(ddl.String), nil
}

func parseChecks(ddl string) []schema.Check {
	var checks []schema.Check
	for _, m := range namedCheck.FindAllStringSubmatchIndex(ddl, -1) {
		open := m[1] - 1
		end := closingParen(ddl, open)
		if end < 0 {
			continue
		}
		checks = append(checks, schema.Check{
			Name: ddl[m[2]:m[3]],
			Expr: strings.TrimSpace(ddl[open+1 : end]),
		})
	}
	return checks
}

// closingParen returns the index of the parenthesis matching the one at
// open, skipping quoted literals, or -1.
func closingParen(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
