package db

import (
	"context"
	"fmt"

	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// SchemaExtractor reads table metadata from a live database
type SchemaExtractor interface {
	// ExtractSchema extracts the given tables, or every table when tables is empty
	ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error)
}

// NewSchemaExtractor returns the extractor matching the client's engine.
// schemaName is used by PostgreSQL and MySQL; empty picks the engine default.
func NewSchemaExtractor(ctx context.Context, client Client, schemaName string) (SchemaExtractor, error) {
	switch c := client.(type) {
	case *PostgresClient:
		if schemaName == "" {
			schemaName = "public"
		}
		return NewExtractor(c, schemaName), nil
	case *MySQLClient:
		if schemaName == "" {
			schemaName = c.DatabaseName()
		}
		if schemaName == "" {
			if err := c.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&schemaName); err != nil {
				return nil, fmt.Errorf("failed to determine database name: %w", err)
			}
		}
		return NewMySQLExtractor(c, schemaName), nil
	case *SQLiteClient:
		return NewSQLiteExtractor(c), nil
	default:
		return nil, fmt.Errorf("schema extraction not supported for %T", client)
	}
}

// tableExtractor is implemented by each engine; extractTables drives it
type tableExtractor interface {
	getTableNames(ctx context.Context, requested []string) ([]string, error)
	extractColumns(ctx context.Context, tableName string) ([]schema.Column, error)
	extractPrimaryKey(ctx context.Context, tableName string) ([]string, error)
	extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error)
	extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error)
	extractChecks(ctx context.Context, tableName string) ([]schema.Check, error)
}

func extractTables(ctx context.Context, e tableExtractor, tables []string) (*schema.Schema, error) {
	var extractedTables []schema.Table

	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, err := extractTable(ctx, e, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		extractedTables = append(extractedTables, *table)
	}

	return &schema.Schema{Tables: extractedTables}, nil
}

func extractTable(ctx context.Context, e tableExtractor, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}
	table.Columns = columns

	if table.PrimaryKey, err = e.extractPrimaryKey(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	if table.Relations, err = e.extractRelations(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	if table.Indexes, err = e.extractIndexes(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	if table.Checks, err = e.extractChecks(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract checks: %w", err)
	}

	return table, nil
}
