package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/cyberdisclosure/internal/ddl"
	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// ErrSchemaDrift is matched by the error Migrate returns when tables that
// already existed still differ from the canonical schema.
var ErrSchemaDrift = errors.New("existing tables differ from the canonical schema")

// DriftError lists what Migrate could not bring in line. CREATE TABLE IF NOT
// EXISTS leaves existing tables untouched, so constraints missing from them
// are never added.
type DriftError struct {
	Drifts []schema.Drift
}

func (e *DriftError) Error() string {
	lines := make([]string, len(e.Drifts))
	for i, d := range e.Drifts {
		lines[i] = d.String()
	}
	return fmt.Sprintf("%v: %s", ErrSchemaDrift, strings.Join(lines, "; "))
}

func (e *DriftError) Unwrap() error { return ErrSchemaDrift }

// Migrate creates the canonical dataset schema on the client's database and
// then verifies the result. Safe to call multiple times. A *DriftError is
// returned when pre-existing tables lack columns or constraints.
func Migrate(ctx context.Context, client Client) error {
	want := schema.Dataset()
	if err := ApplySchema(ctx, client.DB(), client.Dialect(), want); err != nil {
		return err
	}

	extractor, err := NewSchemaExtractor(ctx, client, "")
	if err != nil {
		return err
	}
	names := make([]string, len(want.Tables))
	for i, t := range want.Tables {
		names[i] = t.Name
	}
	got, err := extractor.ExtractSchema(ctx, names)
	if err != nil {
		return fmt.Errorf("failed to verify migration: %w", err)
	}

	if drifts := schema.Compare(want, got); len(drifts) > 0 {
		return &DriftError{Drifts: drifts}
	}
	return nil
}

// ApplySchema renders s for the dialect and executes every statement in a
// single transaction. MySQL commits DDL implicitly, so a failure there can
// leave earlier tables in place; they are recreated idempotently on retry.
func ApplySchema(ctx context.Context, db *sql.DB, dialect ddl.Dialect, s *schema.Schema) error {
	stmts, err := ddl.Render(s, dialect)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
