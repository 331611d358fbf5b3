package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantKind       ConstraintKind
		wantConstraint string
	}{
		{
			name:           "postgres unique",
			err:            fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "companies_ticker_key"}),
			wantKind:       Unique,
			wantConstraint: "companies_ticker_key",
		},
		{
			name:           "postgres check",
			err:            &pgconn.PgError{Code: "23514", ConstraintName: "chk_stock_prices_closing_price"},
			wantKind:       Check,
			wantConstraint: "chk_stock_prices_closing_price",
		},
		{
			name:           "postgres foreign key",
			err:            &pgconn.PgError{Code: "23503", ConstraintName: "fk_stock_prices_company_id"},
			wantKind:       ForeignKey,
			wantConstraint: "fk_stock_prices_company_id",
		},
		{
			name:           "postgres not null",
			err:            &pgconn.PgError{Code: "23502", ColumnName: "ticker"},
			wantKind:       NotNull,
			wantConstraint: "ticker",
		},
		{
			name:           "mysql duplicate",
			err:            &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'AAPL' for key 'companies.ticker'"},
			wantKind:       Unique,
			wantConstraint: "companies.ticker",
		},
		{
			name:           "mysql check",
			err:            &mysql.MySQLError{Number: 3819, Message: "Check constraint 'chk_companies_ticker_format' is violated."},
			wantKind:       Check,
			wantConstraint: "chk_companies_ticker_format",
		},
		{
			name:     "mysql child row",
			err:      &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails"},
			wantKind: ForeignKey,
		},
		{
			name:           "mysql null",
			err:            &mysql.MySQLError{Number: 1048, Message: "Column 'ticker' cannot be null"},
			wantKind:       NotNull,
			wantConstraint: "ticker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyError(tt.err)

			var ce *ConstraintError
			require.True(t, errors.As(err, &ce), "expected ConstraintError, got %T", err)
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, tt.wantConstraint, ce.Constraint)
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, IsConstraint(err, tt.wantKind))
		})
	}
}

func TestClassifyErrorPassThrough(t *testing.T) {
	assert.NoError(t, ClassifyError(nil))

	plain := errors.New("connection reset")
	assert.Same(t, plain, ClassifyError(plain))

	undefinedTable := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(undefinedTable), ClassifyError(undefinedTable))

	lockTimeout := &mysql.MySQLError{Number: 1205}
	assert.Equal(t, error(lockTimeout), ClassifyError(lockTimeout))

	assert.False(t, IsConstraint(plain, Unique))
}

func TestConstraintErrorMessage(t *testing.T) {
	base := errors.New("boom")

	named := &ConstraintError{Kind: Check, Constraint: "chk_x", Err: base}
	assert.Equal(t, "check constraint chk_x violated: boom", named.Error())

	anon := &ConstraintError{Kind: ForeignKey, Err: base}
	assert.Equal(t, "foreign key constraint violated: boom", anon.Error())

	assert.Equal(t, "unknown", ConstraintKind(0).String())
}
