// Package store reads and writes the research dataset through sqlx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tordrt/cyberdisclosure/internal/db"
	"github.com/tordrt/cyberdisclosure/internal/ddl"
	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Store is a typed repository over the four dataset tables. A Store returned
// by WithTx is bound to that transaction.
type Store struct {
	db      *sqlx.DB
	q       sqlx.ExtContext
	dialect ddl.Dialect
}

// New wraps an open client. Placeholders are rebound for the client's driver.
func New(client db.Client) *Store {
	return NewFromDB(client.DB(), client.DriverName(), client.Dialect())
}

// NewFromDB wraps a database/sql handle directly
func NewFromDB(sqlDB *sql.DB, driverName string, dialect ddl.Dialect) *Store {
	x := sqlx.NewDb(sqlDB, driverName)
	return &Store{db: x, q: x, dialect: dialect}
}

// WithTx runs fn against a transaction-scoped Store, committing when fn
// returns nil and rolling back otherwise. Nested calls reuse the outer
// transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Store{q: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insert executes an INSERT and returns the generated key. PostgreSQL has no
// LastInsertId, so the key is read back with RETURNING.
func (s *Store) insert(ctx context.Context, query, idColumn string, args ...any) (int64, error) {
	query = s.q.Rebind(query)

	if s.dialect == ddl.Postgres {
		var id int64
		if err := s.q.QueryRowxContext(ctx, query+" RETURNING "+idColumn, args...).Scan(&id); err != nil {
			return 0, db.ClassifyError(err)
		}
		return id, nil
	}

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, db.ClassifyError(err)
	}
	return res.LastInsertId()
}

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, s.q, dest, s.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, s.q, dest, s.q.Rebind(query), args...)
}

// Stats returns row counts and the latest insertion time for every table
func (s *Store) Stats(ctx context.Context) ([]models.TableStats, error) {
	tables := []string{schema.TableCompanies, schema.TableStockPrices, schema.TableSECFilings, schema.TableIncidents}

	stats := make([]models.TableStats, 0, len(tables))
	for _, table := range tables {
		var (
			count  int64
			latest any
		)
		query := fmt.Sprintf("SELECT COUNT(*), MAX(created_at) FROM %s", table)
		if err := s.q.QueryRowxContext(ctx, query).Scan(&count, &latest); err != nil {
			return nil, fmt.Errorf("failed to read stats for %s: %w", table, err)
		}

		ts, err := asTime(latest)
		if err != nil {
			return nil, fmt.Errorf("failed to read stats for %s: %w", table, err)
		}
		stats = append(stats, models.TableStats{Table: table, Rows: count, LastCreated: ts})
	}
	return stats, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

// asTime converts an aggregate timestamp. SQLite returns MAX() over a
// timestamp column as text since aggregates carry no declared type.
func asTime(v any) (*time.Time, error) {
	var s string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	case []byte:
		s = string(t)
	case string:
		s = t
	default:
		return nil, fmt.Errorf("unexpected timestamp type %T", v)
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}
