package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ConstraintKind classifies integrity violations reported by the database
type ConstraintKind int

const (
	Unique ConstraintKind = iota + 1
	Check
	ForeignKey
	NotNull
)

func (k ConstraintKind) String() string {
	switch k {
	case Unique:
		return "unique"
	case Check:
		return "check"
	case ForeignKey:
		return "foreign key"
	case NotNull:
		return "not null"
	default:
		return "unknown"
	}
}

// ConstraintError is an integrity violation rejected by the database.
// Constraint holds the constraint or column name when the engine reports it.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s constraint %s violated: %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s constraint violated: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraint reports whether err is a constraint violation of the given kind
func IsConstraint(err error, kind ConstraintKind) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Kind == kind
}

// ClassifyError converts driver-specific integrity errors into a
// *ConstraintError. Other errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := postgresKinds[pgErr.Code]; ok {
			name := pgErr.ConstraintName
			if name == "" {
				name = pgErr.ColumnName
			}
			return &ConstraintError{Kind: kind, Constraint: name, Err: err}
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if kind, ok := mysqlKinds[myErr.Number]; ok {
			return &ConstraintError{Kind: kind, Constraint: quotedName(myErr.Message), Err: err}
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		if kind, ok := sqliteKinds[liteErr.ExtendedCode]; ok {
			return &ConstraintError{Kind: kind, Constraint: afterColon(liteErr.Error()), Err: err}
		}
	}

	return err
}

var postgresKinds = map[string]ConstraintKind{
	"23505": Unique,
	"23514": Check,
	"23503": ForeignKey,
	"23502": NotNull,
}

var mysqlKinds = map[uint16]ConstraintKind{
	1062: Unique,     // ER_DUP_ENTRY
	3819: Check,      // ER_CHECK_CONSTRAINT_VIOLATED
	1451: ForeignKey, // ER_ROW_IS_REFERENCED_2
	1452: ForeignKey, // ER_NO_REFERENCED_ROW_2
	1048: NotNull,    // ER_BAD_NULL_ERROR
	1364: NotNull,    // ER_NO_DEFAULT_FOR_FIELD
}

var sqliteKinds = map[sqlite3.ErrNoExtended]ConstraintKind{
	sqlite3.ErrConstraintUnique:     Unique,
	sqlite3.ErrConstraintPrimaryKey: Unique,
	sqlite3.ErrConstraintCheck:      Check,
	sqlite3.ErrConstraintForeignKey: ForeignKey,
	sqlite3.ErrConstraintNotNull:    NotNull,
}

// quotedName pulls the constraint name out of MySQL messages such as
// "Check constraint 'chk_x' is violated." or "Duplicate entry 'A' for key 'companies.ticker'".
func quotedName(msg string) string {
	parts := strings.Split(msg, "'")
	if len(parts) < 3 {
		return ""
	}
	// The key name is the last quoted token.
	return parts[len(parts)-2]
}

// afterColon extracts the detail SQLite appends to constraint messages,
// e.g. "CHECK constraint failed: chk_x" -> "chk_x".
func afterColon(msg string) string {
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return strings.TrimSpace(msg[i+2:])
	}
	return ""
}
