package schema

import "fmt"

// Schema represents a complete database schema
type Schema struct {
	Tables []Table
}

// Table represents a database table
type Table struct {
	Name        string
	Description string
	Columns     []Column
	Relations   []Relation
	Indexes     []Index
	Checks      []Check
	PrimaryKey  []string
	// Unique lists multi-column unique constraints. Single-column ones are
	// recorded on the column itself.
	Unique []Index
}

// Column represents a table column
type Column struct {
	Name         string
	Type         string
	Kind         Kind
	Size         int // varchar length or decimal precision
	Scale        int // decimal scale
	Nullable     bool
	DefaultValue *string
	IsUnique     bool
	EnumValues   []string
	Description  string
	// CheckConstraint is a human-readable rendering of the checks that
	// involve only this column.
	CheckConstraint *string
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
	Cardinality  string // 1:1, 1:N, N:1
	OnDelete     string // CASCADE, RESTRICT, NO ACTION, SET NULL, ...
}

// Index represents a database index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// Check is a named CHECK constraint. Expr is portable SQL; Dialect holds
// overrides keyed by dialect name for engines that need different syntax.
type Check struct {
	Name    string
	Columns []string
	Expr    string
	Dialect map[string]string
}

// ExprFor returns the check expression for the given dialect.
func (c Check) ExprFor(dialect string) string {
	if expr, ok := c.Dialect[dialect]; ok {
		return expr
	}
	return c.Expr
}

// Kind is the logical column type used when rendering DDL for a dialect.
type Kind int

const (
	KindUnknown Kind = iota
	KindSerial
	KindInteger
	KindBigInt
	KindVarchar
	KindDecimal
	KindDate
	KindBoolean
	KindTimestamp
)

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// TypeName renders a logical column type with standard SQL names.
func TypeName(kind Kind, size, scale int) string {
	switch kind {
	case KindSerial:
		return "serial"
	case KindInteger:
		return "integer"
	case KindBigInt:
		return "bigint"
	case KindVarchar:
		if size > 0 {
			return fmt.Sprintf("varchar(%d)", size)
		}
		return "varchar"
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", size, scale)
	case KindDate:
		return "date"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}
