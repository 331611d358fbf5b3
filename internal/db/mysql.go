package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/tordrt/cyberdisclosure/internal/ddl"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db     *sql.DB
	dbName string
}

// NewMySQLClient creates a new MySQL client. DATE and TIMESTAMP columns are
// always scanned as time.Time.
func NewMySQLClient(ctx context.Context, connString string) (*MySQLClient, error) {
	cfg, err := mysql.ParseDSN(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadDSN, err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db, dbName: cfg.DBName}, nil
}

// DatabaseName is the database selected by the connection string, or empty
func (c *MySQLClient) DatabaseName() string {
	return c.dbName
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// DB returns the underlying database connection
func (c *MySQLClient) DB() *sql.DB {
	return c.db
}

func (c *MySQLClient) Dialect() ddl.Dialect { return ddl.MySQL }

func (c *MySQLClient) DriverName() string { return "mysql" }
