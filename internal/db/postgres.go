package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/tordrt/cyberdisclosure/internal/ddl"
)

// PostgresClient manages a pooled connection to PostgreSQL
type PostgresClient struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadDSN, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool, db: stdlib.OpenDBFromPool(pool)}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	err := c.db.Close()
	c.pool.Close()
	return err
}

// Pool returns the underlying pgx pool
func (c *PostgresClient) Pool() *pgxpool.Pool {
	return c.pool
}

// DB returns a database/sql view of the pool
func (c *PostgresClient) DB() *sql.DB {
	return c.db
}

func (c *PostgresClient) Dialect() ddl.Dialect { return ddl.Postgres }

func (c *PostgresClient) DriverName() string { return "pgx" }
