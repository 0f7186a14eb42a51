package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database represents the database connection and operations
type Database struct {
	DB *sql.DB
}

// New creates a new Database instance
func New(ctx context.Context, dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Verify connection
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Database{DB: db}, nil
}

// Init creates the required tables if they don't exist
func (d *Database) Init(ctx context.Context) error {
	createTables := `
	CREATE TABLE IF NOT EXISTS disposal_events (
		id UUID PRIMARY KEY,
		ts TIMESTAMPTZ NOT NULL,
		label TEXT NOT NULL,
		class_id INTEGER NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		bin TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS disposal_events_ts_idx ON disposal_events (ts);
	`

	_, err := d.DB.ExecContext(ctx, createTables)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}
