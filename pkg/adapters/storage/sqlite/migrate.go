package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Migration is a single forward schema change.
type Migration struct {
	Version     int
	Description string
	UpSQL       string
}

// migrations are applied in order. Version 1 matches the table created by
// earlier releases, so existing databases upgrade in place.
var migrations = []Migration{
	{
		Version:     1,
		Description: "create events table",
		UpSQL: `CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			image TEXT,
			status TEXT,
			platform TEXT,
			tag TEXT,
			message TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		Version:     2,
		Description: "add extra payload column",
		UpSQL:       `ALTER TABLE events ADD COLUMN extra TEXT`,
	},
	{
		Version:     3,
		Description: "index events by timestamp",
		UpSQL:       `CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp)`,
	},
}

// Migrator applies schema migrations and records them in schema_migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new migration handler.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// MigrateUp applies every migration that has not been recorded yet.
func (m *Migrator) MigrateUp(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Description, err)
		}
	}
	return nil
}

// AppliedVersions returns the set of recorded migration versions.
func (m *Migrator) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.UpSQL); err != nil {
		// A database created before migrations were tracked may already
		// have the column.
		if !strings.Contains(err.Error(), "duplicate column name") {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		mig.Version, mig.Description, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}

	return tx.Commit()
}
