package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"beefirst/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID serializes concurrent migrators across processes.
const migrationLockID = 7_274_001

// Migrate applies embedded migrations in lexical order. Applied files are
// recorded in schema_migrations and skipped on later runs.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := 0
	for _, name := range names {
		base := strings.TrimPrefix(name, "migrations/")
		ran, err := applyMigration(ctx, db, name, base)
		if err != nil {
			return err
		}
		if ran {
			applied++
			logger.InfoContext(ctx, "migration applied", "name", base)
		}
	}
	logger.InfoContext(ctx, "migrations complete", "total", len(names), "applied", applied)
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, path, name string) (bool, error) {
	body, err := migrationFS.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", name, err)
	}

	ran := false
	err = tx.Run(ctx, db, nil, func(ctx context.Context, t *sql.Tx) error {
		if _, err := t.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		var exists bool
		if err := t.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if exists {
			return nil
		}
		if _, err := t.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := t.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		ran = true
		return nil
	})
	return ran, err
}
