package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/001_staff_session.up.sql
var staffSessionSQL string

const sessionTable = "staff_session"

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.SQL == nil {
		return fmt.Errorf("database handle is not initialized")
	}

	exists, err := db.hasTable(ctx, sessionTable)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}
	if exists {
		return nil
	}

	slog.Info("session table missing; applying migration", "table", sessionTable)
	if _, err := db.SQL.ExecContext(ctx, staffSessionSQL); err != nil {
		return fmt.Errorf("apply session migration: %w", err)
	}

	slog.Info("database schema ensured")
	return nil
}

func (db *DB) hasTable(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := db.SQL.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema()
			  AND table_name = $1
		)
	`, name).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
