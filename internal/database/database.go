package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type DB struct {
	SQL *sql.DB
}

func New(ctx context.Context, databaseURL string, maxConns int) (*DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected", "max_conns", maxConns)
	return &DB{SQL: db}, nil
}

// Wrap adopts an already opened handle, e.g. one created by sqlmock.
func Wrap(db *sql.DB) *DB {
	return &DB{SQL: db}
}

func (db *DB) Close() {
	if db != nil && db.SQL != nil {
		_ = db.SQL.Close()
	}
}
