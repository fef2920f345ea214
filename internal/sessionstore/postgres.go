package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"peelojuice-staff/internal/database"
)

// PostgresStore keeps the session in the staff_session table. It suits
// shared terminals whose state lives next to other branch services.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db.SQL}
}

func (s *PostgresStore) Get(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders, args := keyArgs(keys)
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM staff_session WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, storageErr("query session", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, storageErr("scan session", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate session", err)
	}
	return out, nil
}

func (s *PostgresStore) SetAll(ctx context.Context, pairs map[string]string) error {
	return s.inTx(ctx, "set session", func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, key := range slices.Sorted(maps.Keys(pairs)) {
			value := pairs[key]
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO staff_session (key, value, updated_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
			`, key, value, now); err != nil {
				return fmt.Errorf("upsert %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) RemoveAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.inTx(ctx, "remove session", func(tx *sql.Tx) error {
		placeholders, args := keyArgs(keys)
		_, err := tx.ExecContext(ctx, `DELETE FROM staff_session WHERE key IN (`+placeholders+`)`, args...)
		return err
	})
}

func (s *PostgresStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return storageErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr(op, err)
	}
	return nil
}

func keyArgs(keys []string) (string, []any) {
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = key
	}
	return strings.Join(placeholders, ", "), args
}
