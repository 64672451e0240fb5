package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/basket/tasklist/internal/bus"
)

// KVSet stores val under key, replacing any previous value.
func (s *Store) KVSet(ctx context.Context, key, val string) error {
	err := retryOnBusy(ctx, busyRetries, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO kv_store (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP;
		`, key, val)
		return err
	})
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

// KVGet returns the value stored under key. ok is false when the key has
// never been written.
func (s *Store) KVGet(ctx context.Context, key string) (string, bool, error) {
	var val sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get: %w", err)
	}
	return val.String, true, nil
}

// KeyInfo describes one kv_store row without its value.
type KeyInfo struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// Keys lists the stored keys in key order.
func (s *Store) Keys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, COALESCE(LENGTH(value), 0), updated_at
		FROM kv_store
		ORDER BY key;
	`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var out []KeyInfo
	for rows.Next() {
		var k KeyInfo
		if err := rows.Scan(&k.Key, &k.Size, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keys rows: %w", err)
	}
	return out, nil
}

// Backup writes an online-consistent copy of the database to destPath using
// VACUUM INTO. An existing destination is never overwritten.
func (s *Store) Backup(ctx context.Context, destPath string) error {
	err := s.backup(ctx, destPath)
	s.bus.Publish(bus.TopicBackupCompleted, bus.BackupCompletedEvent{Path: destPath, Err: err})
	return err
}

func (s *Store) backup(ctx context.Context, destPath string) error {
	if destPath == "" {
		return fmt.Errorf("backup destination path required")
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("backup destination already exists: %s", destPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?;`, destPath); err != nil {
		return fmt.Errorf("backup (VACUUM INTO): %w", err)
	}
	return nil
}
