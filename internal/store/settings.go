package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const lastPatternKey = "last_pattern"

// SaveLastPattern records a confirmed discovery candidate.
func (s *Store) SaveLastPattern(ctx context.Context, offsets string) error {
	return s.setSetting(ctx, lastPatternKey, offsets)
}

// LastPattern returns the saved candidate, if any.
func (s *Store) LastPattern(ctx context.Context) (string, bool, error) {
	return s.setting(ctx, lastPatternKey)
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}
