package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bracketeer/internal/exposure"
)

// CacheStats summarizes the metadata cache.
type CacheStats struct {
	Entries int
	Oldest  time.Time
	Newest  time.Time
}

// LookupRecord returns the cached record for path when size and modification
// time still match.
func (s *Store) LookupRecord(ctx context.Context, path string, size int64, modTime time.Time) (exposure.Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT captured_at, bias_num, bias_den, exposure_time, f_number, iso, model, exposure_mode
         FROM records WHERE path = ? AND size = ? AND mod_time = ?`,
		path, size, formatTime(modTime),
	)
	var (
		captured      string
		num, den      int64
		exposureTime  float64
		fNumber       float64
		iso, modeCode int
		model         string
	)
	err := row.Scan(&captured, &num, &den, &exposureTime, &fNumber, &iso, &model, &modeCode)
	if errors.Is(err, sql.ErrNoRows) {
		return exposure.Record{}, false, nil
	}
	if err != nil {
		return exposure.Record{}, false, fmt.Errorf("lookup record: %w", err)
	}
	return exposure.Record{
		FileID:       path,
		CapturedAt:   parseTime(captured),
		Bias:         exposure.NewEV(num, den),
		ExposureTime: exposureTime,
		FNumber:      fNumber,
		ISO:          iso,
		Model:        model,
		Mode:         exposure.Mode(modeCode),
	}, true, nil
}

// StoreRecord inserts or replaces the cached record for path.
func (s *Store) StoreRecord(ctx context.Context, path string, size int64, modTime time.Time, rec exposure.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (path, size, mod_time, captured_at, bias_num, bias_den,
             exposure_time, f_number, iso, model, exposure_mode, cached_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             size = excluded.size, mod_time = excluded.mod_time, captured_at = excluded.captured_at,
             bias_num = excluded.bias_num, bias_den = excluded.bias_den,
             exposure_time = excluded.exposure_time, f_number = excluded.f_number, iso = excluded.iso,
             model = excluded.model, exposure_mode = excluded.exposure_mode, cached_at = excluded.cached_at`,
		path, size, formatTime(modTime), formatTime(rec.CapturedAt),
		rec.Bias.Num(), rec.Bias.Den(),
		rec.ExposureTime, rec.FNumber, rec.ISO, rec.Model, int(rec.Mode),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

// ForgetRecord drops the cache entry for path.
func (s *Store) ForgetRecord(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE path = ?`, path); err != nil {
		return fmt.Errorf("forget record: %w", err)
	}
	return nil
}

// CacheStats reports the number of cached records and their age range.
func (s *Store) CacheStats(ctx context.Context) (CacheStats, error) {
	var (
		stats          CacheStats
		oldest, newest sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), MIN(cached_at), MAX(cached_at) FROM records`)
	if err := row.Scan(&stats.Entries, &oldest, &newest); err != nil {
		return CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	stats.Oldest = parseTime(oldest.String)
	stats.Newest = parseTime(newest.String)
	return stats, nil
}

// ClearCache removes every cached record and returns how many were removed.
func (s *Store) ClearCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
