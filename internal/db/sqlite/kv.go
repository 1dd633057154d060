package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/aerolab/internal/db"
)

// Get retrieves a value by key. Expired entries are removed and reported missing.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	if expiresAt != 0 && expiresAt <= s.now().UnixMilli() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ? AND expires_at = ?`, key, expiresAt)
		return nil, db.ErrKeyNotFound
	}
	return value, nil
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, key, value, 0)
}

// SetWithTTL stores a value that expires after ttl.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.set(ctx, key, value, 0)
	}
	return s.set(ctx, key, value, s.now().Add(ttl).UnixMilli())
}

func (s *Store) set(ctx context.Context, key string, value []byte, expiresAt int64) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return &db.Error{Op: db.OpSet, Key: key, Err: err}
	}
	return nil
}

// incrSQL adds ?2 to the counter at ?1 in one statement. An expired row
// restarts from zero with the new expiry ?3; a live row keeps its expiry
// unless it had none. ?4 is the current time in unix millis.
const incrSQL = `INSERT INTO kv (key, value, expires_at) VALUES (?1, CAST(?2 AS TEXT), ?3)
	ON CONFLICT (key) DO UPDATE SET
		value = CAST(
			CASE WHEN kv.expires_at != 0 AND kv.expires_at <= ?4 THEN 0
			ELSE CAST(CAST(kv.value AS TEXT) AS INTEGER) END + ?2 AS TEXT),
		expires_at = CASE
			WHEN kv.expires_at = 0 OR kv.expires_at <= ?4 THEN excluded.expires_at
			ELSE kv.expires_at END
	RETURNING CAST(value AS TEXT)`

// IncrBy adds delta to the decimal counter at key and returns the new value.
// The ttl applies only when the counter is created or has no expiry.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	now := s.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixMilli()
	}

	var raw string
	if err := s.db.QueryRowContext(ctx, incrSQL, key, delta, expiresAt, now.UnixMilli()).Scan(&raw); err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Key: key, Err: err}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Key: key, Err: fmt.Errorf("value %q: %w", raw, err)}
	}
	return n, nil
}
