// Package sqlite implements db.Store on an embedded SQLite file so the
// document index works without a Redis server.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modernc.org/sqlite"

	"github.com/kailas-cloud/aerolab/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS hashes (
	key   TEXT NOT NULL,
	field TEXT NOT NULL,
	value BLOB NOT NULL,
	PRIMARY KEY (key, field)
);

CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS indexes (
	name       TEXT PRIMARY KEY,
	definition TEXT NOT NULL
);
`

// cosineFunc is the SQL name of the similarity function used by SearchKNN.
const cosineFunc = "aerolab_cosine"

var registerOnce sync.Once
var registerErr error

// Store is a db.Store backed by a single SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction(cosineFunc, 2, cosine)
	})
	if registerErr != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: registerErr}
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &db.Error{Op: db.OpOpen, Err: err}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	conn.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("%s: %w", firstLine(stmt), err)}
		}
	}

	return &Store{db: conn, now: time.Now}, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady pings once; a local file is either usable or not.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("sqlite not ready: %w", err)
	}
	return nil
}

// cosine scores two FLOAT32 blobs. Rows whose vectors cannot be decoded
// score -1 and sort last.
func cosine(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, okA := blob(args[0])
	b, okB := blob(args[1])
	if !okA || !okB {
		return float64(-1), nil
	}
	va, errA := db.DecodeVector(a)
	vb, errB := db.DecodeVector(b)
	if errA != nil || errB != nil || len(va) != len(vb) {
		return float64(-1), nil
	}
	return db.CosineSimilarity(va, vb), nil
}

func blob(v driver.Value) (string, bool) {
	switch x := v.(type) {
	case []byte:
		return string(x), true
	case string:
		return x, true
	default:
		return "", false
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' && i > 0 {
			return s[:i]
		}
	}
	return s
}
