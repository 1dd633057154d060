package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/aerolab/internal/db"
)

// CreateIndex records an index definition. Documents are matched by key
// prefix at query time, so no data is copied.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if def == nil {
		return &db.Error{Op: db.OpCreateIndex, Err: errors.New("index definition is required")}
	}
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO indexes (name, definition) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		def.Name, string(raw))
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return db.ErrIndexExists
	}
	return nil
}

// DropIndex removes an index definition. Indexed hashes are kept, as with
// FT.DROPINDEX without DD.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM indexes WHERE name = ?`, name)
	if err != nil {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return db.ErrIndexNotFound
	}
	return nil
}

// IndexExists reports whether an index definition is stored.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	_, err := s.index(ctx, name)
	if errors.Is(err, db.ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) index(ctx context.Context, name string) (*db.IndexDefinition, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM indexes WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrIndexNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	var def db.IndexDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, &db.Error{Op: db.OpIndexInfo, Err: fmt.Errorf("decode %s: %w", name, err)}
	}
	return &def, nil
}
