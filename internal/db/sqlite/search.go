package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/aerolab/internal/db"
)

// SearchKNN ranks the index's hashes by cosine similarity to q.Vector.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	def, err := s.index(ctx, q.IndexName)
	if err != nil {
		return nil, err
	}

	where, args := matchClause("v", def.Prefix, q.Tags)
	query := fmt.Sprintf(`SELECT v.key, %s(v.value, ?) AS score
		FROM hashes v
		WHERE v.field = ? AND %s
		ORDER BY score DESC, v.key
		LIMIT ?`, cosineFunc, where)
	args = append([]any{[]byte(db.EncodeVector(q.Vector)), q.Field()}, args...)
	args = append(args, q.K)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	var entries []db.SearchEntry
	for rows.Next() {
		var e db.SearchEntry
		if err := rows.Scan(&e.Key, &e.Score); err != nil {
			rows.Close()
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	if err := s.loadFields(ctx, entries, q.ReturnFields); err != nil {
		return nil, err
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchList pages through the index's hashes in key order.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	def, err := s.index(ctx, q.IndexName)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := matchClause("v", def.Prefix, q.Tags)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(DISTINCT v.key) FROM hashes v WHERE %s`, where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	pageQuery := fmt.Sprintf(`SELECT DISTINCT v.key FROM hashes v WHERE %s ORDER BY v.key LIMIT ? OFFSET ?`, where)
	rows, err := s.db.QueryContext(ctx, pageQuery, append(args, limit, q.Offset)...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	var entries []db.SearchEntry
	for rows.Next() {
		var e db.SearchEntry
		if err := rows.Scan(&e.Key); err != nil {
			rows.Close()
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	if err := s.loadFields(ctx, entries, q.ReturnFields); err != nil {
		return nil, err
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// loadFields fills Fields for each entry, restricted to returnFields when set.
func (s *Store) loadFields(ctx context.Context, entries []db.SearchEntry, returnFields []string) error {
	for i := range entries {
		all, err := s.HGetAll(ctx, entries[i].Key)
		if err != nil {
			return err
		}
		if len(returnFields) == 0 {
			entries[i].Fields = all
			continue
		}
		picked := make(map[string]string, len(returnFields))
		for _, f := range returnFields {
			if v, ok := all[f]; ok {
				picked[f] = v
			}
		}
		entries[i].Fields = picked
	}
	return nil
}

// matchClause builds the prefix and tag-equality predicate for rows of alias.
func matchClause(alias, prefix string, tags map[string]string) (string, []any) {
	var parts []string
	var args []any

	if prefix != "" {
		parts = append(parts, fmt.Sprintf("instr(%s.key, ?) = 1", alias))
		args = append(args, prefix)
	}

	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		parts = append(parts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM hashes t WHERE t.key = %s.key AND t.field = ? AND t.value = ?)", alias))
		args = append(args, k, []byte(tags[k]))
	}

	if len(parts) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(parts, " AND "), args
}
