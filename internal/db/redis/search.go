package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/aerolab/internal/db"
)

// scoreField is the pseudo-field FT.SEARCH returns for KNN distance.
const scoreField = "__vector_score"

const defaultListLimit = 10

// SearchKNN finds the q.K nearest hashes with FT.SEARCH. The reply carries
// cosine distance, which is turned into similarity so both backends score
// alike.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, fmt.Errorf("index name is required")
	case len(q.Vector) == 0:
		return nil, fmt.Errorf("vector is required")
	case q.K <= 0:
		return nil, fmt.Errorf("k must be positive")
	}

	filter := tagFilter(q.Tags)
	if filter == "" {
		filter = "*"
	} else {
		filter = "(" + filter + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB]", filter, q.K, q.Field())

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = appendReturn(args, append(slices.Clone(q.ReturnFields), scoreField))
	}
	args = append(args,
		"SORTBY", scoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.EncodeVector(q.Vector),
		"DIALECT", "2",
	)

	reply, err := s.search(ctx, args)
	if err != nil {
		return nil, err
	}
	res, err := decodeReply(reply)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if d, err := strconv.ParseFloat(e.Fields[scoreField], 64); err == nil {
			e.Score = 1 - d
		}
		delete(e.Fields, scoreField)
	}
	return res, nil
}

// SearchList pages through an index in index order.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	filter := tagFilter(q.Tags)
	if filter == "" {
		filter = "*"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	args := []string{q.IndexName, filter, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(limit)}
	if len(q.ReturnFields) > 0 {
		args = appendReturn(args, q.ReturnFields)
	}

	reply, err := s.search(ctx, args)
	if err != nil {
		return nil, err
	}
	res, err := decodeReply(reply)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return res, nil
}

func (s *Store) search(ctx context.Context, args []string) ([]rueidis.RedisMessage, error) {
	reply, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return reply, nil
}

func appendReturn(args, fields []string) []string {
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	return append(args, fields...)
}

// decodeReply reads the RESP2 reply [total, key1, [f, v, ...], key2, ...].
// Entries that do not decode are skipped.
func decodeReply(reply []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(reply) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := reply[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(reply); i += 2 {
		key, err := reply[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := reply[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := make(map[string]string, len(pairs)/2)
		for j := 0; j+1 < len(pairs); j += 2 {
			name, errN := pairs[j].ToString()
			value, errV := pairs[j+1].ToString()
			if errN == nil && errV == nil {
				fields[name] = value
			}
		}
		res.Entries = append(res.Entries, db.SearchEntry{Key: key, Fields: fields})
	}
	return res, nil
}

// tagFilter turns equality constraints into "@k:{v} ..." with keys sorted
// so the query string is stable.
func tagFilter(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("@%s:{%s}", k, escapeTag(tags[k]))
	}
	return strings.Join(parts, " ")
}

// escapeTag backslash-escapes everything but letters, digits and '_', which
// is what the query parser treats as a tag token.
func escapeTag(v string) string {
	var sb strings.Builder
	sb.Grow(len(v))
	for _, r := range v {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
