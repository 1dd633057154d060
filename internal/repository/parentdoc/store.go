// Package parentdoc keeps whole documentation entities on the local
// filesystem, one JSON file per key.
package parentdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kailas-cloud/aerolab/internal/domain/document"
	"github.com/kailas-cloud/aerolab/internal/fsutil"
)

const (
	fileExt         = ".json"
	cacheTTL        = 10 * time.Minute
	cacheCleanupInt = 20 * time.Minute
)

// ErrNotFound signals a key with no stored document.
var ErrNotFound = errors.New("parent document not found")

// Store is a key-value file store for parent documents with an in-memory
// read cache.
type Store struct {
	dir   string
	cache *cache.Cache
}

// New opens (and creates) the store directory.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create docstore %s: %w", dir, err)
	}
	return &Store{
		dir:   dir,
		cache: cache.New(cacheTTL, cacheCleanupInt),
	}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// HealthCheck verifies the store directory is still present.
func (s *Store) HealthCheck(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("docstore: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("docstore: %s is not a directory", s.dir)
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	if err := document.ValidateID(key); err != nil {
		return "", fmt.Errorf("docstore key %q: %w", key, err)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

// MSet writes every document under its ID.
func (s *Store) MSet(ctx context.Context, docs []document.Document) error {
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := s.path(doc.ID)
		if err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", doc.ID, err)
		}
		if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return err
		}
		s.cache.Set(doc.ID, doc, cache.DefaultExpiration)
	}
	return nil
}

// Get returns one document or ErrNotFound.
func (s *Store) Get(_ context.Context, key string) (document.Document, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.(document.Document), nil
	}
	path, err := s.path(key)
	if err != nil {
		return document.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document.Document{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return document.Document{}, fmt.Errorf("read %s: %w", key, err)
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document.Document{}, fmt.Errorf("decode %s: %w", key, err)
	}
	s.cache.Set(key, doc, cache.DefaultExpiration)
	return doc, nil
}

// MGet returns the documents found for keys, in key order. Missing keys are
// skipped.
func (s *Store) MGet(ctx context.Context, keys []string) ([]document.Document, error) {
	out := make([]document.Document, 0, len(keys))
	for _, key := range keys {
		doc, err := s.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		path, err := s.path(key)
		if err != nil {
			return err
		}
		s.cache.Delete(key)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// Keys lists stored keys in lexical order.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list docstore: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(keys)
	return keys, nil
}
