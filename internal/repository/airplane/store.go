// Package airplane persists built airplanes as versioned JSON documents.
package airplane

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	"github.com/kailas-cloud/aerolab/internal/fsutil"
)

// Format identifies airplane documents.
const Format = "aerolab.airplane"

// Version is the document version written by Save.
const Version = 1

var (
	// ErrUnknownFormat signals a JSON file that is not an airplane document.
	ErrUnknownFormat = errors.New("not an airplane document")
	// ErrUnsupportedVersion signals a document written by a newer release.
	ErrUnsupportedVersion = errors.New("unsupported airplane document version")
)

type document struct {
	Format   string            `json:"format"`
	Version  int               `json:"version"`
	SavedAt  time.Time         `json:"saved_at"`
	Airplane geometry.Airplane `json:"airplane"`
}

// Store reads and writes airplane documents on the local filesystem.
type Store struct {
	now func() time.Time
}

// New creates a Store.
func New() *Store {
	return &Store{now: time.Now}
}

// Save writes a atomically; readers never see a partial document.
func (s *Store) Save(path string, a *geometry.Airplane) error {
	doc := document{Format: Format, Version: Version, SavedAt: s.now().UTC(), Airplane: *a}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode airplane: %w", err)
	}

	return fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// Load reads an airplane document.
func (s *Store) Load(path string) (geometry.Airplane, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return geometry.Airplane{}, fmt.Errorf("load airplane: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return geometry.Airplane{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if doc.Format != Format {
		return geometry.Airplane{}, fmt.Errorf("%s: %w (format %q)", path, ErrUnknownFormat, doc.Format)
	}
	if doc.Version < 1 || doc.Version > Version {
		return geometry.Airplane{}, fmt.Errorf("%s: %w %d", path, ErrUnsupportedVersion, doc.Version)
	}
	return doc.Airplane, nil
}
