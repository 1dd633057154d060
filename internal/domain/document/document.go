// Package document models the parent documents and child chunks of the
// API documentation index.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ErrInvalidDocument signals a document that cannot be indexed.
var ErrInvalidDocument = errors.New("invalid document")

// Type classifies a documentation file by its name.
type Type string

// Document types. Single-part names are assumed to be classes.
const (
	TypeClass  Type = "class"
	TypeMethod Type = "method"
)

// Metadata describes where a parent document came from.
type Metadata struct {
	Filename string `json:"filename"`
	FullName string `json:"full_name"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Parent   string `json:"parent,omitempty"`
	Source   string `json:"source"`
}

// ParseFilename derives metadata from a split-doc file name:
//
//	Airplane.txt          -> name Airplane, class
//	Airplane.draw.txt     -> name draw, method of Airplane
//	A.Nested.run.txt      -> name run, method of A.Nested
func ParseFilename(filename string) Metadata {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(stem, ".")

	m := Metadata{Filename: base, FullName: stem}
	if len(parts) == 1 {
		m.Name = parts[0]
		m.Type = TypeClass
		return m
	}
	m.Name = parts[len(parts)-1]
	m.Parent = strings.Join(parts[:len(parts)-1], ".")
	m.Type = TypeMethod
	return m
}

// Document is a whole documentation entity, returned to callers by search.
type Document struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// New validates and creates a Document.
func New(id, content string, meta Metadata) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Document{}, fmt.Errorf("%w: content is required", ErrInvalidDocument)
	}
	return Document{ID: id, Content: content, Metadata: meta}, nil
}

// ValidateID checks that id is safe to use as a storage key and file name.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: ID is required", ErrInvalidDocument)
	}
	if len(id) > 256 {
		return fmt.Errorf("%w: ID too long (max 256)", ErrInvalidDocument)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: ID must be alphanumeric with underscores and hyphens", ErrInvalidDocument)
	}
	return nil
}

// Chunk is a searchable slice of a parent document.
type Chunk struct {
	ID      string
	DocID   string
	Index   int
	Content string
	Vector  []float32
}

// Hit is a chunk ranked by similarity to a query.
type Hit struct {
	Chunk Chunk
	Score float64
}
