package db

import (
	"fmt"
	"strings"
)

// FieldKind is the type of an indexed hash field.
type FieldKind string

// Field kinds, named after their FT.CREATE schema types.
const (
	FieldTag     FieldKind = "TAG"
	FieldText    FieldKind = "TEXT"
	FieldNumeric FieldKind = "NUMERIC"
	FieldVector  FieldKind = "VECTOR"
)

// HNSW graph parameters used when a VectorSpec leaves them zero.
const (
	DefaultHNSWM              = 16
	DefaultHNSWEFConstruction = 200
)

// VectorSpec describes an embedding field. Vectors are FLOAT32 and compared
// by cosine distance on both backends.
type VectorSpec struct {
	Dim            int `json:"dim"`
	M              int `json:"m,omitempty"`
	EFConstruction int `json:"ef_construction,omitempty"`
}

// GraphParams returns M and EF_CONSTRUCTION with defaults applied.
func (v VectorSpec) GraphParams() (m, ef int) {
	m, ef = v.M, v.EFConstruction
	if m <= 0 {
		m = DefaultHNSWM
	}
	if ef <= 0 {
		ef = DefaultHNSWEFConstruction
	}
	return m, ef
}

// Field is one indexed hash field. Vector is set only for FieldVector.
type Field struct {
	Name   string      `json:"name"`
	Kind   FieldKind   `json:"kind"`
	Vector *VectorSpec `json:"vector,omitempty"`
}

// IndexDefinition covers the hashes whose keys start with Prefix. The redis
// backend sends it as FT.CREATE; the sqlite backend stores it as JSON.
type IndexDefinition struct {
	Name   string  `json:"name"`
	Prefix string  `json:"prefix"`
	Fields []Field `json:"fields"`
}

// VectorField returns the first vector field of the index.
func (idx *IndexDefinition) VectorField() (Field, bool) {
	for _, f := range idx.Fields {
		if f.Kind == FieldVector {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return fmt.Errorf("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return fmt.Errorf("index %s: at least one field is required", idx.Name)
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i, f := range idx.Fields {
		if f.Name == "" {
			return fmt.Errorf("index %s: field %d has no name", idx.Name, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("index %s: duplicate field name %q", idx.Name, f.Name)
		}
		seen[f.Name] = true

		switch f.Kind {
		case FieldTag, FieldText, FieldNumeric:
			if f.Vector != nil {
				return fmt.Errorf("index %s: %s field %q cannot carry vector options", idx.Name, f.Kind, f.Name)
			}
		case FieldVector:
			if f.Vector == nil || f.Vector.Dim <= 0 {
				return fmt.Errorf("index %s: vector field %q requires positive DIM", idx.Name, f.Name)
			}
		default:
			return fmt.Errorf("index %s: field %q has unknown kind %q", idx.Name, f.Name, f.Kind)
		}
	}
	return nil
}

// String renders the schema for logs, e.g. "chunks[c:] doc_id:TAG vector:VECTOR(768)".
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s]", idx.Name, idx.Prefix)
	for _, f := range idx.Fields {
		fmt.Fprintf(&sb, " %s:%s", f.Name, f.Kind)
		if f.Vector != nil {
			fmt.Fprintf(&sb, "(%d)", f.Vector.Dim)
		}
	}
	return sb.String()
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
