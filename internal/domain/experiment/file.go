package experiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/aerolab/internal/fsutil"
)

// DecodeYAML validates a YAML experiment document. YAML is converted to
// JSON first so both formats go through the same schema.
func DecodeYAML(data []byte) (Spec, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if doc == nil {
		return Spec{}, ErrEmptySpec
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return ParseSpec(raw)
}

// EncodeYAML renders a spec as YAML with two-space indentation.
func EncodeYAML(s Spec) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode experiment: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode experiment: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadSpec reads and validates an experiment file.
func LoadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Spec{}, fmt.Errorf("read experiment %s: %w", path, err)
	}
	s, err := DecodeYAML(data)
	if err != nil {
		return Spec{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadTemplate reads an experiment template. Templates may leave variables,
// constraints and objective empty, so only YAML syntax is checked.
func LoadTemplate(path string) (Spec, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Spec{}, fmt.Errorf("read template %s: %w", path, err)
	}
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("%s: %w: %v", path, ErrInvalidSpec, err)
	}
	return s, nil
}

// SaveSpec validates s and writes it to path, creating parent directories.
func SaveSpec(path string, s Spec) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := EncodeYAML(s)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write experiment %s: %w", path, err)
	}
	return nil
}
