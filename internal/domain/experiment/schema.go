package experiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kailas-cloud/aerolab/internal/domain"
)

const schemaBaseURL = "https://aerolab.local/schemas/"

type schemaEntry struct {
	name   string
	build  func() (*jsonschema.Schema, error)
	once   sync.Once
	raw    []byte
	schema *sjsonschema.Schema
	err    error
}

func (e *schemaEntry) load() error {
	e.once.Do(func() {
		s, err := e.build()
		if err != nil {
			e.err = fmt.Errorf("derive %s schema: %w", e.name, err)
			return
		}
		e.raw, err = json.Marshal(s)
		if err != nil {
			e.err = fmt.Errorf("encode %s schema: %w", e.name, err)
			return
		}
		e.schema, e.err = compile(e.name, e.raw)
	})
	return e.err
}

func compile(name string, raw []byte) (*sjsonschema.Schema, error) {
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", name, err)
	}
	url := schemaBaseURL + name + ".json"
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return s, nil
}

var (
	variablesSchema = &schemaEntry{name: "variables", build: func() (*jsonschema.Schema, error) {
		s, err := jsonschema.For[VariableSet](nil)
		if err != nil {
			return nil, err
		}
		enrichVariables(s.Properties["variables"])
		return s, nil
	}}
	constraintsSchema = &schemaEntry{name: "constraints", build: func() (*jsonschema.Schema, error) {
		s, err := jsonschema.For[ConstraintSet](nil)
		if err != nil {
			return nil, err
		}
		enrichConstraints(s.Properties["constraints"])
		enrichObjective(s.Properties["objective"])
		return s, nil
	}}
	specSchema = &schemaEntry{name: "spec", build: func() (*jsonschema.Schema, error) {
		s, err := jsonschema.For[Spec](nil)
		if err != nil {
			return nil, err
		}
		enrichVariables(s.Properties["variables"])
		enrichConstraints(s.Properties["constraints"])
		enrichObjective(s.Properties["objective"])
		return s, nil
	}}
)

func enumOf(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func setEnum(s *jsonschema.Schema, prop string, values []string) {
	if s == nil || s.Properties[prop] == nil {
		return
	}
	s.Properties[prop].Enum = enumOf(values)
}

func enrichVariables(arr *jsonschema.Schema) {
	if arr == nil {
		return
	}
	setEnum(arr.Items, "name", VariableNames)
}

func enrichConstraints(arr *jsonschema.Schema) {
	if arr == nil {
		return
	}
	setEnum(arr.Items, "quantity", Quantities)
	setEnum(arr.Items, "op", Operators)
}

func enrichObjective(obj *jsonschema.Schema) {
	scalars := make([]string, 0, len(Quantities))
	for _, q := range Quantities {
		if !IsVector(q) {
			scalars = append(scalars, q)
		}
	}
	setEnum(obj, "quantity", scalars)
	setEnum(obj, "sense", Senses)
}

func schemaFor(e *schemaEntry) (domain.Schema, error) {
	if err := e.load(); err != nil {
		return domain.Schema{}, err
	}
	return domain.Schema{Name: e.name, JSON: e.raw}, nil
}

// VariablesSchema returns the JSON Schema for a generated VariableSet.
func VariablesSchema() (domain.Schema, error) { return schemaFor(variablesSchema) }

// ConstraintsSchema returns the JSON Schema for a generated ConstraintSet.
func ConstraintsSchema() (domain.Schema, error) { return schemaFor(constraintsSchema) }

// SpecSchema returns the JSON Schema for a complete experiment document.
func SpecSchema() (domain.Schema, error) { return schemaFor(specSchema) }

func validateJSON(e *schemaEntry, raw []byte) error {
	if err := e.load(); err != nil {
		return err
	}
	inst, err := sjsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: not valid JSON: %v", ErrInvalidSpec, err)
	}
	if err := e.schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return nil
}

func isBlank(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null"))
}

// ParseVariables validates and decodes a generated variable set.
func ParseVariables(raw []byte) (VariableSet, error) {
	if isBlank(raw) {
		return VariableSet{}, ErrEmptySpec
	}
	if err := validateJSON(variablesSchema, raw); err != nil {
		return VariableSet{}, err
	}
	var vs VariableSet
	if err := json.Unmarshal(raw, &vs); err != nil {
		return VariableSet{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := vs.Validate(); err != nil {
		return VariableSet{}, err
	}
	return vs, nil
}

// ParseConstraints validates and decodes a generated constraint set.
func ParseConstraints(raw []byte) (ConstraintSet, error) {
	if isBlank(raw) {
		return ConstraintSet{}, ErrEmptySpec
	}
	if err := validateJSON(constraintsSchema, raw); err != nil {
		return ConstraintSet{}, err
	}
	var cs ConstraintSet
	if err := json.Unmarshal(raw, &cs); err != nil {
		return ConstraintSet{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := cs.Validate(); err != nil {
		return ConstraintSet{}, err
	}
	return cs, nil
}

// ParseSpec validates and decodes a complete experiment document in JSON.
func ParseSpec(raw []byte) (Spec, error) {
	if isBlank(raw) {
		return Spec{}, ErrEmptySpec
	}
	if err := validateJSON(specSchema, raw); err != nil {
		return Spec{}, err
	}
	var s Spec
	if err := json.Unmarshal(raw, &s); err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}
