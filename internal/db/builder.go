package db

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts an index over hashes under prefix.
func NewIndex(name, prefix string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, Prefix: prefix}}
}

func (b *IndexBuilder) add(name string, kind FieldKind, vec *VectorSpec) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{Name: name, Kind: kind, Vector: vec})
	return b
}

// Tag adds an exact-match field.
func (b *IndexBuilder) Tag(name string) *IndexBuilder { return b.add(name, FieldTag, nil) }

// Text adds a full-text field.
func (b *IndexBuilder) Text(name string) *IndexBuilder { return b.add(name, FieldText, nil) }

// Numeric adds a numeric field.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder { return b.add(name, FieldNumeric, nil) }

// Vector adds an embedding field.
func (b *IndexBuilder) Vector(name string, spec VectorSpec) *IndexBuilder {
	return b.add(name, FieldVector, &spec)
}

// Build validates and returns the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	def := b.def
	def.Fields = append([]Field(nil), b.def.Fields...)
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
