package domain

import "context"

// Schema is a JSON Schema document in its serialized form. Providers convert
// it into whatever structured-output format their API expects.
type Schema struct {
	Name string
	JSON []byte
}

// Generator asks a language model for a JSON answer constrained by a schema.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema Schema) ([]byte, error)
}

// TokenCounter reports how many model tokens a text occupies.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
