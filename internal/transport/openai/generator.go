package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/metrics"
	"github.com/kailas-cloud/aerolab/internal/retry"
)

// Generator asks a chat model for JSON using the json_schema response format.
type Generator struct {
	client *openai.Client
	cfg    Config
}

// NewGenerator creates a chat-completions generator.
func NewGenerator(cfg *Config) *Generator {
	c := *cfg
	client := newClient(&c)
	return &Generator{client: client, cfg: c}
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.cfg.Model }

// GenerateJSON implements domain.Generator.
func (g *Generator) GenerateJSON(ctx context.Context, prompt string, schema domain.Schema) ([]byte, error) {
	if !json.Valid(schema.JSON) {
		return nil, fmt.Errorf("response schema %s is not valid JSON", schema.Name)
	}

	req := openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: json.RawMessage(schema.JSON),
			},
		},
		User: g.cfg.User,
	}

	provider := g.cfg.Provider
	start := time.Now()
	out, err := retry.Do(ctx, g.cfg.Retry, g.cfg.Logger, provider+".generate", func() ([]byte, error) {
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, parseAPIError(provider, "chat completion", err, domain.ErrGenerationProviderError)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("%s %s: no choices: %w", provider, g.cfg.Model, domain.ErrEmptyGeneration)
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return nil, fmt.Errorf("%s %s: %w", provider, g.cfg.Model, domain.ErrEmptyGeneration)
		}
		return []byte(text), nil
	})
	metrics.ObserveGeneration(provider, g.cfg.Model, schema.Name, time.Since(start), err)

	if err != nil {
		g.cfg.Logger.Warn("generation failed",
			zap.String("provider", provider),
			zap.String("model", g.cfg.Model),
			zap.String("schema", schema.Name),
			zap.Error(err),
		)
		return nil, err
	}
	return out, nil
}
