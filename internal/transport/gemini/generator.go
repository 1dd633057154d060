package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/metrics"
	"github.com/kailas-cloud/aerolab/internal/retry"
)

// Generator produces schema-constrained JSON with Gemini structured output.
type Generator struct {
	client *genai.Client
	cfg    Config
}

// NewGenerator creates a generator. Model defaults to gemini-2.5-flash-lite.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	client, err := newClient(ctx, &cfg, DefaultGenerationModel)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, cfg: cfg}, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.cfg.Model }

// GenerateJSON implements domain.Generator.
func (g *Generator) GenerateJSON(ctx context.Context, prompt string, schema domain.Schema) ([]byte, error) {
	var responseSchema map[string]any
	if err := json.Unmarshal(schema.JSON, &responseSchema); err != nil {
		return nil, fmt.Errorf("decode response schema %s: %w", schema.Name, err)
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: responseSchema,
	}

	start := time.Now()
	out, err := retry.Do(ctx, g.cfg.Retry, g.cfg.Logger, "gemini.generate", func() ([]byte, error) {
		resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), config)
		if err != nil {
			return nil, classify("generate content", err, domain.ErrGenerationProviderError)
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return nil, fmt.Errorf("gemini %s: %w", g.cfg.Model, domain.ErrEmptyGeneration)
		}
		return []byte(text), nil
	})
	metrics.ObserveGeneration(ProviderName, g.cfg.Model, schema.Name, time.Since(start), err)

	if err != nil {
		g.cfg.Logger.Warn("gemini generation failed",
			zap.String("model", g.cfg.Model),
			zap.String("schema", schema.Name),
			zap.Error(err),
		)
		return nil, err
	}
	return out, nil
}
