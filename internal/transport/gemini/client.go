// Package gemini adapts the Google Gemini API to the domain generation,
// embedding and token-counting contracts.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/retry"
)

// ProviderName labels metrics and errors.
const ProviderName = "gemini"

// Default models.
const (
	DefaultGenerationModel = "gemini-2.5-flash-lite"
	DefaultEmbeddingModel  = "gemini-embedding-001"
	DefaultTokensModel     = "gemini-2.0-flash"
)

// Config holds the settings of one Gemini-backed component.
type Config struct {
	APIKey     string
	BaseURL    string // empty means the public endpoint
	Model      string
	Dimensions int // embeddings only, 0 keeps the model default
	Timeout    time.Duration
	Retry      retry.Config
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func newClient(ctx context.Context, cfg *Config, defaultModel string) (*genai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: %w", domain.ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// classify maps SDK errors onto domain errors. 429 becomes ErrRateLimited,
// other HTTP failures become a ProviderError carrying the status.
func classify(op string, err error, sentinel error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("%s: %s: %w", op, apiErr.Message, domain.ErrRateLimited)
		}
		return &domain.ProviderError{
			Provider:   ProviderName,
			StatusCode: apiErr.Code,
			Err:        fmt.Errorf("%s: %s: %w", op, apiErr.Message, sentinel),
		}
	}

	return &domain.ProviderError{
		Provider: ProviderName,
		Err:      fmt.Errorf("%s: %w: %w", op, sentinel, err),
	}
}
