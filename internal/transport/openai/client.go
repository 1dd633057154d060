// Package openai talks to OpenAI-compatible endpoints (OpenAI, Nebius,
// Gemini's compatibility layer) for embeddings and structured generation.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/retry"
)

// Config holds the provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // embeddings only
	User       string
	Provider   string // metrics label, defaults to "openai"
	Timeout    time.Duration
	Retry      retry.Config
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}

// parseAPIError extracts a human-readable error from the API response and
// wraps it with the given sentinel. Rate limits map to domain.ErrRateLimited.
func parseAPIError(provider, op string, err error, wrap error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	status, detail := 0, ""

	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		detail = extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		detail = apiErr.Message
	default:
		return &domain.ProviderError{Provider: provider, Err: fmt.Errorf("%s request failed: %w: %w", op, wrap, err)}
	}

	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s API error %d: %s: %w", op, status, detail, domain.ErrRateLimited)
	}
	return &domain.ProviderError{
		Provider:   provider,
		StatusCode: status,
		Err:        fmt.Errorf("%s API error: %s: %w", op, detail, wrap),
	}
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
