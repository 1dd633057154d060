package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrMissingSecret signals a required API key that is not set.
var ErrMissingSecret = errors.New("missing secret")

// Secrets holds credentials read from the environment, never from YAML.
type Secrets struct {
	GeminiAPIKey string   `env:"GEMINI_API_KEY"`
	GoogleAPIKey string   `env:"GOOGLE_API_KEY"`
	OpenAIAPIKey string   `env:"OPENAI_API_KEY"`
	HTTPAPIKeys  []string `env:"AEROLAB_HTTP_API_KEYS" envSeparator:","`
}

// LoadSecrets loads an optional .env file and parses the process environment.
// A missing .env file is not an error.
func LoadSecrets(envFiles ...string) (Secrets, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Secrets{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return ParseSecrets(nil)
}

// ParseSecrets reads secrets from the given environment map, or from the
// process environment when environ is nil.
func ParseSecrets(environ map[string]string) (Secrets, error) {
	var opts env.Options
	if environ != nil {
		opts.Environment = environ
	}
	s, err := env.ParseAsWithOptions[Secrets](opts)
	if err != nil {
		return Secrets{}, fmt.Errorf("parse secrets: %w", err)
	}
	s.HTTPAPIKeys = compact(s.HTTPAPIKeys)
	return s, nil
}

// RequireGemini returns the Gemini key used by the experiment workflow.
func (s Secrets) RequireGemini() (string, error) {
	if strings.TrimSpace(s.GeminiAPIKey) == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY environment variable is not set", ErrMissingSecret)
	}
	return s.GeminiAPIKey, nil
}

// GoogleKey returns the key for embeddings and token counting. When it is
// unset and prompt is non-nil, prompt is asked for it.
func (s *Secrets) GoogleKey(prompt func(title string) (string, error)) (string, error) {
	if k := strings.TrimSpace(s.GoogleAPIKey); k != "" {
		return k, nil
	}
	if prompt == nil {
		return "", fmt.Errorf("%w: GOOGLE_API_KEY environment variable is not set", ErrMissingSecret)
	}
	k, err := prompt("Enter API key for Google Gemini")
	if err != nil {
		return "", fmt.Errorf("read GOOGLE_API_KEY: %w", err)
	}
	k = strings.TrimSpace(k)
	if k == "" {
		return "", fmt.Errorf("%w: GOOGLE_API_KEY is empty", ErrMissingSecret)
	}
	s.GoogleAPIKey = k
	return k, nil
}

// ProviderKey picks the key for a provider name.
func (s Secrets) ProviderKey(provider string) string {
	if provider == ProviderOpenAI {
		return s.OpenAIAPIKey
	}
	if s.GeminiAPIKey != "" {
		return s.GeminiAPIKey
	}
	return s.GoogleAPIKey
}

func compact(keys []string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
