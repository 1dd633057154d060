// Package retry wraps avast/retry-go with the policy shared by provider clients.
package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
)

const (
	defaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
	defaultMaxDelay = 8 * time.Second
)

// Config is the retry policy of one provider client.
type Config struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultConfig returns three attempts with exponential backoff.
func DefaultConfig() Config {
	return Config{
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
		MaxDelay: defaultMaxDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.Attempts == 0 {
		c.Attempts = defaultAttempts
	}
	if c.Delay <= 0 {
		c.Delay = defaultDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	return c
}

// Options converts the policy into retry-go options. Only transient
// provider errors are retried.
func (c Config) Options(ctx context.Context, logger *zap.Logger, op string) []retry.Option {
	c = c.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.Attempts),
		retry.Delay(c.Delay),
		retry.MaxDelay(c.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(domain.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying provider call",
				zap.String("op", op),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	}
}

// Do runs fn under the policy and returns its value.
func Do[T any](ctx context.Context, c Config, logger *zap.Logger, op string, fn func() (T, error)) (T, error) {
	return retry.DoWithData(fn, c.Options(ctx, logger, op)...)
}
