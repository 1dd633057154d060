package docstats

import "context"

// TokenCounter reports how many model tokens a text occupies.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
