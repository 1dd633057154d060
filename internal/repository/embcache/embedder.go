// Package embcache memoizes embeddings in the key-value part of the vector
// store, with an optional in-process tier in front of it.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/db"
	"github.com/kailas-cloud/aerolab/internal/domain"
)

// DefaultKeyPrefix namespaces cache entries.
const DefaultKeyPrefix = "aerolab:emb_cache:"

// Values of the cache counter's "result" label.
const (
	resultLocalHit = "local_hit"
	resultHit      = "hit"
	resultMiss     = "miss"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder serves repeated texts without calling the provider.
// Entries are keyed by model, task type and text, so switching models never
// serves stale vectors. Hits report zero tokens.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	local   *cache.Cache
	model   string
	prefix  string
	ttl     time.Duration
	results *prometheus.CounterVec
	logger  *zap.Logger
}

// New wraps inner. results counts lookups by outcome and may be nil.
func New(
	inner domain.Embedder,
	s store,
	model string,
	results *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:   inner,
		store:   s,
		model:   model,
		prefix:  DefaultKeyPrefix,
		results: results,
		logger:  logger,
	}
}

// WithKeyPrefix overrides the key namespace.
func (c *CachedEmbedder) WithKeyPrefix(prefix string) *CachedEmbedder {
	c.prefix = prefix
	return c
}

// WithTTL expires stored entries after ttl. Zero keeps them forever.
func (c *CachedEmbedder) WithTTL(ttl time.Duration) *CachedEmbedder {
	c.ttl = ttl
	return c
}

// WithLocal keeps vectors in process memory for ttl in front of the store.
func (c *CachedEmbedder) WithLocal(ttl time.Duration) *CachedEmbedder {
	if ttl > 0 {
		c.local = cache.New(ttl, 2*ttl)
	}
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey("", text)
	if vec, ok := c.lookup(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.remember(ctx, key, result.Embedding)
	return result, nil
}

// EmbedTask implements domain.TaskEmbedder. Only the misses reach the inner
// embedder, in one call; the output keeps input order.
func (c *CachedEmbedder) EmbedTask(ctx context.Context, texts []string, task domain.TaskType) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	keys := make([]string, len(texts))
	var pending []int
	for i, text := range texts {
		keys[i] = c.cacheKey(task, text)
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			out.Embeddings[i] = vec
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	misses := make([]string, len(pending))
	for j, i := range pending {
		misses[j] = texts[i]
	}
	res, err := domain.EmbedWithTask(ctx, c.inner, misses, task)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(misses), err)
	}
	for j, i := range pending {
		out.Embeddings[i] = res.Embeddings[j]
		c.remember(ctx, keys[i], res.Embeddings[j])
	}
	out.PromptTokens, out.TotalTokens = res.PromptTokens, res.TotalTokens
	return out, nil
}

// HealthCheck forwards to the inner embedder when it can check itself.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := c.inner.(interface{ HealthCheck(context.Context) error })
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}

func (c *CachedEmbedder) cacheKey(task domain.TaskType, text string) string {
	h := sha256.New()
	for _, part := range []string{c.model, string(task), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

// lookup tries memory, then the store. A store hit warms memory. Store
// failures and corrupt entries count as misses.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	if c.local != nil {
		if v, ok := c.local.Get(key); ok {
			c.count(resultLocalHit)
			return v.([]float32), true
		}
	}

	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
	case err != nil:
		c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
	case len(data) > 0:
		vec, err := db.DecodeVector(string(data))
		if err != nil {
			c.logger.Warn("Dropping corrupt cached embedding", zap.String("key", key), zap.Error(err))
			break
		}
		c.count(resultHit)
		if c.local != nil {
			c.local.SetDefault(key, vec)
		}
		return vec, true
	}
	c.count(resultMiss)
	return nil, false
}

func (c *CachedEmbedder) remember(ctx context.Context, key string, vec []float32) {
	if c.local != nil {
		c.local.SetDefault(key, vec)
	}
	if err := c.store.SetWithTTL(ctx, key, []byte(db.EncodeVector(vec)), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.results != nil {
		c.results.WithLabelValues(result).Inc()
	}
}
