package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/config"
	"github.com/kailas-cloud/aerolab/internal/db"
	dbRedis "github.com/kailas-cloud/aerolab/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/aerolab/internal/db/sqlite"
	"github.com/kailas-cloud/aerolab/internal/domain"
	logpkg "github.com/kailas-cloud/aerolab/internal/logger"
	"github.com/kailas-cloud/aerolab/internal/metrics"
	planestore "github.com/kailas-cloud/aerolab/internal/repository/airplane"
	budgetrepo "github.com/kailas-cloud/aerolab/internal/repository/budget"
	"github.com/kailas-cloud/aerolab/internal/repository/chunk"
	"github.com/kailas-cloud/aerolab/internal/repository/embcache"
	"github.com/kailas-cloud/aerolab/internal/repository/parentdoc"
	"github.com/kailas-cloud/aerolab/internal/repository/planefile"
	"github.com/kailas-cloud/aerolab/internal/retry"
	"github.com/kailas-cloud/aerolab/internal/transport/gemini"
	openaiTransport "github.com/kailas-cloud/aerolab/internal/transport/openai"
	"github.com/kailas-cloud/aerolab/internal/usecase/airplane"
	"github.com/kailas-cloud/aerolab/internal/usecase/docindex"
	embeddinguc "github.com/kailas-cloud/aerolab/internal/usecase/embedding"
	"github.com/kailas-cloud/aerolab/internal/usecase/experiment"
	"github.com/kailas-cloud/aerolab/internal/usecase/usage"
	"github.com/kailas-cloud/aerolab/internal/version"
)

// app is the composition root shared by every command. Heavy dependencies
// (store, providers) are built on demand by the commands that need them.
type app struct {
	env      string
	logLevel string

	cfg     config.Config
	secrets config.Secrets
	logger  *zap.Logger

	store  db.Store
	budget *embeddinguc.BudgetTracker
}

func (a *app) init() error {
	if a.env == "" {
		a.env = config.GetEnv()
	}

	cfg, err := config.Load(a.env)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// no config file: run on defaults
		cfg, err = config.Parse(nil)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	a.logger, err = logpkg.NewLogger(a.env, level)
	if err != nil {
		return err
	}

	a.secrets, err = config.LoadSecrets()
	if err != nil {
		return err
	}

	a.logger.Debug("aerolab starting",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
	)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// openStore connects the configured database and waits until it answers.
func (a *app) openStore(ctx context.Context) (db.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	var (
		store db.Store
		err   error
	)
	switch a.cfg.Database.Driver {
	case config.DriverRedis:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    a.cfg.Database.Addrs,
			Password: a.cfg.Database.Password,
		})
	default:
		path := a.cfg.DatabasePath()
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create index dir: %w", mkErr)
		}
		store, err = dbSQLite.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Database.Driver, err)
	}

	if err := store.WaitForReady(ctx, a.cfg.ReadinessTimeout()); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("connected to database", zap.String("driver", a.cfg.Database.Driver))
	a.store = store
	return store, nil
}

func (a *app) retryConfig() retry.Config {
	rc := retry.DefaultConfig()
	if a.cfg.LLM.RetryAttempts > 0 {
		rc.Attempts = uint(a.cfg.LLM.RetryAttempts)
	}
	return rc
}

func (a *app) timeout() time.Duration {
	return time.Duration(a.cfg.LLM.TimeoutSec) * time.Second
}

// googleKey returns GOOGLE_API_KEY, asking for it on a terminal.
func (a *app) googleKey() (string, error) {
	var prompt func(string) (string, error)
	if stdinIsTerminal() {
		prompt = promptSecret
	}
	return a.secrets.GoogleKey(prompt)
}

// newGenerator builds the structured-output LLM client used by the
// experiment workflow.
func (a *app) newGenerator(ctx context.Context) (domain.Generator, error) {
	metrics.RegisterLLMMetrics()
	llm := a.cfg.LLM

	if llm.Provider == config.ProviderOpenAI {
		if a.secrets.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY environment variable is not set", config.ErrMissingSecret)
		}
		return openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:  a.secrets.OpenAIAPIKey,
			BaseURL: llm.BaseURL,
			Model:   llm.Model,
			Timeout: a.timeout(),
			Retry:   a.retryConfig(),
			Logger:  a.logger,
		}), nil
	}

	key, err := a.secrets.RequireGemini()
	if err != nil {
		return nil, err
	}
	return gemini.NewGenerator(ctx, gemini.Config{
		APIKey:  key,
		BaseURL: llm.BaseURL,
		Model:   llm.Model,
		Timeout: a.timeout(),
		Retry:   a.retryConfig(),
		Logger:  a.logger,
	})
}

// newEmbedder assembles the decorator chain: provider -> budget -> cache.
func (a *app) newEmbedder(ctx context.Context, store db.Store) (domain.Embedder, error) {
	metrics.RegisterEmbeddingMetrics()
	emb := a.cfg.Embedding

	var base domain.Embedder
	switch emb.Provider {
	case config.ProviderOpenAI:
		if a.secrets.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY environment variable is not set", config.ErrMissingSecret)
		}
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     a.secrets.OpenAIAPIKey,
			BaseURL:    emb.BaseURL,
			Model:      emb.Model,
			Dimensions: emb.Dimensions,
			Timeout:    a.timeout(),
			Retry:      a.retryConfig(),
			Logger:     a.logger,
		})
	default:
		key, err := a.googleKey()
		if err != nil {
			return nil, err
		}
		g, err := gemini.NewEmbedder(ctx, gemini.Config{
			APIKey:     key,
			BaseURL:    emb.BaseURL,
			Model:      emb.Model,
			Dimensions: emb.Dimensions,
			Timeout:    a.timeout(),
			Retry:      a.retryConfig(),
			Logger:     a.logger,
		})
		if err != nil {
			return nil, err
		}
		base = g
	}

	budgeted := embeddinguc.NewBudgetedEmbedder(base, emb.Provider, emb.Model, a.budgetTracker(ctx, store), a.logger).
		WithMaxBatchSize(emb.BatchSize)

	if !emb.Cache || store == nil {
		return budgeted, nil
	}
	return embcache.New(budgeted, store, emb.Model, metrics.EmbeddingCacheTotal, a.logger).
		WithKeyPrefix(a.cfg.Storage.KeyPrefix + "emb_cache:").
		WithTTL(time.Duration(emb.CacheTTLHours) * time.Hour).
		WithLocal(time.Duration(emb.CacheMemorySec) * time.Second), nil
}

// budgetTracker loads today's and this month's counters from the store.
// Without a store the counters live for the process only.
func (a *app) budgetTracker(ctx context.Context, store db.Store) *embeddinguc.BudgetTracker {
	if a.budget != nil {
		return a.budget
	}
	b := a.cfg.Embedding.Budget
	bt := embeddinguc.NewBudgetTracker(a.cfg.Embedding.Provider, b.DailyTokens, b.MonthlyTokens,
		embeddinguc.BudgetAction(b.Action), a.logger).
		WithKeyPrefix(a.cfg.Storage.KeyPrefix)
	if store != nil {
		bt = bt.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	}
	a.budget = bt
	return bt
}

// usage reports against the persisted counters without building an
// embedding provider, so it needs no API key.
func (a *app) usage(ctx context.Context) (*usage.Service, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return usage.New(a.budgetTracker(ctx, store)), nil
}

// docIndex wires the parent store, chunk repository and embedder. The
// returned embedder is exposed for health checks.
func (a *app) docIndex(ctx context.Context) (*docindex.Service, domain.Embedder, *parentdoc.Store, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	embedder, err := a.newEmbedder(ctx, store)
	if err != nil {
		return nil, nil, nil, err
	}
	parents, err := parentdoc.New(a.cfg.DocstoreDir())
	if err != nil {
		return nil, nil, nil, err
	}
	chunks := chunk.New(store, a.cfg.Storage.KeyPrefix)

	svc := docindex.New(parents, chunks, embedder, a.cfg.Embedding.Dimensions, a.logger).
		WithBatchSize(a.cfg.Embedding.BatchSize).
		WithConcurrency(a.cfg.Embedding.Concurrency)
	return svc, embedder, parents, nil
}

func (a *app) tokenCounter(ctx context.Context) (*gemini.TokenCounter, error) {
	metrics.RegisterLLMMetrics()
	key, err := a.googleKey()
	if err != nil {
		return nil, err
	}
	return gemini.NewTokenCounter(ctx, gemini.Config{
		APIKey:  key,
		Model:   a.cfg.Tokens.Model,
		Timeout: a.timeout(),
		Retry:   a.retryConfig(),
		Logger:  a.logger,
	})
}

func (a *app) airplanes() *airplane.Service {
	metrics.RegisterVLMMetrics()
	return airplane.New(planestore.New(), a.cfg.Paths.PlaneDir, a.logger).
		WithObserver(metrics.SolveObserver{})
}

func (a *app) planeFiles() *planefile.Repo {
	return planefile.New(a.cfg.Paths.PlaneDir)
}

func (a *app) experiments() *experiment.Service {
	metrics.RegisterVLMMetrics()
	an := a.cfg.Analysis
	return experiment.New(a.planeFiles(), a.logger).
		WithObserver(metrics.SolveObserver{}).
		WithSettings(experiment.Settings{
			Chordwise:          an.Chordwise,
			Spanwise:           an.Spanwise,
			MaxIterations:      an.MaxIterations,
			PenaltyRounds:      an.PenaltyRounds,
			MaxFuncEvaluations: an.MaxFuncEvaluations,
		})
}
