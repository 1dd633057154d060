package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported backends and providers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds the aerolab configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Tokens    TokensConfig    `yaml:"tokens"`
	Paths     PathsConfig     `yaml:"paths"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // sqlite, redis (default: sqlite)
	Path             string   `yaml:"path"`   // sqlite file, relative paths resolve against paths.index_dir
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// LLMConfig holds generation provider settings.
type LLMConfig struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	RetryAttempts int    `yaml:"retry_attempts"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	BaseURL     string `yaml:"base_url"`
	Cache       bool   `yaml:"cache"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`

	// CacheTTLHours expires stored vectors; 0 keeps them.
	CacheTTLHours int `yaml:"cache_ttl_hours"`
	// CacheMemorySec keeps hot vectors in process memory; 0 disables it.
	CacheMemorySec int `yaml:"cache_memory_sec"`

	Budget BudgetConfig `yaml:"budget"`
}

// BudgetConfig caps embedding token spend. Zero limits mean unlimited.
type BudgetConfig struct {
	DailyTokens   int64  `yaml:"daily_tokens"`
	MonthlyTokens int64  `yaml:"monthly_tokens"`
	Action        string `yaml:"action"` // warn, reject (default: warn)
}

// Budget actions.
const (
	BudgetWarn   = "warn"
	BudgetReject = "reject"
)

// TokensConfig holds token counting settings.
type TokensConfig struct {
	Model       string `yaml:"model"`
	Concurrency int    `yaml:"concurrency"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	PlaneDir       string `yaml:"plane_dir"`
	PromptsDir     string `yaml:"prompts_dir"`
	ExperimentsDir string `yaml:"experiments_dir"`
	ResultsDir     string `yaml:"results_dir"`
	CleanDocsDir   string `yaml:"clean_docs_dir"`
	IndexDir       string `yaml:"index_dir"`
}

// AnalysisConfig holds solver and optimizer settings.
type AnalysisConfig struct {
	Chordwise          int `yaml:"chordwise"`
	Spanwise           int `yaml:"spanwise"`
	MaxIterations      int `yaml:"max_iterations"`
	PenaltyRounds      int `yaml:"penalty_rounds"`
	MaxFuncEvaluations int `yaml:"max_func_evaluations"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, expanding ${VAR} references first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "aerolab.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "aerolab:"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.5-flash-lite"
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = 3
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderGemini
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "gemini-embedding-001"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 4
	}
	if c.Embedding.Budget.Action == "" {
		c.Embedding.Budget.Action = BudgetWarn
	}

	if c.Tokens.Model == "" {
		c.Tokens.Model = "gemini-2.0-flash"
	}
	if c.Tokens.Concurrency <= 0 {
		c.Tokens.Concurrency = 8
	}

	c.Paths.applyDefaults()

	if c.Analysis.Chordwise <= 0 {
		c.Analysis.Chordwise = 8
	}
	if c.Analysis.Spanwise <= 0 {
		c.Analysis.Spanwise = 1
	}
	if c.Analysis.MaxIterations <= 0 {
		c.Analysis.MaxIterations = 200
	}
	if c.Analysis.PenaltyRounds <= 0 {
		c.Analysis.PenaltyRounds = 5
	}
	if c.Analysis.MaxFuncEvaluations <= 0 {
		c.Analysis.MaxFuncEvaluations = 20000
	}
}

func (p *PathsConfig) applyDefaults() {
	if p.PlaneDir == "" {
		p.PlaneDir = "plane-definition"
	}
	if p.PromptsDir == "" {
		p.PromptsDir = "prompts"
	}
	if p.ExperimentsDir == "" {
		p.ExperimentsDir = "experiments"
	}
	if p.ResultsDir == "" {
		p.ResultsDir = "experiment-results"
	}
	if p.CleanDocsDir == "" {
		p.CleanDocsDir = "clean_docs"
	}
	if p.IndexDir == "" {
		p.IndexDir = "index"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", DriverRedis)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverRedis, c.Database.Driver)
	}
	if err := validateProvider("llm.provider", c.LLM.Provider); err != nil {
		return err
	}
	if err := validateProvider("embedding.provider", c.Embedding.Provider); err != nil {
		return err
	}
	if b := c.Embedding.Budget; b.Action != BudgetWarn && b.Action != BudgetReject {
		return fmt.Errorf("embedding.budget.action must be %q or %q, got %q", BudgetWarn, BudgetReject, b.Action)
	}
	if b := c.Embedding.Budget; b.DailyTokens < 0 || b.MonthlyTokens < 0 {
		return fmt.Errorf("embedding.budget limits must not be negative")
	}
	if c.Embedding.CacheTTLHours < 0 || c.Embedding.CacheMemorySec < 0 {
		return fmt.Errorf("embedding cache lifetimes must not be negative")
	}
	if c.Analysis.Chordwise > 64 || c.Analysis.Spanwise > 64 {
		return fmt.Errorf("analysis resolution above 64 panels per section is not supported")
	}
	return nil
}

func validateProvider(field, provider string) error {
	switch provider {
	case ProviderGemini, ProviderOpenAI:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q, got %q", field, ProviderGemini, ProviderOpenAI, provider)
}

// DatabasePath resolves the sqlite file against the index directory.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.Paths.IndexDir, c.Database.Path)
}

// DocstoreDir is where parent documents live.
func (c *Config) DocstoreDir() string {
	return filepath.Join(c.Paths.IndexDir, "docstore")
}

// ReadinessTimeout returns the database readiness timeout.
func (c *Config) ReadinessTimeout() time.Duration {
	return time.Duration(c.Database.ReadinessTimeout) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
