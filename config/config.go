package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "cinevec.yaml"

	DefaultOutputFile    = "movie_embeddings.json"
	DefaultUsageFile     = "embedding_usage.json"
	DefaultWikiCacheFile = "wikipedia_cache.json"
)

type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	Output    OutputConfig    `yaml:"output"`
	Snapshot  SnapshotConfig  `yaml:"snapshot,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
}

type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // gemini | openai | ollama | cohere
	Model      string `yaml:"model,omitempty"`
	Endpoint   string `yaml:"endpoint,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	Dimensions int    `yaml:"dimensions,omitempty"`
	TaskType   string `yaml:"task_type,omitempty"`
}

type PipelineConfig struct {
	BatchSize   int `yaml:"batch_size"`
	RateLimitMs int `yaml:"rate_limit_ms"`
}

type WikipediaConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Only      bool   `yaml:"only,omitempty"`
	CacheFile string `yaml:"cache_file,omitempty"`
	DelayMs   int    `yaml:"delay_ms,omitempty"`
}

type OutputConfig struct {
	Format    string `yaml:"format"` // json | ndjson
	File      string `yaml:"file"`
	UsageFile string `yaml:"usage_file,omitempty"`
}

// SnapshotConfig points at a pre-built progress file in S3-compatible
// storage, fetched when no local progress file exists.
type SnapshotConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Object    string `yaml:"object,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
}

type StoreConfig struct {
	Backend  string         `yaml:"backend,omitempty"` // qdrant | postgres
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

type QdrantConfig struct {
	Endpoint   string `yaml:"endpoint,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	UseTLS     bool   `yaml:"use_tls,omitempty"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider: "gemini",
		},
		Pipeline: PipelineConfig{
			BatchSize:   10,
			RateLimitMs: 200,
		},
		Wikipedia: WikipediaConfig{
			Enabled:   false,
			CacheFile: DefaultWikiCacheFile,
			DelayMs:   100,
		},
		Output: OutputConfig{
			Format:    "json",
			File:      DefaultOutputFile,
			UsageFile: DefaultUsageFile,
		},
	}
}

// envOverrides mirrors the environment variable surface. Every field is
// optional; set variables win over the config file.
type envOverrides struct {
	Provider   string `envconfig:"EMBEDDING_PROVIDER"`
	Model      string `envconfig:"EMBEDDING_MODEL"`
	TaskType   string `envconfig:"TASK_TYPE"`
	Dimensions int    `envconfig:"DIMENSIONALITY"`

	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	CohereAPIKey   string `envconfig:"COHERE_API_KEY"`
	OllamaEndpoint string `envconfig:"OLLAMA_ENDPOINT"`

	OutputFormat string `envconfig:"OUTPUT_FORMAT"`
	OutputFile   string `envconfig:"OUTPUT_FILE"`
	UsageFile    string `envconfig:"USAGE_FILE"`

	BatchSize   int `envconfig:"BATCH_SIZE"`
	RateLimitMs int `envconfig:"RATE_LIMIT_MS"`

	EnableWikipedia    *bool  `envconfig:"ENABLE_WIKIPEDIA"`
	WikipediaOnly      *bool  `envconfig:"WIKIPEDIA_ONLY"`
	WikipediaCacheFile string `envconfig:"WIKIPEDIA_CACHE_FILE"`

	SnapshotEndpoint  string `envconfig:"SNAPSHOT_ENDPOINT"`
	SnapshotBucket    string `envconfig:"SNAPSHOT_BUCKET"`
	SnapshotObject    string `envconfig:"SNAPSHOT_OBJECT"`
	SnapshotAccessKey string `envconfig:"SNAPSHOT_ACCESS_KEY"`
	SnapshotSecretKey string `envconfig:"SNAPSHOT_SECRET_KEY"`
	SnapshotUseSSL    *bool  `envconfig:"SNAPSHOT_USE_SSL"`

	QdrantEndpoint   string `envconfig:"QDRANT_ENDPOINT"`
	QdrantPort       int    `envconfig:"QDRANT_PORT"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	PostgresDSN      string `envconfig:"POSTGRES_DSN"`
}

// Load builds the effective configuration: defaults, then the config file
// at path (or ./cinevec.yaml), then a .env file if present, then the
// process environment. The config file is optional unless a path was
// given explicitly.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if path == "" {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file, environment and defaults apply.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// .env is a developer convenience; a missing file is the normal case.
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.applyEnv(&env)
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv(env *envOverrides) {
	if env.Provider != "" {
		c.Embedding.Provider = env.Provider
	}
	if env.Model != "" {
		c.Embedding.Model = env.Model
	}
	if env.TaskType != "" {
		c.Embedding.TaskType = env.TaskType
	}
	if env.Dimensions > 0 {
		c.Embedding.Dimensions = env.Dimensions
	}
	if env.OllamaEndpoint != "" && c.Embedding.Provider == "ollama" {
		c.Embedding.Endpoint = env.OllamaEndpoint
	}

	if key := env.apiKeyFor(c.Embedding.Provider); key != "" {
		c.Embedding.APIKey = key
	}

	if env.OutputFormat != "" {
		c.Output.Format = env.OutputFormat
	}
	if env.OutputFile != "" {
		c.Output.File = env.OutputFile
	}
	if env.UsageFile != "" {
		c.Output.UsageFile = env.UsageFile
	}

	if env.BatchSize > 0 {
		c.Pipeline.BatchSize = env.BatchSize
	}
	if env.RateLimitMs > 0 {
		c.Pipeline.RateLimitMs = env.RateLimitMs
	}

	if env.EnableWikipedia != nil {
		c.Wikipedia.Enabled = *env.EnableWikipedia
	}
	if env.WikipediaOnly != nil {
		c.Wikipedia.Only = *env.WikipediaOnly
	}
	if env.WikipediaCacheFile != "" {
		c.Wikipedia.CacheFile = env.WikipediaCacheFile
	}

	if env.SnapshotEndpoint != "" {
		c.Snapshot.Endpoint = env.SnapshotEndpoint
	}
	if env.SnapshotBucket != "" {
		c.Snapshot.Bucket = env.SnapshotBucket
	}
	if env.SnapshotObject != "" {
		c.Snapshot.Object = env.SnapshotObject
	}
	if env.SnapshotAccessKey != "" {
		c.Snapshot.AccessKey = env.SnapshotAccessKey
	}
	if env.SnapshotSecretKey != "" {
		c.Snapshot.SecretKey = env.SnapshotSecretKey
	}
	if env.SnapshotUseSSL != nil {
		c.Snapshot.UseSSL = *env.SnapshotUseSSL
	}

	if env.QdrantEndpoint != "" {
		c.Store.Qdrant.Endpoint = env.QdrantEndpoint
		if c.Store.Backend == "" {
			c.Store.Backend = "qdrant"
		}
	}
	if env.QdrantPort > 0 {
		c.Store.Qdrant.Port = env.QdrantPort
	}
	if env.QdrantCollection != "" {
		c.Store.Qdrant.Collection = env.QdrantCollection
	}
	if env.QdrantAPIKey != "" {
		c.Store.Qdrant.APIKey = env.QdrantAPIKey
	}
	if env.PostgresDSN != "" {
		c.Store.Postgres.DSN = env.PostgresDSN
		if c.Store.Backend == "" {
			c.Store.Backend = "postgres"
		}
	}
}

func (e *envOverrides) apiKeyFor(providerName string) string {
	switch providerName {
	case "gemini":
		return e.GeminiAPIKey
	case "openai":
		return e.OpenAIAPIKey
	case "cohere":
		return e.CohereAPIKey
	default:
		return ""
	}
}

// applyDefaults fills values the file and environment left unset so
// older or partial config files keep working.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = defaults.Embedding.Provider
	}
	if c.Pipeline.BatchSize <= 0 {
		c.Pipeline.BatchSize = defaults.Pipeline.BatchSize
	}
	if c.Pipeline.RateLimitMs <= 0 {
		c.Pipeline.RateLimitMs = defaults.Pipeline.RateLimitMs
	}
	if c.Wikipedia.CacheFile == "" {
		c.Wikipedia.CacheFile = defaults.Wikipedia.CacheFile
	}
	if c.Wikipedia.DelayMs <= 0 {
		c.Wikipedia.DelayMs = defaults.Wikipedia.DelayMs
	}
	if c.Output.Format == "" {
		c.Output.Format = defaults.Output.Format
	}
	if c.Output.File == "" {
		c.Output.File = defaults.Output.File
	}
	if c.Output.UsageFile == "" {
		c.Output.UsageFile = defaults.Output.UsageFile
	}
	if c.Store.Backend == "qdrant" && c.Store.Qdrant.Port <= 0 {
		c.Store.Qdrant.Port = 6334
	}
}

// Save writes the configuration to path in YAML form.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists reports whether a config file is present at path (or the
// default location when path is empty).
func Exists(path string) bool {
	if path == "" {
		path = ConfigFileName
	}
	_, err := os.Stat(path)
	return err == nil
}
