// Package config loads embedtext settings from a YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/embedtext/internal/chunker"
	"github.com/dshills/embedtext/internal/embedder"
)

const (
	// DefaultFileName is read from the working directory when no path is given
	DefaultFileName = "embedtext.yaml"
	// DefaultDBPath is the database used when none is configured
	DefaultDBPath = "~/.embedtext/embedtext.db"

	EnvMaxLen = "EMBEDTEXT_MAXLEN"
	EnvDBPath = "EMBEDTEXT_DB_PATH"
)

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model,omitempty"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	APIKeyEnv   string   `yaml:"api_key_env,omitempty"`
	Command     []string `yaml:"command,omitempty"`
	Dimension   int      `yaml:"dimension,omitempty"`
	CacheSize   int      `yaml:"cache_size"`
	TimeoutSecs int      `yaml:"timeout_secs"`
	BatchSize   int      `yaml:"batch_size"`
}

// ChunkerConfig configures how corpora are split into chunks.
type ChunkerConfig struct {
	MaxLen int    `yaml:"maxlen"`
	Unit   string `yaml:"unit"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// IndexerConfig tunes index runs.
type IndexerConfig struct {
	Workers         int  `yaml:"workers,omitempty"`
	ContinueOnError bool `yaml:"continue_on_error"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Storage  StorageConfig  `yaml:"storage"`
	Indexer  IndexerConfig  `yaml:"indexer"`
}

// Default returns the configuration used when nothing is configured.
func Default() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{
			Provider:    embedder.ProviderLocal,
			CacheSize:   embedder.DefaultCacheSize,
			TimeoutSecs: int(embedder.DefaultTimeout / time.Second),
			BatchSize:   embedder.DefaultBatchSize,
		},
		Chunker: ChunkerConfig{MaxLen: chunker.DefaultMaxLen, Unit: chunker.UnitRunes.String()},
		Storage: StorageConfig{DBPath: DefaultDBPath},
	}
}

// Load reads .env, the YAML file at path and the environment, in increasing
// precedence. An empty path reads DefaultFileName if it exists.
func Load(path string) (*AppConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	var cfg AppConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads .env from the working directory. Variables already set win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv(embedder.EnvProvider); v != "" {
		cfg.Embedder.Provider = v
	}
	if v := os.Getenv(embedder.EnvModel); v != "" {
		cfg.Embedder.Model = v
	}
	if v := os.Getenv(embedder.EnvBaseURL); v != "" {
		cfg.Embedder.BaseURL = v
	}
	if v := os.Getenv(embedder.EnvCommand); v != "" {
		cfg.Embedder.Command = strings.Fields(v)
	}
	if v := os.Getenv(EnvMaxLen); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxLen, v, err)
		}
		cfg.Chunker.MaxLen = n
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Storage.DBPath = v
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Embedder.Provider == "" {
		// Local unless an API key is present
		cfg.Embedder.Provider = embedder.DetectProvider()
	}
	cfg.Embedder.Provider = strings.ToLower(cfg.Embedder.Provider)
	if cfg.Embedder.CacheSize == 0 {
		cfg.Embedder.CacheSize = def.Embedder.CacheSize
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = def.Embedder.TimeoutSecs
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Chunker.MaxLen == 0 {
		cfg.Chunker.MaxLen = def.Chunker.MaxLen
	}
	if cfg.Chunker.Unit == "" {
		cfg.Chunker.Unit = def.Chunker.Unit
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = def.Storage.DBPath
	}
}

// Validate reports the first invalid setting
func (c *AppConfig) Validate() error {
	switch c.Embedder.Provider {
	case embedder.ProviderLocal, embedder.ProviderJina, embedder.ProviderOpenAI, embedder.ProviderCommand:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedder.Provider)
	}
	if c.Chunker.MaxLen <= 0 {
		return fmt.Errorf("%w: got %d", chunker.ErrInvalidMaxLen, c.Chunker.MaxLen)
	}
	if _, err := chunker.ParseUnit(c.Chunker.Unit); err != nil {
		return err
	}
	if c.Embedder.BatchSize < 0 || c.Embedder.BatchSize > embedder.MaxBatchSize {
		return fmt.Errorf("batch_size must be between 1 and %d", embedder.MaxBatchSize)
	}
	return nil
}

// EmbedderConfig converts the settings to an embedder.Config
func (c *AppConfig) EmbedderConfig() embedder.Config {
	cfg := embedder.Config{
		Provider:  c.Embedder.Provider,
		Model:     c.Embedder.Model,
		BaseURL:   c.Embedder.BaseURL,
		Command:   c.Embedder.Command,
		Dimension: c.Embedder.Dimension,
		CacheSize: c.Embedder.CacheSize,
		Timeout:   time.Duration(c.Embedder.TimeoutSecs) * time.Second,
	}
	if c.Embedder.APIKeyEnv != "" {
		cfg.APIKey = os.Getenv(c.Embedder.APIKeyEnv)
	}
	return cfg
}

// Unit returns the configured chunk unit
func (c *AppConfig) Unit() chunker.Unit {
	u, _ := chunker.ParseUnit(c.Chunker.Unit)
	return u
}

// DBPath returns the database path with a leading ~ expanded
func (c *AppConfig) DBPath() (string, error) {
	return ExpandHome(c.Storage.DBPath)
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
