package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
type Config struct {
	User      UserConfig      `yaml:"user"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type UserConfig struct {
	Name string `yaml:"name"`
	// Rating scale of the user's list source: 10 or 100
	ScoreScale int `yaml:"scoreScale"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type EmbeddingConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
	// If empty, read from env ANIREC_EMBED_API_KEY
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
	// Catalog items embedded per job page
	BatchSize int `yaml:"batchSize"`
}

type RerankConfig struct {
	Provider string `yaml:"provider"` // "gemini" or "none"
	Model    string `yaml:"model"`
	// If empty, read from env GEMINI_API_KEY
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
	// Consecutive failures before the breaker opens
	BreakerFailures uint32        `yaml:"breakerFailures"`
	BreakerCooldown time.Duration `yaml:"breakerCooldown"`
}

type PipelineConfig struct {
	TopN       int `yaml:"topN"`
	Oversample int `yaml:"oversample"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		User:    UserConfig{Name: "", ScoreScale: 100},
		Storage: StorageConfig{DBPath: "./animerec.db"},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			Timeout:   15 * time.Second,
			BatchSize: 100,
		},
		Rerank: RerankConfig{
			Provider:        "none",
			Model:           "gemini-1.5-flash-8b",
			Timeout:         8 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Pipeline: PipelineConfig{TopN: 10, Oversample: 5},
		Logging:  LoggingConfig{Level: "info"},
		Metrics:  MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("ANIREC_EMBED_API_KEY")
	}
	if c.Rerank.APIKey == "" && strings.EqualFold(c.Rerank.Provider, "gemini") {
		c.Rerank.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Validate reports the first setting that cannot drive the pipeline.
func (c Config) Validate() error {
	if c.Storage.DBPath == "" {
		return errors.New("storage.dbPath is required")
	}
	if c.User.ScoreScale != 10 && c.User.ScoreScale != 100 {
		return fmt.Errorf("user.scoreScale must be 10 or 100, got %d", c.User.ScoreScale)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.Pipeline.TopN <= 0 {
		return fmt.Errorf("pipeline.topN must be positive, got %d", c.Pipeline.TopN)
	}
	if c.Pipeline.Oversample < 1 {
		return fmt.Errorf("pipeline.oversample must be at least 1, got %d", c.Pipeline.Oversample)
	}
	switch strings.ToLower(c.Rerank.Provider) {
	case "", "none":
	case "gemini":
		if c.Rerank.APIKey == "" {
			return errors.New("rerank.apiKey or GEMINI_API_KEY is required for gemini")
		}
	default:
		return fmt.Errorf("unknown rerank.provider %q", c.Rerank.Provider)
	}
	return nil
}

// Load reads YAML config from path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
