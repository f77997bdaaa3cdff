package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"BUBBLE_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"BUBBLE_DB_MAX_CONNS" default:"8"`

	IngestUserAgent string `envconfig:"INGEST_USER_AGENT" default:"OutsideYourBubbleBot/0.1 (+https://outsideyourbubble.example)"`
	IngestSources   string `envconfig:"INGEST_SOURCES_JSON" default:""`
	NoveltyWindow   int    `envconfig:"NOVELTY_WINDOW" default:"200"`

	TranslateEnabled   bool `envconfig:"INGEST_TRANSLATE" default:"false"`
	TranslateMaxTotal  int  `envconfig:"INGEST_TRANSLATE_MAX_TOTAL" default:"20000"`
	TranslateChunkSize int  `envconfig:"INGEST_TRANSLATE_CHUNK" default:"3500"`

	OllamaBaseURL string `envconfig:"OLLAMA_BASE_URL" default:"http://127.0.0.1:11434"`
	OllamaModels  string `envconfig:"OLLAMA_MODELS" default:""`

	QualityModelURL string `envconfig:"QUALITY_MODEL_URL" default:""`

	ServeHost string `envconfig:"BUBBLE_SERVE_HOST" default:"127.0.0.1"`
	ServePort int    `envconfig:"BUBBLE_SERVE_PORT" default:"8090"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("BUBBLE_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("BUBBLE_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("BUBBLE_DB_MIN_CONNS (%d) cannot exceed BUBBLE_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.NoveltyWindow < 1 {
		return fmt.Errorf("NOVELTY_WINDOW must be >= 1")
	}
	if c.TranslateMaxTotal < 0 {
		return fmt.Errorf("INGEST_TRANSLATE_MAX_TOTAL must be >= 0")
	}
	if c.TranslateChunkSize < 1 {
		return fmt.Errorf("INGEST_TRANSLATE_CHUNK must be >= 1")
	}
	if c.ServePort < 1 || c.ServePort > 65535 {
		return fmt.Errorf("BUBBLE_SERVE_PORT must be in 1..65535")
	}
	return nil
}

// OllamaModelList splits the configured comma-separated model candidates.
func (c *Config) OllamaModelList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.OllamaModels, ",")
	models := make([]string, 0, len(parts))
	for _, part := range parts {
		model := strings.TrimSpace(part)
		if model == "" {
			continue
		}
		models = append(models, model)
	}
	return models
}
