// Package config loads service configuration from a TOML file with
// environment variable overrides. A .env file is honored if present so local
// development does not need exported keys.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/nefro313/jobfit-ai-backend/errors"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	LLM       LLMConfig       `toml:"llm"`
	Pipelines PipelinesConfig `toml:"pipelines"`
	RAG       RAGConfig       `toml:"rag"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     duration `toml:"read_timeout"`
	WriteTimeout    duration `toml:"write_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	BaseURL   string `toml:"base_url"`

	// APIKey is never read from TOML; it comes from the environment.
	APIKey string `toml:"-"`

	MaxRetries  int      `toml:"max_retries"`
	InitBackoff duration `toml:"init_backoff"`
	MaxBackoff  duration `toml:"max_backoff"`
}

// PipelinesConfig locates pipeline definitions and bounds task execution.
type PipelinesConfig struct {
	Dir         string   `toml:"dir"`
	TaskTimeout duration `toml:"task_timeout"`
}

// RAGConfig configures the document chunk index.
type RAGConfig struct {
	IndexPath    string   `toml:"index_path"`
	Documents    []string `toml:"documents"`
	ChunkSize    int      `toml:"chunk_size"`
	ChunkOverlap int      `toml:"chunk_overlap"`
}

// RateLimitConfig bounds request rates per client.
type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	Burst             int `toml:"burst"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// duration wraps time.Duration for TOML decoding from strings like "90s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     duration(30 * time.Second),
			WriteTimeout:    duration(5 * time.Minute),
			ShutdownTimeout: duration(15 * time.Second),
		},
		LLM: LLMConfig{
			Provider:  "google",
			Model:     "gemini-2.0-flash",
			MaxTokens: 8192,
		},
		Pipelines: PipelinesConfig{
			Dir:         "configs",
			TaskTimeout: duration(90 * time.Second),
		},
		RAG: RAGConfig{},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			Burst:             10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (optional), then applies environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	// Local development convenience; absence is fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrCodeConfig,
					fmt.Sprintf("failed to parse config file %s", path))
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrCodeConfig,
				fmt.Sprintf("failed to read config file %s", path))
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over file values. Provider API keys
// only ever come from the environment.
func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "JOBFIT_ADDR")
	setString(&c.LLM.Provider, "JOBFIT_LLM_PROVIDER")
	setString(&c.LLM.Model, "JOBFIT_LLM_MODEL")
	setString(&c.LLM.BaseURL, "JOBFIT_LLM_BASE_URL")
	setString(&c.Pipelines.Dir, "JOBFIT_PIPELINES_DIR")
	setString(&c.RAG.IndexPath, "JOBFIT_RAG_INDEX")
	setString(&c.Logging.Level, "JOBFIT_LOG_LEVEL")
	setInt(&c.RateLimit.RequestsPerMinute, "JOBFIT_RATE_LIMIT_RPM")

	switch c.LLM.Provider {
	case "google":
		setString(&c.LLM.APIKey, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	case "anthropic":
		setString(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
	case "openai":
		setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "google", "anthropic", "openai":
	default:
		return errors.New(errors.ErrCodeConfig,
			fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		return errors.New(errors.ErrCodeConfig, "llm model is required")
	}
	if c.Pipelines.Dir == "" {
		return errors.New(errors.ErrCodeConfig, "pipelines dir is required")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New(errors.ErrCodeConfig, "rate limits must not be negative")
	}
	return nil
}

func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
