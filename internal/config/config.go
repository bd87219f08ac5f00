// Package config loads supertutor settings from defaults, an optional YAML
// file and SUPERTUTOR_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/supertutor/internal/coursegen"
	"github.com/abhisek/supertutor/internal/llm"
	"github.com/abhisek/supertutor/internal/logging"
	"github.com/abhisek/supertutor/internal/store"
)

// EnvPrefix is prepended to every environment override, e.g.
// SUPERTUTOR_SERVER_ADDR.
const EnvPrefix = "SUPERTUTOR"

// Document backends.
const (
	DocumentsSQL   = "sql"
	DocumentsRedis = "redis"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	LLM        llm.Config       `mapstructure:"llm"`
	Log        logging.Config   `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Generation coursegen.Config `mapstructure:"generation"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// DevToken enables POST /auth/token, which mints a token for any user
	// id. Never enable it on a public listener.
	DevToken bool `mapstructure:"dev_token"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// DSN is the database file or connection string. Empty means the
	// per-user default SQLite path.
	DSN string `mapstructure:"dsn"`
	// Documents selects where learner documents live: "sql" or "redis".
	// LLM request events always go to the SQL store.
	Documents string            `mapstructure:"documents"`
	Redis     store.RedisConfig `mapstructure:"redis"`
}

type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig bounds generation requests per user. Zero disables it.
type RateLimitConfig struct {
	PerMinute float64 `mapstructure:"per_minute"`
	Burst     int     `mapstructure:"burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
			RequestTimeout: 90 * time.Second,
		},
		Store: StoreConfig{
			Driver:    "sqlite",
			Documents: DocumentsSQL,
			Redis:     store.RedisConfig{Addr: "localhost:6379"},
		},
		LLM:        llm.DefaultConfig(),
		Log:        logging.DefaultConfig(),
		Auth:       AuthConfig{Issuer: "supertutor", TTL: 24 * time.Hour},
		RateLimit:  RateLimitConfig{PerMinute: 6, Burst: 3},
		Generation: coursegen.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.dev_token", d.Server.DevToken)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.documents", d.Store.Documents)
	v.SetDefault("store.redis.addr", d.Store.Redis.Addr)
	v.SetDefault("store.redis.password", d.Store.Redis.Password)
	v.SetDefault("store.redis.db", d.Store.Redis.DB)
	v.SetDefault("store.redis.key_prefix", d.Store.Redis.KeyPrefix)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", d.LLM.Anthropic.Model)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", d.LLM.OpenAI.BaseURL)
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", d.LLM.Gemini.Model)
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", d.LLM.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", d.LLM.OpenRouter.BaseURL)
	v.SetDefault("llm.retry.max_attempts", d.LLM.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", d.LLM.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", d.LLM.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", d.LLM.Retry.Multiplier)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("log.console", d.Log.Console)

	v.SetDefault("auth.secret", d.Auth.Secret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.ttl", d.Auth.TTL)

	v.SetDefault("ratelimit.per_minute", d.RateLimit.PerMinute)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)

	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	v.SetDefault("generation.temperature", d.Generation.Temperature)
	v.SetDefault("generation.structured", d.Generation.Structured)
	v.SetDefault("generation.history_window", d.Generation.HistoryWindow)
}

// Load reads configuration. When path is empty, ./supertutor.yaml is used
// if present. If the selected LLM provider has no key, the well-known
// provider key variables (GEMINI_API_KEY and friends) are probed.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("supertutor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if !cfg.LLM.HasKey() {
		if discovered, ok := llm.DiscoverConfig(cfg.LLM); ok {
			cfg.LLM = discovered
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "", "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Store.Documents {
	case DocumentsSQL:
	case DocumentsRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required when store.documents is redis")
		}
	default:
		return fmt.Errorf("unknown document backend %q", c.Store.Documents)
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("ratelimit values must not be negative")
	}
	if c.Generation.HistoryWindow <= 0 {
		return errors.New("generation.history_window must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
