// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`  // 0 keeps long-lived event streams open
	RateLimitRPS float64       `yaml:"rate_limit_rps"` // per-client requests/sec on generate routes
	RateBurst    int           `yaml:"rate_burst"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	DefaultProvider string            `yaml:"default_provider"` // gemini | openai | noop
	DefaultModel    string            `yaml:"default_model"`
	ModelProviders  map[string]string `yaml:"model_providers"` // model -> provider
	GeminiKey       string            `yaml:"gemini_key"`
	GeminiURL       string            `yaml:"gemini_url"`
	GeminiModel     string            `yaml:"gemini_model"`
	OpenAIKey       string            `yaml:"openai_key"`
	OpenAIBaseURL   string            `yaml:"openai_base_url"` // OpenAI-compatible gateways (Metis, OpenRouter)
	OpenAIModel     string            `yaml:"openai_model"`
	MaxOutputTokens int               `yaml:"max_output_tokens"`
	ConcurrentLimit int               `yaml:"concurrent_limit"` // max concurrent provider calls
	AcquireTimeout  time.Duration     `yaml:"acquire_timeout"`  // default 60s, must stay below sweeper.stale_after
	MaxAttempts     int               `yaml:"max_attempts"`
	BaseBackoff     time.Duration     `yaml:"base_backoff"`
	Jitter          *bool             `yaml:"jitter"`
	MaxJitter       time.Duration     `yaml:"max_jitter"`
}

// JitterEnabled defaults to true when unset.
func (c AIConfig) JitterEnabled() bool {
	return c.Jitter == nil || *c.Jitter
}

type QuotaConfig struct {
	Enabled bool           `yaml:"enabled"`
	Window  time.Duration  `yaml:"window"`
	Limits  map[string]int `yaml:"limits"` // job kind -> free jobs per window
}

type AuthConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type SweeperConfig struct {
	Cron       string        `yaml:"cron"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type ContextConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
	MaxChars int           `yaml:"max_chars"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Quota    QuotaConfig    `yaml:"quota"`
	Auth     AuthConfig     `yaml:"auth"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Context  ContextConfig  `yaml:"context"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML, applies env overrides and defaults, and validates.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.Secret == "" && !dev {
		return nil, errors.New("auth.secret is required")
	}
	switch cfg.AI.DefaultProvider {
	case "gemini", "openai", "noop":
	default:
		return nil, fmt.Errorf("ai.default_provider %q is not supported", cfg.AI.DefaultProvider)
	}
	if cfg.AI.DefaultProvider == "noop" && !dev {
		return nil, errors.New("ai.default_provider noop is only allowed with -dev")
	}
	// a job waiting in the queue is still generating; the sweeper must not see it
	if cfg.AI.AcquireTimeout == 0 || cfg.AI.AcquireTimeout >= cfg.Sweeper.StaleAfter {
		return nil, fmt.Errorf("ai.acquire_timeout must be bounded and below sweeper.stale_after (%s)", cfg.Sweeper.StaleAfter)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	override(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	override(&cfg.Auth.Secret, "AUTH_SECRET")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.RateLimitRPS <= 0 {
		cfg.Server.RateLimitRPS = 2
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	ai := &cfg.AI
	if ai.DefaultProvider == "" {
		switch {
		case ai.GeminiKey != "":
			ai.DefaultProvider = "gemini"
		case ai.OpenAIKey != "":
			ai.DefaultProvider = "openai"
		case cfg.Runtime.Dev:
			ai.DefaultProvider = "noop"
		default:
			ai.DefaultProvider = "gemini"
		}
	}
	ai.DefaultProvider = strings.ToLower(ai.DefaultProvider)
	if ai.GeminiModel == "" {
		ai.GeminiModel = "gemini-2.0-flash"
	}
	if ai.OpenAIModel == "" {
		ai.OpenAIModel = "gpt-4o-mini"
	}
	if ai.MaxOutputTokens <= 0 {
		ai.MaxOutputTokens = 8192
	}
	if ai.ConcurrentLimit <= 0 {
		ai.ConcurrentLimit = 16
	}
	if ai.AcquireTimeout < 0 {
		ai.AcquireTimeout = 0
	} else if ai.AcquireTimeout == 0 {
		ai.AcquireTimeout = 60 * time.Second
	}
	if ai.MaxAttempts <= 0 {
		ai.MaxAttempts = 3
	}
	if ai.BaseBackoff <= 0 {
		ai.BaseBackoff = time.Second
	}
	if ai.MaxJitter <= 0 {
		ai.MaxJitter = 250 * time.Millisecond
	}

	if cfg.Quota.Window <= 0 {
		cfg.Quota.Window = 30 * 24 * time.Hour
	}
	if cfg.Auth.TTL <= 0 {
		cfg.Auth.TTL = 24 * time.Hour
	}
	if cfg.Auth.Secret == "" && cfg.Runtime.Dev {
		cfg.Auth.Secret = "dev-only-secret"
	}
	if cfg.Sweeper.Cron == "" {
		cfg.Sweeper.Cron = "@every 5m"
	}
	if cfg.Sweeper.StaleAfter <= 0 {
		cfg.Sweeper.StaleAfter = 15 * time.Minute
	}
	if cfg.Context.Timeout <= 0 {
		cfg.Context.Timeout = 10 * time.Second
	}
	if cfg.Context.MaxBytes <= 0 {
		cfg.Context.MaxBytes = 2 << 20
	}
	if cfg.Context.MaxChars <= 0 {
		cfg.Context.MaxChars = 4000
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
