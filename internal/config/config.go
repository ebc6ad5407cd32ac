package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/cache"
	"github.com/cleared-dev/tally/internal/money"
)

// FileName is the default config file name.
const FileName = "tally.yaml"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Currencies      map[string]int32 `yaml:"currencies"`
	DefaultCurrency string           `yaml:"default_currency"`
	Projection      ProjectionConfig `yaml:"projection"`
	Cache           CacheConfig      `yaml:"cache"`
	Log             LogConfig        `yaml:"log"`
}

// ProjectionConfig controls bulk payoff projections.
type ProjectionConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// CacheConfig selects the schedule cache backend.
type CacheConfig struct {
	Backend   string        `yaml:"backend"` // none, memory, or redis
	RedisAddr string        `yaml:"redis_addr,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads a tally.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Currencies: map[string]int32{
			"USD": 2,
			"EUR": 2,
			"GBP": 2,
			"JPY": 0,
			"BTC": 8,
		},
		DefaultCurrency: "USD",
		Projection: ProjectionConfig{
			Concurrency: 4,
		},
		Cache: CacheConfig{
			Backend: cache.BackendMemory,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Currencies) == 0 {
		problems = append(problems, "no currencies configured")
	}
	codes := make([]string, 0, len(c.Currencies))
	for code := range c.Currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if len(code) != 3 || strings.ToUpper(code) != code {
			problems = append(problems, fmt.Sprintf("currency %q must be a 3-letter uppercase code", code))
		}
		if err := money.ValidateScale(c.Currencies[code]); err != nil {
			problems = append(problems, fmt.Sprintf("currency %s: %v", code, err))
		}
	}
	if c.DefaultCurrency != "" {
		if _, ok := c.Currencies[c.DefaultCurrency]; !ok {
			problems = append(problems, fmt.Sprintf("default currency %s is not configured", c.DefaultCurrency))
		}
	}
	if c.Projection.Concurrency < 0 {
		problems = append(problems, fmt.Sprintf("projection concurrency %d must not be negative", c.Projection.Concurrency))
	}
	switch c.Cache.Backend {
	case "", cache.BackendNone, cache.BackendMemory:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			problems = append(problems, "cache backend redis requires redis_addr")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache backend %q", c.Cache.Backend))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Scale returns the decimal places configured for currency. There is no
// fallback: an unknown currency is an error.
func (c *Config) Scale(currency string) (int32, error) {
	scale, ok := c.Currencies[strings.ToUpper(currency)]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q", currency)
	}
	return scale, nil
}

// CacheOptions converts the cache section for cache.Open.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:   c.Cache.Backend,
		RedisAddr: c.Cache.RedisAddr,
		TTL:       c.Cache.TTL,
	}
}

// SlogLevel parses the configured level. Empty means info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}
