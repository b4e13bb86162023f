// Package config loads catalogmix settings from a .env file, an optional
// catalogmix.yaml and CATALOGMIX_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gauthierbraillon/catalogmix/internal/catalog"
)

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "catalogmix.yaml"

// EnvPrefix prefixes every environment override, e.g. CATALOGMIX_LOG_LEVEL.
const EnvPrefix = "CATALOGMIX"

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	Catalog CatalogConfig
	Server  ServerConfig
	Redis   RedisConfig
}

type AppConfig struct {
	Env string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// CatalogConfig holds the upstream sources and build options.
type CatalogConfig struct {
	APIBaseURL           string
	MediaBaseURL         string
	PlaceholderImage     string
	IncludeEditorial     bool
	LiveFeedLimit        int
	Buckets              []catalog.Bucket
	RequestTimeout       time.Duration
	MaxConcurrentFetches int
	// FixturesPath replaces the bundled editorial picks when set.
	FixturesPath string
	// UnitsSoldSeed seeds the synthetic units-sold values. Zero means time-seeded.
	UnitsSoldSeed uint64
}

type ServerConfig struct {
	Addr            string
	RefreshInterval time.Duration
}

// RedisConfig holds the snapshot publication settings.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables with CATALOGMIX_ prefix (e.g., CATALOGMIX_CATALOG_LIVE_FEED_LIMIT)
// 2. Variables from ./.env, which never override the real environment
// 3. The file at path, or DefaultConfigFile in the working directory
// 4. Built-in defaults
//
// An explicit path must exist; the default file is optional.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans cannot be defaulted after the fact: false is a real value.
	v.SetDefault("catalog.include_editorial", true)

	buckets, err := parseBuckets(v.GetStringSlice("catalog.buckets"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env: v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Catalog: CatalogConfig{
			APIBaseURL:           v.GetString("catalog.api_base_url"),
			MediaBaseURL:         v.GetString("catalog.media_base_url"),
			PlaceholderImage:     v.GetString("catalog.placeholder_image"),
			IncludeEditorial:     v.GetBool("catalog.include_editorial"),
			LiveFeedLimit:        v.GetInt("catalog.live_feed_limit"),
			Buckets:              buckets,
			RequestTimeout:       v.GetDuration("catalog.request_timeout"),
			MaxConcurrentFetches: v.GetInt("catalog.max_concurrent_fetches"),
			FixturesPath:         v.GetString("catalog.fixtures_path"),
			UnitsSoldSeed:        v.GetUint64("catalog.units_sold_seed"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			RefreshInterval: v.GetDuration("server.refresh_interval"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Key:      v.GetString("redis.key"),
			TTL:      v.GetDuration("redis.ttl"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseBuckets accepts a YAML list or a comma-separated environment value.
func parseBuckets(raw []string) ([]catalog.Bucket, error) {
	var buckets []catalog.Bucket
	for _, entry := range raw {
		for _, token := range strings.Split(entry, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			b, err := catalog.ParseBucket(token)
			if err != nil {
				return nil, fmt.Errorf("catalog.buckets: %w", err)
			}
			buckets = append(buckets, b)
		}
	}
	return buckets, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Catalog.APIBaseURL == "" {
		cfg.Catalog.APIBaseURL = "http://localhost:8000/api"
	}
	if cfg.Catalog.MediaBaseURL == "" {
		cfg.Catalog.MediaBaseURL = "http://localhost:8000"
	}
	if cfg.Catalog.PlaceholderImage == "" {
		cfg.Catalog.PlaceholderImage = catalog.DefaultPlaceholderImage
	}
	if cfg.Catalog.LiveFeedLimit == 0 {
		cfg.Catalog.LiveFeedLimit = 20
	}
	if len(cfg.Catalog.Buckets) == 0 {
		cfg.Catalog.Buckets = append([]catalog.Bucket(nil), catalog.BucketPriority...)
	}
	if cfg.Catalog.RequestTimeout == 0 {
		cfg.Catalog.RequestTimeout = 10 * time.Second
	}
	if cfg.Catalog.MaxConcurrentFetches == 0 {
		cfg.Catalog.MaxConcurrentFetches = 4
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RefreshInterval == 0 {
		cfg.Server.RefreshInterval = 5 * time.Minute
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.Key == "" {
		cfg.Redis.Key = "catalogmix:trending"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 15 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Catalog.LiveFeedLimit <= 0 {
		return fmt.Errorf("catalog.live_feed_limit must be positive, got %d", c.Catalog.LiveFeedLimit)
	}
	if c.Catalog.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("catalog.max_concurrent_fetches must be positive, got %d", c.Catalog.MaxConcurrentFetches)
	}
	if c.Catalog.RequestTimeout < 0 {
		return fmt.Errorf("catalog.request_timeout cannot be negative")
	}
	if c.Server.RefreshInterval < 0 {
		return fmt.Errorf("server.refresh_interval cannot be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console', got %q", c.Log.Format)
	}
	u, err := url.Parse(c.Catalog.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.api_base_url must be an absolute URL, got %q", c.Catalog.APIBaseURL)
	}
	if c.Redis.Enabled && c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl cannot be negative")
	}
	return nil
}
