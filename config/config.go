// Package config loads runtime configuration from a config file and
// environment variables, with defaults suitable for a single-node deploy.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vsonglab/vtuber-catalog/classify"
	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/discovery"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// APIKeys is the credential ring for the data API, in rotation order.
	APIKeys []string `mapstructure:"api_keys"`

	// PostgresDSN selects the Postgres backend; empty runs on the
	// in-memory store.
	PostgresDSN string `mapstructure:"postgres_dsn"`

	// Queries overrides the curated discovery search list.
	Queries []string `mapstructure:"queries"`

	// RankingURLs are scraped as an extra discovery candidate source.
	RankingURLs []string `mapstructure:"ranking_urls"`

	RatePerSecond      float64       `mapstructure:"rate_per_second"`
	SoftQuotaThreshold int           `mapstructure:"soft_quota_threshold"`
	MaxPagesPerQuery   int           `mapstructure:"max_pages_per_query"`
	Workers            int           `mapstructure:"workers"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`

	DiscoveryInterval time.Duration `mapstructure:"discovery_interval"`
	IngestInterval    time.Duration `mapstructure:"ingest_interval"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ViewsInterval     time.Duration `mapstructure:"views_interval"`
	PromoteInterval   time.Duration `mapstructure:"promote_interval"`
}

// Load reads configuration from the given file (optional) and from
// environment variables prefixed VTUBER_, e.g. VTUBER_API_KEYS.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("rate_per_second", client.DefaultRatePerSecond)
	v.SetDefault("soft_quota_threshold", client.DefaultSoftQuotaThreshold)
	v.SetDefault("max_pages_per_query", discovery.DefaultMaxPagesPerQuery)
	v.SetDefault("workers", discovery.DefaultWorkers)
	v.SetDefault("cache_ttl", discovery.DefaultCacheTTL)
	v.SetDefault("shutdown_timeout", 2*time.Hour)
	v.SetDefault("discovery_interval", 12*time.Hour)
	v.SetDefault("ingest_interval", 6*time.Hour)
	v.SetDefault("reconcile_interval", 24*time.Hour)
	v.SetDefault("views_interval", 24*time.Hour)
	v.SetDefault("promote_interval", 24*time.Hour)

	v.SetEnvPrefix("VTUBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Env vars deliver lists as comma-separated strings.
	cfg.APIKeys = splitIfScalar(cfg.APIKeys, v.GetString("api_keys"))
	cfg.Queries = splitIfScalar(cfg.Queries, v.GetString("queries"))
	cfg.RankingURLs = splitIfScalar(cfg.RankingURLs, v.GetString("ranking_urls"))

	if len(cfg.Queries) == 0 {
		cfg.Queries = classify.DefaultQueries
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("at least one API key is required (set api_keys or VTUBER_API_KEYS)")
	}
	if c.RatePerSecond <= 0 {
		return fmt.Errorf("rate_per_second must be positive, got %v", c.RatePerSecond)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

func splitIfScalar(current []string, raw string) []string {
	if len(current) == 1 && strings.Contains(current[0], ",") {
		raw = current[0]
	} else if len(current) > 0 {
		return current
	}
	if raw == "" {
		return current
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
