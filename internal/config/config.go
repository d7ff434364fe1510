// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sources  []SourceConfig `mapstructure:"sources"`
}

// MongoConfig controls access to the article database.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// CrawlConfig governs the fetch pool defaults; individual sources may
// override worker count and timeout.
type CrawlConfig struct {
	WorkerCount    int    `mapstructure:"worker_count"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// EnrichConfig toggles linguistic annotation of persisted articles.
type EnrichConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxKeywords int  `mapstructure:"max_keywords"`
}

// ScheduleConfig sets the daily run time for the schedule command.
type ScheduleConfig struct {
	At       string `mapstructure:"at"`
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig controls the metrics/health listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features and sets the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SourceConfig describes one site to crawl. FeedURL and URLPattern select
// the discovery strategy: a feed URL wins, otherwise the base URL is walked
// for links matching the pattern. Parser names a site-specific article
// parser; empty selects the generic one, unknown names fail at startup.
type SourceConfig struct {
	Name           string `mapstructure:"name"`
	BaseURL        string `mapstructure:"base_url"`
	Collection     string `mapstructure:"collection"`
	FeedURL        string `mapstructure:"feed_url"`
	URLPattern     string `mapstructure:"url_pattern"`
	Parser         string `mapstructure:"parser"`
	WorkerCount    int    `mapstructure:"worker_count"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRESSCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	// Unknown keys are a config error, not a silent default: a misspelled
	// knob must fail here instead of running with surprise values.
	var cfg Config
	strict := func(dc *mapstructure.DecoderConfig) { dc.ErrorUnused = true }
	if err := v.Unmarshal(&cfg, strict); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "presscrawl")
	v.SetDefault("crawl.worker_count", 6)
	v.SetDefault("crawl.timeout_seconds", 15)
	v.SetDefault("crawl.user_agent", "presscrawl-bot/0.1")
	v.SetDefault("enrich.enabled", false)
	v.SetDefault("enrich.max_keywords", 10)
	v.SetDefault("schedule.at", "06:30")
	v.SetDefault("schedule.timezone", "Europe/Berlin")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri must be set")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database must be set")
	}
	if c.Crawl.WorkerCount <= 0 {
		return fmt.Errorf("crawl.worker_count must be > 0")
	}
	if c.Crawl.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.timeout_seconds must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d].name must be set", i)
		}
		if s.Collection == "" {
			return fmt.Errorf("sources[%d].collection must be set", i)
		}
		if s.FeedURL == "" && s.BaseURL == "" {
			return fmt.Errorf("sources[%d]: either feed_url or base_url must be set", i)
		}
	}
	return nil
}

// Workers returns the effective fetch pool size for a source.
func (c Config) Workers(s SourceConfig) int {
	if s.WorkerCount > 0 {
		return s.WorkerCount
	}
	return c.Crawl.WorkerCount
}

// FetchTimeout returns the effective per-request timeout for a source.
func (c Config) FetchTimeout(s SourceConfig) time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return time.Duration(c.Crawl.TimeoutSeconds) * time.Second
}
