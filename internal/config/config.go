// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SourceConfig describes the upstream catalog API.
type SourceConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	CityUUID     string `mapstructure:"city_uuid"`
	CategoryConf string `mapstructure:"category_conf"`
	SeedsFile    string `mapstructure:"seeds_file"`
}

// CrawlerConfig governs the fetch pipeline.
type CrawlerConfig struct {
	Concurrency    int     `mapstructure:"concurrency"`
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RPS            float64 `mapstructure:"rps"`
	Burst          int     `mapstructure:"burst"`
	QueueDepth     int     `mapstructure:"queue_depth"`
	// RetryAttempts is the total number of tries per fetch.
	RetryAttempts int `mapstructure:"retry_attempts"`
	// MaxPages caps listing pages per category; 0 means walk until the
	// API reports no more pages.
	MaxPages int `mapstructure:"max_pages"`
}

// SinkConfig selects and configures the record sink.
type SinkConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// PublisherConfig holds metadata for per-record notifications.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ArchiveConfig selects the raw payload archive backend.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Dir      string `mapstructure:"dir"`
	Prefix   string `mapstructure:"prefix"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ALKOTEKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://alkoteka.com/web-api/v1/product")
	v.SetDefault("source.city_uuid", "?city_uuid=4a70f9e0-46ae-11e7-83ff-00155d026416")
	v.SetDefault("source.category_conf", "&root_category_slug=")
	v.SetDefault("source.seeds_file", "start_urls.txt")
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.user_agent", "alkoteka-crawler/0.1")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.rps", 4.0)
	v.SetDefault("crawler.burst", 2)
	v.SetDefault("crawler.queue_depth", 64)
	v.SetDefault("crawler.retry_attempts", 3)
	v.SetDefault("crawler.max_pages", 0)
	v.SetDefault("sink.provider", "jsonl")
	v.SetDefault("sink.path", "products.jsonl")
	v.SetDefault("sink.table", "products")
	v.SetDefault("publisher.provider", "none")
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.dir", "archive")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must be >= 0")
	}
	switch c.Sink.Provider {
	case "jsonl":
		if c.Sink.Path == "" {
			return fmt.Errorf("sink.path must be set for the jsonl sink")
		}
	case "postgres":
		if c.Sink.DSN == "" {
			return fmt.Errorf("sink.dsn must be set for the postgres sink")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown sink provider %q", c.Sink.Provider)
	}
	switch c.Publisher.Provider {
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicID == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_id must be set for pubsub")
		}
	case "none":
	default:
		return fmt.Errorf("unknown publisher provider %q", c.Publisher.Provider)
	}
	switch c.Archive.Provider {
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket must be set for the gcs archive")
		}
	case "fs":
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir must be set for the fs archive")
		}
	case "none":
	default:
		return fmt.Errorf("unknown archive provider %q", c.Archive.Provider)
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}
