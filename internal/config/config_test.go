package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://alkoteka.com/web-api/v1/product", cfg.Source.BaseURL)
	assert.Equal(t, "?city_uuid=4a70f9e0-46ae-11e7-83ff-00155d026416", cfg.Source.CityUUID)
	assert.Equal(t, "&root_category_slug=", cfg.Source.CategoryConf)
	assert.Equal(t, "start_urls.txt", cfg.Source.SeedsFile)
	assert.Equal(t, 4, cfg.Crawler.Concurrency)
	assert.Equal(t, 0, cfg.Crawler.MaxPages)
	assert.Equal(t, 3, cfg.Crawler.RetryAttempts)
	assert.Equal(t, "jsonl", cfg.Sink.Provider)
	assert.Equal(t, "none", cfg.Publisher.Provider)
	assert.Equal(t, "none", cfg.Archive.Provider)
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  seeds_file: seeds.txt
crawler:
  concurrency: 8
  rps: 2.5
  max_pages: 3
sink:
  provider: postgres
  dsn: postgres://crawler@localhost/catalog
server:
  enabled: true
  port: 9090
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "seeds.txt", cfg.Source.SeedsFile)
	assert.Equal(t, 8, cfg.Crawler.Concurrency)
	assert.Equal(t, 2.5, cfg.Crawler.RPS)
	assert.Equal(t, 3, cfg.Crawler.MaxPages)
	assert.Equal(t, "postgres", cfg.Sink.Provider)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://alkoteka.com/web-api/v1/product", cfg.Source.BaseURL,
		"file values merge over defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ALKOTEKA_CRAWLER_CONCURRENCY", "16")
	t.Setenv("ALKOTEKA_SINK_PATH", "/tmp/out.jsonl")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Crawler.Concurrency)
	assert.Equal(t, "/tmp/out.jsonl", cfg.Sink.Path)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Source:    SourceConfig{BaseURL: "https://alkoteka.com/web-api/v1/product"},
			Crawler:   CrawlerConfig{Concurrency: 4, TimeoutSeconds: 15},
			Sink:      SinkConfig{Provider: "jsonl", Path: "products.jsonl"},
			Publisher: PublisherConfig{Provider: "none"},
			Archive:   ArchiveConfig{Provider: "none"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Source.BaseURL = "" },
			wantErr: "base_url",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Crawler.Concurrency = 0 },
			wantErr: "concurrency",
		},
		{
			name:    "negative max pages",
			mutate:  func(c *Config) { c.Crawler.MaxPages = -1 },
			wantErr: "max_pages",
		},
		{
			name:    "jsonl without path",
			mutate:  func(c *Config) { c.Sink.Path = "" },
			wantErr: "sink.path",
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.Sink = SinkConfig{Provider: "postgres"}
			},
			wantErr: "sink.dsn",
		},
		{
			name:    "unknown sink provider",
			mutate:  func(c *Config) { c.Sink.Provider = "kafka" },
			wantErr: "unknown sink provider",
		},
		{
			name: "pubsub without project",
			mutate: func(c *Config) {
				c.Publisher = PublisherConfig{Provider: "pubsub", TopicID: "records"}
			},
			wantErr: "project_id",
		},
		{
			name:    "unknown archive provider",
			mutate:  func(c *Config) { c.Archive.Provider = "s3" },
			wantErr: "unknown archive provider",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(c *Config) { c.Archive = ArchiveConfig{Provider: "gcs"} },
			wantErr: "archive.bucket",
		},
		{
			name: "enabled server without port",
			mutate: func(c *Config) {
				c.Server = ServerConfig{Enabled: true}
			},
			wantErr: "server.port",
		},
		{
			name: "noop sink needs nothing",
			mutate: func(c *Config) {
				c.Sink = SinkConfig{Provider: "noop"}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
