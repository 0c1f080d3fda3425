package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/alkoteka-crawler/internal/catalog"
	"github.com/mkraev/alkoteka-crawler/internal/config"
)

func baseConfig() config.Config {
	return config.Config{
		Source: config.SourceConfig{
			BaseURL:      "https://alkoteka.com/web-api/v1/product",
			CityUUID:     "?city_uuid=test",
			CategoryConf: "&root_category_slug=",
		},
		Crawler:   config.CrawlerConfig{Concurrency: 2, TimeoutSeconds: 5},
		Sink:      config.SinkConfig{Provider: "noop"},
		Publisher: config.PublisherConfig{Provider: "none"},
		Archive:   config.ArchiveConfig{Provider: "none"},
	}
}

func TestNewWithNoopProviders(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), baseConfig())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Sink())
	assert.Nil(t, a.Publisher())
	assert.Nil(t, a.Archive())
	assert.NoError(t, a.Sink().Emit(context.Background(), catalog.ProductRecord{}))
}

func TestNewWithJSONLSink(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Sink = config.SinkConfig{
		Provider: "jsonl",
		Path:     filepath.Join(t.TempDir(), "products.jsonl"),
	}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, a.Sink().Emit(context.Background(), catalog.ProductRecord{Title: "x"}))
	a.Close()

	data, err := os.ReadFile(cfg.Sink.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title":"x"`)
}

func TestNewWithFSArchive(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Archive = config.ArchiveConfig{Provider: "fs", Dir: filepath.Join(t.TempDir(), "archive")}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Archive())
	require.NoError(t, a.Archive().Save(context.Background(), "raw/x.json", []byte("{}")))
	assert.DirExists(t, cfg.Archive.Dir)
}

func TestNewRejectsUnknownProviders(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Sink.Provider = "kafka"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.Publisher.Provider = "rabbitmq"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.Archive.Provider = "s3"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSourceConversion(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), baseConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, catalog.SourceConfig{
		BaseURL:      "https://alkoteka.com/web-api/v1/product",
		CityUUID:     "?city_uuid=test",
		CategoryConf: "&root_category_slug=",
	}, a.Source())
}
