package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/alkoteka-crawler/internal/progress"
	"github.com/mkraev/alkoteka-crawler/internal/progress/sinks"
)

func newTestServer(t *testing.T, stats *sinks.StatsSink) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewServer(stats, prometheus.NewRegistry(), nil).Handler())
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, url string, dest any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, sinks.NewStatsSink())

	var health map[string]string
	resp := getJSON(t, server.URL+"/healthz", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var ready map[string]string
	resp = getJSON(t, server.URL+"/readyz", &ready)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", ready["status"])
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()

	stats := sinks.NewStatsSink()
	require.NoError(t, stats.Consume(context.Background(), []progress.Event{
		{Stage: progress.StageListingDone, Category: "vino", Products: 12, Bytes: 2048},
		{Stage: progress.StageRecordEmitted, Category: "vino", Bytes: 512},
	}))

	server := newTestServer(t, stats)

	var snap sinks.Snapshot
	resp := getJSON(t, server.URL+"/v1/stats", &snap)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, int64(1), snap.Records)
	assert.Equal(t, sinks.CategoryStats{ListingPages: 1, Products: 12, Records: 1, Bytes: 2560}, snap.Categories["vino"])
}

func TestStatsEndpointWithoutSink(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, nil)

	var body map[string]string
	resp := getJSON(t, server.URL+"/v1/stats", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "stats")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	sink, err := sinks.NewPrometheusSink(registry)
	require.NoError(t, err)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{Stage: progress.StageListingDone, Category: "vino", Products: 3},
	}))

	server := httptest.NewServer(NewServer(nil, registry, nil).Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `crawler_listing_pages_total{category="vino"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, sinks.NewStatsSink())
	resp, err := http.Get(server.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
