package crawler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/alkoteka-crawler/internal/archive"
	"github.com/mkraev/alkoteka-crawler/internal/catalog"
	"github.com/mkraev/alkoteka-crawler/internal/crawler"
	"github.com/mkraev/alkoteka-crawler/internal/progress"
	pubmem "github.com/mkraev/alkoteka-crawler/internal/publisher/memory"
	queuemem "github.com/mkraev/alkoteka-crawler/internal/queue/memory"
	sinkmem "github.com/mkraev/alkoteka-crawler/internal/sink/memory"
)

var engineSource = catalog.SourceConfig{
	BaseURL:      "http://api.test/web-api/v1/product",
	CityUUID:     "?city_uuid=test-city",
	CategoryConf: "&root_category_slug=",
}

// mapFetcher serves canned bodies by URL and records every request it saw.
type mapFetcher struct {
	mu        sync.Mutex
	bodies    map[string]string
	errs      map[string]error
	requested []string
}

func newMapFetcher() *mapFetcher {
	return &mapFetcher{bodies: map[string]string{}, errs: map[string]error{}}
}

func (f *mapFetcher) Fetch(_ context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	f.mu.Lock()
	f.requested = append(f.requested, request.URL)
	body, ok := f.bodies[request.URL]
	err := f.errs[request.URL]
	f.mu.Unlock()

	if err != nil {
		return crawler.FetchResponse{}, err
	}
	if !ok {
		return crawler.FetchResponse{}, errors.New("unexpected url: " + request.URL)
	}
	return crawler.FetchResponse{
		URL:        request.URL,
		StatusCode: 200,
		Body:       []byte(body),
		Duration:   time.Millisecond,
	}, nil
}

func (f *mapFetcher) requestedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requested))
	copy(out, f.requested)
	return out
}

// captureHub collects emitted progress events.
type captureHub struct {
	mu     sync.Mutex
	events []progress.Event
}

func (h *captureHub) Emit(evt progress.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
}

func (h *captureHub) byStage(stage progress.Stage) []progress.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []progress.Event
	for _, evt := range h.events {
		if evt.Stage == stage {
			out = append(out, evt)
		}
	}
	return out
}

func productBody(name string) string {
	return `{"results": {"name": "` + name + `", "price": 100}}`
}

// twoPageCategory loads the fetcher with a category spanning two listing
// pages and three products total.
func twoPageCategory(f *mapFetcher) {
	page1 := engineSource.ListingURL("vino")
	page2 := "http://api.test/web-api/v1/product?city_uuid=test-city&page=2&root_category_slug=vino"

	f.bodies[page1] = `{
		"results": [{"slug": "vino-a"}, {"slug": "vino-b"}],
		"meta": {"current_page": 1, "has_more_pages": true}
	}`
	f.bodies[page2] = `{
		"results": [{"slug": "vino-c"}],
		"meta": {"current_page": 2, "has_more_pages": false}
	}`
	for _, slug := range []string{"vino-a", "vino-b", "vino-c"} {
		f.bodies[engineSource.ProductURL(slug)] = productBody("Вино " + slug)
	}
}

type engineFixture struct {
	fetcher   *mapFetcher
	sink      *sinkmem.Sink
	publisher *pubmem.Publisher
	hub       *captureHub
	runID     [16]byte
}

func runEngine(t *testing.T, cfg crawler.Config, fx *engineFixture, seeds []string, provider archive.Provider) {
	t.Helper()

	cfg.Source = engineSource
	engine := crawler.NewEngine(
		cfg,
		fx.fetcher,
		queuemem.NewQueue(2),
		fx.sink,
		fx.publisher,
		provider,
		nil,
		catalog.NewNormalizer(func() time.Time { return time.Unix(1700000000, 0) }),
		fx.hub,
		nil,
		fx.runID,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, engine.Run(ctx, seeds))
}

func newEngineFixture() *engineFixture {
	return &engineFixture{
		fetcher:   newMapFetcher(),
		sink:      sinkmem.New(),
		publisher: pubmem.New(),
		hub:       &captureHub{},
		runID:     progress.UUIDToBytes(uuid.MustParse("0d3fca52-5a8a-4cf5-9d17-9c2f1f6d0001")),
	}
}

func TestEngineRunFullWalk(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture()
	twoPageCategory(fx.fetcher)

	runEngine(t, crawler.Config{Concurrency: 3, PublishTopic: "records"}, fx, []string{"vino"}, nil)

	records := fx.sink.Records()
	require.Len(t, records, 3)
	titles := make([]string, 0, len(records))
	for _, record := range records {
		titles = append(titles, record.Title)
	}
	assert.ElementsMatch(t, []string{"Вино vino-a", "Вино vino-b", "Вино vino-c"}, titles)

	assert.Len(t, fx.publisher.Messages(), 3)
	for _, msg := range fx.publisher.Messages() {
		assert.Equal(t, "records", msg.Topic)
	}

	assert.Len(t, fx.hub.byStage(progress.StageRunStart), 1)
	assert.Len(t, fx.hub.byStage(progress.StageListingDone), 2)
	assert.Len(t, fx.hub.byStage(progress.StageRecordEmitted), 3)
	assert.Len(t, fx.hub.byStage(progress.StageRunDone), 1)
	for _, evt := range fx.hub.byStage(progress.StageRecordEmitted) {
		assert.Equal(t, fx.runID, evt.RunID)
		assert.Equal(t, "vino", evt.Category)
	}
}

func TestEnginePublishDisabledWithoutTopic(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture()
	twoPageCategory(fx.fetcher)

	runEngine(t, crawler.Config{Concurrency: 2}, fx, []string{"vino"}, nil)

	assert.Len(t, fx.sink.Records(), 3)
	assert.Empty(t, fx.publisher.Messages())
}

func TestEngineMalformedProductIsolated(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture()
	twoPageCategory(fx.fetcher)
	brokenURL := engineSource.ProductURL("vino-b")
	fx.fetcher.bodies[brokenURL] = "<html>maintenance</html>"

	runEngine(t, crawler.Config{Concurrency: 2}, fx, []string{"vino"}, nil)

	assert.Len(t, fx.sink.Records(), 2, "only the broken product is dropped")
	malformed := fx.hub.byStage(progress.StageMalformed)
	require.Len(t, malformed, 1)
	assert.Equal(t, brokenURL, malformed[0].URL)
}

func TestEngineEmptyCategory(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture()
	fx.fetcher.bodies[engineSource.ListingURL("pustaya")] = `{"results": [], "meta": {"current_page": 1}}`

	runEngine(t, crawler.Config{Concurrency: 2}, fx, []string{"pustaya"}, nil)

	assert.Empty(t, fx.sink.Records())
	empty := fx.hub.byStage(progress.StageEmptyCategory)
	require.Len(t, empty, 1)
	assert.Equal(t, "pustaya", empty[0].Category)
}

func TestEngineMaxPagesCapsPagination(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture()
	twoPageCategory(fx.fetcher)

	runEngine(t, crawler.Config{Concurrency: 2, MaxPages: 1}, fx, []string{"vino"}, nil)

	assert.Len(t, fx.sink.Records(), 2, "page two products are never fetched")
	for _, url := range fx.fetcher.requestedURLs() {
		assert.NotContains(t, url, "&page=2")
	}
}

func TestEngineFetchErrorReported(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture()
	listingURL := engineSource.ListingURL("vino")
	fx.fetcher.errs[listingURL] = errors.New("connection refused")
	fx.fetcher.bodies[listingURL] = ""

	runEngine(t, crawler.Config{Concurrency: 1}, fx, []string{"vino"}, nil)

	assert.Empty(t, fx.sink.Records())
	failures := fx.hub.byStage(progress.StageFetchError)
	require.Len(t, failures, 1)
	assert.Equal(t, listingURL, failures[0].URL)
	assert.Contains(t, failures[0].Note, "connection refused")
}

func TestEngineArchivesRawPayloads(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture()
	twoPageCategory(fx.fetcher)

	root := t.TempDir()
	provider, err := archive.NewFSProvider(root)
	require.NoError(t, err)

	runEngine(t, crawler.Config{Concurrency: 2, ArchivePrefix: "raw"}, fx, []string{"vino"}, provider)

	runDir := filepath.Join(root, "raw", uuid.UUID(fx.runID).String())
	for _, slug := range []string{"vino-a", "vino-b", "vino-c"} {
		data, err := os.ReadFile(filepath.Join(runDir, slug+".json"))
		require.NoError(t, err)
		assert.JSONEq(t, productBody("Вино "+slug), string(data))
	}
}
