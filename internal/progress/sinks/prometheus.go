package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkraev/alkoteka-crawler/internal/progress"
)

// PrometheusSink exports crawl progress metrics via Prometheus. It owns all
// collectors for listing pages, emitted records, and failure counters.
type PrometheusSink struct {
	listingPages  *prometheus.CounterVec
	productsFound *prometheus.CounterVec
	records       *prometheus.CounterVec
	emptyCats     *prometheus.CounterVec
	malformed     prometheus.Counter
	fetchErrors   prometheus.Counter
	fetchBytes    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		listingPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_listing_pages_total",
			Help: "Listing pages walked, partitioned by category.",
		}, []string{"category"}),
		productsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_products_discovered_total",
			Help: "Product refs discovered on listing pages per category.",
		}, []string{"category"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_records_emitted_total",
			Help: "Normalized product records emitted per category.",
		}, []string{"category"}),
		emptyCats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_empty_categories_total",
			Help: "Listing responses with no results per category.",
		}, []string{"category"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_malformed_responses_total",
			Help: "Responses dropped because the body was unusable.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_fetch_errors_total",
			Help: "Fetches that failed at the transport level.",
		}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_fetch_bytes_total",
			Help: "Bytes downloaded per category.",
		}, []string{"category"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawler_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by category.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"category"}),
	}
	for _, collector := range []prometheus.Collector{
		s.listingPages,
		s.productsFound,
		s.records,
		s.emptyCats,
		s.malformed,
		s.fetchErrors,
		s.fetchBytes,
		s.fetchDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageListingDone:
		s.listingPages.WithLabelValues(evt.Category).Inc()
		s.productsFound.WithLabelValues(evt.Category).Add(float64(evt.Products))
		s.observeFetch(evt)
	case progress.StageRecordEmitted:
		s.records.WithLabelValues(evt.Category).Inc()
		s.observeFetch(evt)
	case progress.StageEmptyCategory:
		s.emptyCats.WithLabelValues(evt.Category).Inc()
	case progress.StageMalformed:
		s.malformed.Inc()
	case progress.StageFetchError:
		s.fetchErrors.Inc()
	}
}

func (s *PrometheusSink) observeFetch(evt progress.Event) {
	if evt.Bytes > 0 {
		s.fetchBytes.WithLabelValues(evt.Category).Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.fetchDuration.WithLabelValues(evt.Category).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
