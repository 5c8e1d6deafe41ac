// Package metrics provides Prometheus metrics for the news client.
// Metrics are grouped by concern: API requests and paged-search sessions.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roundnews"

// API request outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeAPIError  = "api_error"
	OutcomeHTTPError = "http_error"
	OutcomeDecode    = "decode_error"
	OutcomeTransport = "transport_error"
)

// Fetch kinds.
const (
	KindFresh    = "fresh"
	KindLoadMore = "load_more"
)

var (
	// API metrics - one observation per HTTP round trip
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of news API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "News API request duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// Paged search metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "fetches_total",
			Help:      "Page fetches started by kind",
		},
		[]string{"kind"},
	)

	FetchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "fetches_in_flight",
			Help:      "Page fetches currently waiting on the API",
		},
	)

	StaleResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "stale_results_total",
			Help:      "Fetch results discarded because a newer search replaced their session",
		},
	)

	LoadMoreSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "load_more_skipped_total",
			Help:      "Load-more requests ignored by reason",
		},
		[]string{"reason"},
	)
)

// ObserveAPIRequest records one API round trip.
func ObserveAPIRequest(endpoint, outcome string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// StartFetch marks a page fetch as started and returns the func that ends it.
func StartFetch(kind string) func() {
	FetchesTotal.WithLabelValues(kind).Inc()
	FetchesInFlight.Inc()
	return FetchesInFlight.Dec
}

func ObserveStaleResult() {
	StaleResultsTotal.Inc()
}

func ObserveLoadMoreSkipped(reason string) {
	LoadMoreSkippedTotal.WithLabelValues(reason).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve runs a /metrics endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
