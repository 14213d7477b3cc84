// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration buckets reach an hour because video bodies stream
	// for the length of a film.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videocaster_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600, 3600},
	}, []string{"method", "route", "status"})

	// HTTPRequestsInFlight tracks requests currently being served.
	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videocaster_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	// HTTPResponseSize tracks body sizes of non-empty responses.
	HTTPResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videocaster_http_response_size_bytes",
		Help:    "HTTP response sizes in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 10),
	}, []string{"method", "route", "status"})
)

// ObserveHTTPRequest records one finished request. route must be a pattern,
// never a raw path, to keep label cardinality bounded.
func ObserveHTTPRequest(method, route string, status int, d time.Duration, bytes int) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
	if bytes > 0 {
		HTTPResponseSize.WithLabelValues(method, route, code).Observe(float64(bytes))
	}
}
