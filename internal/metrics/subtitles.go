// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubtitleLookupsTotal counts subtitle operations by kind and result.
	// kind: by_path, by_metadata, download, resolve
	// result: found, empty, fallback, error
	SubtitleLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videocaster_subtitle_lookups_total",
		Help: "Subtitle lookups by kind and result",
	}, []string{"kind", "result"})

	// UpstreamRequestDuration tracks calls to the subtitle database.
	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videocaster_opensubtitles_request_duration_seconds",
		Help:    "Latency of OpenSubtitles requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"op", "result"})

	// UpstreamCacheTotal counts subtitle search cache lookups.
	UpstreamCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videocaster_opensubtitles_cache_total",
		Help: "Subtitle search cache lookups by outcome",
	}, []string{"outcome"})
)

// IncSubtitleLookup records a subtitle operation outcome.
func IncSubtitleLookup(kind, result string) {
	SubtitleLookupsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveUpstreamRequest records the latency of one upstream call.
func ObserveUpstreamRequest(op string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	UpstreamRequestDuration.WithLabelValues(op, result).Observe(d.Seconds())
}

// IncUpstreamCache records a search cache hit or miss.
func IncUpstreamCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	UpstreamCacheTotal.WithLabelValues(outcome).Inc()
}
