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
	// VideoResponsesTotal counts ranged file responses by status code.
	VideoResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videocaster_video_responses_total",
		Help: "Video file responses by HTTP status",
	}, []string{"status"})

	// VideoBytesServed counts body bytes written to playback clients.
	VideoBytesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videocaster_video_bytes_served_total",
		Help: "Video body bytes written to clients",
	})

	// ActiveStreams tracks open video bodies.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videocaster_active_streams",
		Help: "Number of video bodies currently streaming",
	})

	// IdleInhibited is 1 while the host idle timer is suppressed.
	IdleInhibited = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videocaster_idle_inhibited",
		Help: "Whether host idle/sleep timers are currently suppressed (1) or not (0)",
	})

	// FingerprintDuration tracks the time spent hashing video files.
	FingerprintDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videocaster_fingerprint_duration_seconds",
		Help:    "Time taken to fingerprint a video file",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"result"})

	// FingerprintCacheTotal counts fingerprint cache lookups.
	FingerprintCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videocaster_fingerprint_cache_total",
		Help: "Fingerprint cache lookups by outcome",
	}, []string{"outcome"})
)

// ObserveVideoResponse records the final status of a video response.
func ObserveVideoResponse(status int) {
	VideoResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// AddVideoBytes records body bytes written.
func AddVideoBytes(n int64) {
	if n > 0 {
		VideoBytesServed.Add(float64(n))
	}
}

// StreamOpened increments the active stream gauge.
func StreamOpened() {
	ActiveStreams.Inc()
}

// StreamClosed decrements the active stream gauge.
func StreamClosed() {
	ActiveStreams.Dec()
}

// SetIdleInhibited records the host idle inhibition state.
func SetIdleInhibited(active bool) {
	if active {
		IdleInhibited.Set(1)
		return
	}
	IdleInhibited.Set(0)
}

// ObserveFingerprintDuration records one fingerprint computation.
func ObserveFingerprintDuration(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	FingerprintDuration.WithLabelValues(result).Observe(d.Seconds())
}

// IncFingerprintCache records a cache hit or miss.
func IncFingerprintCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	FingerprintCacheTotal.WithLabelValues(outcome).Inc()
}
