// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import "github.com/jbfp/videocaster/internal/metrics"

// StreamMetrics receives delivery events from the responder.
type StreamMetrics interface {
	ObserveResponse(status int)
	AddBytes(n int64)
	StreamOpened()
	StreamClosed()
}

// NoopStreamMetrics discards everything.
type NoopStreamMetrics struct{}

func (NoopStreamMetrics) ObserveResponse(int) {}
func (NoopStreamMetrics) AddBytes(int64)      {}
func (NoopStreamMetrics) StreamOpened()       {}
func (NoopStreamMetrics) StreamClosed()       {}

// PrometheusStreamMetrics records into the process-wide registry.
type PrometheusStreamMetrics struct{}

func (PrometheusStreamMetrics) ObserveResponse(status int) { metrics.ObserveVideoResponse(status) }
func (PrometheusStreamMetrics) AddBytes(n int64)           { metrics.AddVideoBytes(n) }
func (PrometheusStreamMetrics) StreamOpened()              { metrics.StreamOpened() }
func (PrometheusStreamMetrics) StreamClosed()              { metrics.StreamClosed() }
