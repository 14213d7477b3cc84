// SPDX-License-Identifier: MIT
package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func getHistogramCount(t *testing.T, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	observer, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	metric := &dto.Metric{}
	require.NoError(t, observer.(prometheus.Metric).Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestVideoMetrics(t *testing.T) {
	t.Run("responses by status", func(t *testing.T) {
		before := getCounterValue(t, VideoResponsesTotal.WithLabelValues("206"))
		ObserveVideoResponse(206)
		ObserveVideoResponse(206)
		assert.Equal(t, before+2, getCounterValue(t, VideoResponsesTotal.WithLabelValues("206")))
	})

	t.Run("bytes ignore non-positive counts", func(t *testing.T) {
		before := getCounterValue(t, VideoBytesServed)
		AddVideoBytes(1024)
		AddVideoBytes(0)
		AddVideoBytes(-5)
		assert.Equal(t, before+1024, getCounterValue(t, VideoBytesServed))
	})

	t.Run("active streams", func(t *testing.T) {
		before := getGaugeValue(t, ActiveStreams)
		StreamOpened()
		StreamOpened()
		assert.Equal(t, before+2, getGaugeValue(t, ActiveStreams))
		StreamClosed()
		StreamClosed()
		assert.Equal(t, before, getGaugeValue(t, ActiveStreams))
	})

	t.Run("idle inhibition", func(t *testing.T) {
		SetIdleInhibited(true)
		assert.Equal(t, 1.0, getGaugeValue(t, IdleInhibited))
		SetIdleInhibited(false)
		assert.Equal(t, 0.0, getGaugeValue(t, IdleInhibited))
	})
}

func TestFingerprintMetrics(t *testing.T) {
	okBefore := getHistogramCount(t, FingerprintDuration, "success")
	failBefore := getHistogramCount(t, FingerprintDuration, "failure")

	ObserveFingerprintDuration(3*time.Millisecond, nil)
	ObserveFingerprintDuration(time.Millisecond, errors.New("short read"))

	assert.Equal(t, okBefore+1, getHistogramCount(t, FingerprintDuration, "success"))
	assert.Equal(t, failBefore+1, getHistogramCount(t, FingerprintDuration, "failure"))

	hits := getCounterValue(t, FingerprintCacheTotal.WithLabelValues("hit"))
	misses := getCounterValue(t, FingerprintCacheTotal.WithLabelValues("miss"))
	IncFingerprintCache(true)
	IncFingerprintCache(false)
	IncFingerprintCache(false)
	assert.Equal(t, hits+1, getCounterValue(t, FingerprintCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+2, getCounterValue(t, FingerprintCacheTotal.WithLabelValues("miss")))
}

func TestSubtitleMetrics(t *testing.T) {
	before := getCounterValue(t, SubtitleLookupsTotal.WithLabelValues("resolve", "fallback"))
	IncSubtitleLookup("resolve", "fallback")
	assert.Equal(t, before+1, getCounterValue(t, SubtitleLookupsTotal.WithLabelValues("resolve", "fallback")))

	failBefore := getHistogramCount(t, UpstreamRequestDuration, "search", "failure")
	ObserveUpstreamRequest("search", 200*time.Millisecond, errors.New("502"))
	assert.Equal(t, failBefore+1, getHistogramCount(t, UpstreamRequestDuration, "search", "failure"))

	hits := getCounterValue(t, UpstreamCacheTotal.WithLabelValues("hit"))
	IncUpstreamCache(true)
	assert.Equal(t, hits+1, getCounterValue(t, UpstreamCacheTotal.WithLabelValues("hit")))
}

func TestProcessMetrics(t *testing.T) {
	bytesBefore := getCounterValue(t, FrameBytesOutput)
	timeoutBefore := getHistogramCount(t, FrameDuration, "timeout")

	ObserveFrame("success", 400*time.Millisecond, 2048)
	ObserveFrame("timeout", 15*time.Second, 0)

	assert.Equal(t, bytesBefore+2048, getCounterValue(t, FrameBytesOutput))
	assert.Equal(t, timeoutBefore+1, getHistogramCount(t, FrameDuration, "timeout"))

	termBefore := getCounterValue(t, ProcTerminateTotal.WithLabelValues("SIGTERM", "sent"))
	IncProcTerminate("SIGTERM", "sent")
	assert.Equal(t, termBefore+1, getCounterValue(t, ProcTerminateTotal.WithLabelValues("SIGTERM", "sent")))

	waitBefore := getCounterValue(t, ProcWaitTotal.WithLabelValues("signaled"))
	IncProcWait("signaled")
	assert.Equal(t, waitBefore+1, getCounterValue(t, ProcWaitTotal.WithLabelValues("signaled")))
}

func TestMetricsAreRegistered(t *testing.T) {
	ObserveVideoResponse(200)
	IncSubtitleLookup("by_path", "found")
	IncProcWait("exited")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"videocaster_video_responses_total",
		"videocaster_subtitle_lookups_total",
		"videocaster_proc_wait_total",
		"videocaster_active_streams",
	} {
		assert.True(t, names[want], want)
	}
}
