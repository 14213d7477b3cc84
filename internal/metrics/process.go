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
	// FrameBytesOutput counts JPEG bytes produced by ffmpeg.
	FrameBytesOutput = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videocaster_frame_bytes_output_total",
		Help: "Total JPEG bytes produced by frame extraction",
	})

	// FrameDuration tracks ffmpeg frame extraction time.
	FrameDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videocaster_frame_duration_seconds",
		Help:    "Time taken to extract a preview frame",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"result"})

	// ProcTerminateTotal counts signals sent to child process groups.
	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videocaster_proc_terminate_total",
		Help: "Signals sent to child process groups by signal and outcome",
	}, []string{"signal", "outcome"})

	// ProcWaitTotal counts how terminated child processes exited.
	ProcWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videocaster_proc_wait_total",
		Help: "Exit results of terminated child processes",
	}, []string{"result"})
)

// ObserveFrame records one extraction. result is success, timeout or failure.
func ObserveFrame(result string, d time.Duration, n int) {
	FrameDuration.WithLabelValues(result).Observe(d.Seconds())
	if n > 0 {
		FrameBytesOutput.Add(float64(n))
	}
}

// IncProcTerminate records a signal delivery attempt.
func IncProcTerminate(signal, outcome string) {
	ProcTerminateTotal.WithLabelValues(signal, outcome).Inc()
}

// IncProcWait records how a terminated process exited.
func IncProcWait(result string) {
	ProcWaitTotal.WithLabelValues(result).Inc()
}
