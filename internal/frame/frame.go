// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package frame grabs a single JPEG preview frame from a video with ffmpeg.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/metrics"
	"github.com/jbfp/videocaster/internal/procgroup"
)

const (
	DefaultBin     = "ffmpeg"
	DefaultSeek    = "00:00:30"
	DefaultTimeout = 15 * time.Second

	maxFrameBytes  = 8 << 20
	maxStderrBytes = 4 << 10
	killGrace      = 2 * time.Second
)

var (
	// ErrTimeout is returned when ffmpeg did not finish in time.
	ErrTimeout = errors.New("frame: extraction timed out")
	// ErrNoFrame is returned when ffmpeg exited cleanly without output.
	ErrNoFrame = errors.New("frame: no image produced")
)

// Config configures an Extractor.
type Config struct {
	Bin     string
	Seek    string
	Timeout time.Duration
}

// Extractor runs ffmpeg once per request.
type Extractor struct {
	bin     string
	seek    string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewExtractor fills unset fields with defaults.
func NewExtractor(cfg Config) *Extractor {
	e := &Extractor{bin: cfg.Bin, seek: cfg.Seek, timeout: cfg.Timeout}
	if e.bin == "" {
		e.bin = DefaultBin
	}
	if e.seek == "" {
		e.seek = DefaultSeek
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	e.logger = log.Derive(func(c *zerolog.Context) {
		*c = c.Str(log.FieldComponent, "frame").Str("ffmpeg", e.bin)
	})
	return e
}

// Args returns the ffmpeg arguments used for path.
func (e *Extractor) Args(path string) []string {
	return []string{
		"-ss", e.seek,
		"-i", path,
		"-vframes", "1",
		"-q:v", "6",
		"-nostats",
		"-hide_banner",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-",
	}
}

// Extract returns one JPEG frame of path. The ffmpeg process group is killed
// when ctx ends or the timeout passes.
func (e *Extractor) Extract(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	logger := log.WithContext(ctx, e.logger)

	// #nosec G204 - bin comes from config, path is a single argument.
	cmd := exec.Command(e.bin, e.Args(path)...)
	procgroup.Set(cmd)

	stdout := &limitedBuffer{limit: maxFrameBytes}
	stderr := &limitedBuffer{limit: maxStderrBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = killGrace

	if err := cmd.Start(); err != nil {
		metrics.ObserveFrame("failure", time.Since(start), 0)
		return nil, fmt.Errorf("start %s: %w", e.bin, err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-waitCh:
	case <-ctx.Done():
		_ = procgroup.Terminate(cmd, waitCh, killGrace)
		metrics.ObserveFrame("canceled", time.Since(start), 0)
		return nil, ctx.Err()
	case <-timer.C:
		_ = procgroup.Terminate(cmd, waitCh, killGrace)
		metrics.ObserveFrame("timeout", time.Since(start), 0)
		logger.Warn().Str(log.FieldPath, path).Dur("timeout", e.timeout).Str("event", "frame.timeout").Msg("frame extraction timed out")
		return nil, ErrTimeout
	}

	if err != nil {
		metrics.ObserveFrame("failure", time.Since(start), 0)
		msg := strings.TrimSpace(stderr.String())
		logger.Warn().Err(err).Str(log.FieldPath, path).Str("stderr", msg).Str("event", "frame.failed").Msg("ffmpeg failed")
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	if stdout.overflow {
		metrics.ObserveFrame("failure", time.Since(start), 0)
		return nil, fmt.Errorf("frame: output exceeds %d bytes", maxFrameBytes)
	}

	img := stdout.Bytes()
	if len(img) == 0 {
		metrics.ObserveFrame("failure", time.Since(start), 0)
		return nil, ErrNoFrame
	}

	metrics.ObserveFrame("success", time.Since(start), len(img))
	logger.Debug().Str(log.FieldPath, path).Int(log.FieldBytes, len(img)).Str("event", "frame.extracted").Msg("extracted preview frame")
	return img, nil
}

// limitedBuffer keeps at most limit bytes and drops the rest, so a runaway
// process cannot grow memory without bound.
type limitedBuffer struct {
	bytes.Buffer
	limit    int
	overflow bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.Len()
	if room < len(p) {
		b.overflow = true
		if room > 0 {
			b.Buffer.Write(p[:room])
		}
		return len(p), nil
	}
	return b.Buffer.Write(p)
}
