// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks cfg and joins every problem into one error.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		add("listenAddr %q: %v", cfg.ListenAddr, err)
	}
	if cfg.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsListen); err != nil {
			add("metricsListen %q: %v", cfg.MetricsListen, err)
		}
	}
	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
			add("logLevel %q: %v", cfg.LogLevel, err)
		}
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "", "json", "console":
	default:
		add("logFormat %q: want json or console", cfg.LogFormat)
	}

	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 || cfg.Server.IdleTimeout < 0 {
		add("server timeouts must not be negative")
	}

	if strings.TrimSpace(cfg.Media.Root) == "" {
		add("media.root is required")
	}
	if len(cfg.Media.Extensions) == 0 {
		add("media.extensions must list at least one extension")
	}

	if u, err := url.Parse(cfg.Subtitles.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("subtitles.baseUrl %q must be an absolute http(s) URL", cfg.Subtitles.BaseURL)
	}
	if cfg.Subtitles.Language == "" {
		add("subtitles.language is required")
	}
	if cfg.Subtitles.RequestsPerSecond < 0 || cfg.Subtitles.Burst < 0 {
		add("subtitles rate limit must not be negative")
	}
	if cfg.Subtitles.CacheSize < 0 {
		add("subtitles.cacheSize must not be negative")
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute <= 0 {
		add("rateLimit.requestsPerMinute must be positive when enabled")
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "grpc", "http":
		default:
			add("tracing.exporter %q: want grpc or http", cfg.Tracing.Exporter)
		}
		if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
			add("tracing.samplingRate %v outside [0,1]", cfg.Tracing.SamplingRate)
		}
	}

	if cfg.FFmpeg.Bin == "" {
		add("ffmpeg.bin is required")
	}

	return errors.Join(errs...)
}
