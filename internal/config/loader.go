// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader. An empty configPath means
// defaults plus environment only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file this loader reads, if any.
func (l *Loader) Path() string {
	return l.configPath
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if root, err := filepath.Abs(cfg.Media.Root); err == nil {
		cfg.Media.Root = root
	}
	cfg.Media.Extensions = normalizeExtensions(cfg.Media.Extensions)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.ListenAddr = l.envString(EnvPrefix+"LISTEN", cfg.ListenAddr)
	cfg.LogLevel = l.envString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = l.envString(EnvPrefix+"LOG_FORMAT", cfg.LogFormat)
	cfg.MetricsListen = l.envString(EnvPrefix+"METRICS_LISTEN", cfg.MetricsListen)

	cfg.Server.ReadTimeout = l.envDuration(EnvPrefix+"SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration(EnvPrefix+"SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = l.envDuration(EnvPrefix+"SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration(EnvPrefix+"SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.MaxHeaderBytes = l.envInt(EnvPrefix+"SERVER_MAX_HEADER_BYTES", cfg.Server.MaxHeaderBytes)

	cfg.Media.Root = l.envString(EnvPrefix+"MEDIA_ROOT", cfg.Media.Root)
	cfg.Media.Confine = l.envBool(EnvPrefix+"MEDIA_CONFINE", cfg.Media.Confine)
	cfg.Media.Extensions = l.envList(EnvPrefix+"MEDIA_EXTENSIONS", cfg.Media.Extensions)
	cfg.Media.LegacyRangeErrorBody = l.envBool(EnvPrefix+"MEDIA_LEGACY_RANGE_ERROR_BODY", cfg.Media.LegacyRangeErrorBody)
	cfg.Media.InhibitIdle = l.envBool(EnvPrefix+"MEDIA_INHIBIT_IDLE", cfg.Media.InhibitIdle)

	cfg.Subtitles.BaseURL = l.envString(EnvPrefix+"SUBTITLES_BASE_URL", cfg.Subtitles.BaseURL)
	cfg.Subtitles.Language = l.envString(EnvPrefix+"SUBTITLES_LANGUAGE", cfg.Subtitles.Language)
	cfg.Subtitles.UserAgent = l.envString(EnvPrefix+"SUBTITLES_USER_AGENT", cfg.Subtitles.UserAgent)
	cfg.Subtitles.Timeout = l.envDuration(EnvPrefix+"SUBTITLES_TIMEOUT", cfg.Subtitles.Timeout)
	cfg.Subtitles.RequestsPerSecond = l.envFloat(EnvPrefix+"SUBTITLES_RPS", cfg.Subtitles.RequestsPerSecond)
	cfg.Subtitles.Burst = l.envInt(EnvPrefix+"SUBTITLES_BURST", cfg.Subtitles.Burst)
	cfg.Subtitles.CacheSize = l.envInt(EnvPrefix+"SUBTITLES_CACHE_SIZE", cfg.Subtitles.CacheSize)
	cfg.Subtitles.CacheTTL = l.envDuration(EnvPrefix+"SUBTITLES_CACHE_TTL", cfg.Subtitles.CacheTTL)
	cfg.Subtitles.AllowedDownloadHosts = l.envList(EnvPrefix+"SUBTITLES_ALLOWED_HOSTS", cfg.Subtitles.AllowedDownloadHosts)

	cfg.CORS.AllowedOrigins = l.envList(EnvPrefix+"CORS_ORIGINS", cfg.CORS.AllowedOrigins)

	cfg.RateLimit.Enabled = l.envBool(EnvPrefix+"RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMinute = l.envInt(EnvPrefix+"RATELIMIT_RPM", cfg.RateLimit.RequestsPerMinute)

	cfg.Tracing.Enabled = l.envBool(EnvPrefix+"TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvPrefix+"TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvPrefix+"TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvPrefix+"TRACING_SAMPLING_RATE", cfg.Tracing.SamplingRate)

	cfg.FFmpeg.Bin = l.envString(EnvPrefix+"FFMPEG_BIN", cfg.FFmpeg.Bin)
	cfg.FFmpeg.Seek = l.envString(EnvPrefix+"FFMPEG_SEEK", cfg.FFmpeg.Seek)
	cfg.FFmpeg.Timeout = l.envDuration(EnvPrefix+"FFMPEG_TIMEOUT", cfg.FFmpeg.Timeout)

	cfg.Browser.Enabled = l.envBool(EnvPrefix+"BROWSER_ENABLED", cfg.Browser.Enabled)
	cfg.Browser.Command = l.envString(EnvPrefix+"BROWSER_COMMAND", cfg.Browser.Command)
	cfg.Browser.UserDataDir = l.envString(EnvPrefix+"BROWSER_USER_DATA_DIR", cfg.Browser.UserDataDir)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
