// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates and hot-reloads the videocaster configuration.
//
// Precedence is ENV > YAML file > defaults. The file is parsed strictly:
// unknown keys and multiple documents are rejected.
package config

import (
	"os"
	"time"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "VIDEOCASTER_"

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	ListenAddr    string `yaml:"listenAddr"`
	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
	MetricsListen string `yaml:"metricsListen"`

	Server    ServerRuntimeConfig `yaml:"server"`
	Media     MediaConfig         `yaml:"media"`
	Subtitles SubtitlesConfig     `yaml:"subtitles"`
	CORS      CORSConfig          `yaml:"cors"`
	RateLimit RateLimitConfig     `yaml:"rateLimit"`
	Tracing   TracingConfig       `yaml:"tracing"`
	FFmpeg    FFmpegConfig        `yaml:"ffmpeg"`
	Browser   BrowserConfig       `yaml:"browser"`
}

// ServerRuntimeConfig holds the HTTP server timeouts as written in YAML.
type ServerRuntimeConfig struct {
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxHeaderBytes  int           `yaml:"maxHeaderBytes"`
}

// MediaConfig controls which files are listed and how they are served.
type MediaConfig struct {
	Root       string   `yaml:"root"`
	Confine    bool     `yaml:"confine"`
	Extensions []string `yaml:"extensions"`
	// LegacyRangeErrorBody streams the whole file with a 416 status.
	LegacyRangeErrorBody bool `yaml:"legacyRangeErrorBody"`
	InhibitIdle          bool `yaml:"inhibitIdle"`
}

// SubtitlesConfig configures the subtitle database client.
type SubtitlesConfig struct {
	BaseURL              string        `yaml:"baseUrl"`
	Language             string        `yaml:"language"`
	UserAgent            string        `yaml:"userAgent"`
	Timeout              time.Duration `yaml:"timeout"`
	RequestsPerSecond    float64       `yaml:"requestsPerSecond"`
	Burst                int           `yaml:"burst"`
	CacheSize            int           `yaml:"cacheSize"`
	CacheTTL             time.Duration `yaml:"cacheTTL"`
	AllowedDownloadHosts []string      `yaml:"allowedDownloadHosts"`
}

// CORSConfig lists browser origins allowed to call the API.
// Empty means the cast receiver origin plus the local UI.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// RateLimitConfig limits the subtitle endpoints per client IP.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// FFmpegConfig configures preview frame extraction.
type FFmpegConfig struct {
	Bin     string        `yaml:"bin"`
	Seek    string        `yaml:"seek"`
	Timeout time.Duration `yaml:"timeout"`
}

// BrowserConfig configures the optional UI browser launch.
type BrowserConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Command     string `yaml:"command"`
	UserDataDir string `yaml:"userDataDir"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	root, err := os.UserHomeDir()
	if err != nil || root == "" {
		root = string(os.PathSeparator)
	}

	return AppConfig{
		ListenAddr: ":8000",
		LogLevel:   "info",
		LogFormat:  "json",
		Server: ServerRuntimeConfig{
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			MaxHeaderBytes:  defaultMaxHeaderBytes,
		},
		Media: MediaConfig{
			Root:        root,
			Confine:     false,
			Extensions:  []string{"avi", "mkv", "mp4"},
			InhibitIdle: true,
		},
		Subtitles: SubtitlesConfig{
			BaseURL:              "https://rest.opensubtitles.org",
			Language:             "eng",
			UserAgent:            "videocaster 1.0.0",
			Timeout:              20 * time.Second,
			RequestsPerSecond:    2,
			Burst:                4,
			CacheSize:            256,
			CacheTTL:             30 * time.Minute,
			AllowedDownloadHosts: []string{"dl.opensubtitles.org", "rest.opensubtitles.org"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		FFmpeg: FFmpegConfig{
			Bin:     "ffmpeg",
			Seek:    "00:00:30",
			Timeout: 15 * time.Second,
		},
		Browser: BrowserConfig{
			Command: "google-chrome",
		},
	}
}
