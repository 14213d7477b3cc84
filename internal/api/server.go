// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the videocaster HTTP API: video streaming, subtitles,
// directory listings, preview frames and daemon control.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jbfp/videocaster/internal/audit"
	"github.com/jbfp/videocaster/internal/config"
	"github.com/jbfp/videocaster/internal/fingerprint"
	"github.com/jbfp/videocaster/internal/frame"
	"github.com/jbfp/videocaster/internal/health"
	"github.com/jbfp/videocaster/internal/library"
	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/media"
	platformnet "github.com/jbfp/videocaster/internal/platform/net"
	"github.com/jbfp/videocaster/internal/subtitles"
)

// Server is the HTTP API. Components derived from the configuration live in
// a runtime snapshot that ApplyConfig swaps atomically.
type Server struct {
	cfg     config.AppConfig
	rt      atomic.Pointer[runtimeState]
	handler http.Handler

	healthManager *health.Manager
	inhibitor     media.IdleInhibitor
	streamMetrics media.StreamMetrics
	provider      subtitles.Provider
	converter     *subtitles.Converter
	fingerprints  *fingerprint.Cache
	localIP       func(context.Context) (net.IP, error)
	audit         *audit.Logger

	shutdownMu sync.Mutex
	shutdownFn func()
	stopOnce   sync.Once

	logger zerolog.Logger
}

// runtimeState is one immutable set of request-path components.
type runtimeState struct {
	library   *library.Library
	responder *media.Responder
	resolver  *subtitles.Resolver
	frames    *frame.Extractor
}

// ServerOption customises a Server.
type ServerOption func(*Server)

// WithHealthManager serves /healthz and /readyz from m.
func WithHealthManager(m *health.Manager) ServerOption {
	return func(s *Server) { s.healthManager = m }
}

// WithInhibitor shares one idle inhibitor across config reloads.
func WithInhibitor(i media.IdleInhibitor) ServerOption {
	return func(s *Server) { s.inhibitor = i }
}

// WithStreamMetrics replaces the Prometheus stream metrics.
func WithStreamMetrics(m media.StreamMetrics) ServerOption {
	return func(s *Server) { s.streamMetrics = m }
}

// WithSubtitleProvider replaces the subtitle database client.
func WithSubtitleProvider(p subtitles.Provider) ServerOption {
	return func(s *Server) { s.provider = p }
}

// WithLocalIP replaces local address discovery.
func WithLocalIP(fn func(context.Context) (net.IP, error)) ServerOption {
	return func(s *Server) { s.localIP = fn }
}

// WithAuditLogger replaces the audit event sink.
func WithAuditLogger(l *audit.Logger) ServerOption {
	return func(s *Server) { s.audit = l }
}

// WithShutdown sets the function POST /shutdown triggers.
func WithShutdown(fn func()) ServerOption {
	return func(s *Server) { s.shutdownFn = fn }
}

// New creates the API server for cfg.
func New(cfg config.AppConfig, opts ...ServerOption) (*Server, error) {
	s := &Server{
		cfg:           cfg,
		inhibitor:     media.NoopInhibitor{},
		streamMetrics: media.PrometheusStreamMetrics{},
		converter:     subtitles.NewConverter(),
		fingerprints:  fingerprint.NewCache(cfg.Subtitles.CacheSize, cfg.Subtitles.CacheTTL),
		localIP:       platformnet.LocalIP,
		audit:         audit.NewLogger(),
		logger:        log.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.healthManager == nil {
		s.healthManager = health.NewManager(cfg.Version)
	}

	if err := s.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HealthManager returns the manager behind /healthz and /readyz.
func (s *Server) HealthManager() *health.Manager {
	return s.healthManager
}

// SetShutdown sets the function POST /shutdown triggers.
func (s *Server) SetShutdown(fn func()) {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	s.shutdownFn = fn
}

// ApplyConfig rebuilds the request-path components from cfg. Requests in
// flight keep the snapshot they started with. Listener, CORS and rate limit
// settings only change on restart.
func (s *Server) ApplyConfig(cfg config.AppConfig) error {
	rt, err := s.buildRuntime(cfg)
	if err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	s.rt.Store(rt)

	s.logger.Info().
		Str("event", "api.config_applied").
		Str("media_root", rt.library.Root()).
		Bool("confine", cfg.Media.Confine).
		Str("language", rt.resolver.Language()).
		Msg("runtime settings applied")
	return nil
}

func (s *Server) state() *runtimeState {
	return s.rt.Load()
}

func (s *Server) buildRuntime(cfg config.AppConfig) (*runtimeState, error) {
	provider := s.provider
	if provider == nil {
		client, err := newSubtitleClient(cfg.Subtitles)
		if err != nil {
			return nil, err
		}
		provider = client
	}

	return &runtimeState{
		library: library.New(library.Config{
			Root:       cfg.Media.Root,
			Confine:    cfg.Media.Confine,
			Extensions: cfg.Media.Extensions,
		}),
		responder: media.NewResponder(media.Options{
			LegacyRangeErrorBody: cfg.Media.LegacyRangeErrorBody,
			Inhibitor:            s.inhibitor,
			Metrics:              s.streamMetrics,
		}),
		resolver: subtitles.NewResolver(s.fingerprints, provider, s.converter, cfg.Subtitles.Language),
		frames: frame.NewExtractor(frame.Config{
			Bin:     cfg.FFmpeg.Bin,
			Seek:    cfg.FFmpeg.Seek,
			Timeout: cfg.FFmpeg.Timeout,
		}),
	}, nil
}

// requestShutdown runs the shutdown function once.
func (s *Server) requestShutdown() bool {
	s.shutdownMu.Lock()
	fn := s.shutdownFn
	s.shutdownMu.Unlock()
	if fn == nil {
		return false
	}
	s.stopOnce.Do(fn)
	return true
}
