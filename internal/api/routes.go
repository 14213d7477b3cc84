// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jbfp/videocaster/internal/config"
	"github.com/jbfp/videocaster/internal/control/middleware"
	"github.com/jbfp/videocaster/internal/opensubtitles"
	platformnet "github.com/jbfp/videocaster/internal/platform/net"
)

// HeaderSubtitlesResolved reports whether /subtitles/resolve found real
// subtitles ("true") or served the placeholder ("false").
const HeaderSubtitlesResolved = "X-Subtitles-Resolved"

func (s *Server) routes() http.Handler {
	r := s.newRouter()
	s.registerSystemRoutes(r)
	s.registerMediaRoutes(r)
	s.registerSubtitleRoutes(r)
	return r
}

func (s *Server) newRouter() chi.Router {
	return middleware.NewRouter(middleware.StackConfig{
		EnableCORS:           true,
		AllowedOrigins:       config.AllowedOrigins(s.cfg),
		CORSAllowCredentials: false,

		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,

		EnableMetrics:  true,
		TracingService: tracingService(s.cfg),
		EnableLogging:  true,
	})
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Tracing.Enabled {
		return ""
	}
	return "videocaster-api"
}

func (s *Server) registerSystemRoutes(r chi.Router) {
	r.Get("/healthz", s.healthManager.ServeHealth)
	r.Get("/readyz", s.healthManager.ServeReady)
	r.Get("/ip", s.handleLocalIP)
	r.Post("/shutdown", s.handleShutdown)
}

func (s *Server) registerMediaRoutes(r chi.Router) {
	// The cast device cannot send query strings, so the path travels as the
	// rest of the URL.
	r.Get("/video/*", s.handleVideo)
	r.Head("/video/*", s.handleVideo)
	r.Get("/fs", s.handleListDir)
	r.Get("/frame", s.handleFrame)
}

func (s *Server) registerSubtitleRoutes(r chi.Router) {
	r.Route("/subtitles", func(sr chi.Router) {
		if s.cfg.RateLimit.Enabled {
			sr.Use(middleware.SubtitleRateLimit(s.cfg.RateLimit.RequestsPerMinute, s.audit.RateLimited))
		}
		sr.Get("/by-path", s.handleSubtitlesByPath)
		sr.Get("/by-metadata", s.handleSubtitlesByMetadata)
		sr.Get("/download/*", s.handleSubtitleDownload)
		sr.Get("/resolve/*", s.handleSubtitleResolve)
	})
}

// newSubtitleClient builds the subtitle database client. Downloads are
// restricted to the configured hosts over http(s) on default ports.
func newSubtitleClient(cfg config.SubtitlesConfig) (*opensubtitles.Client, error) {
	policy := platformnet.OutboundPolicy{}
	if len(cfg.AllowedDownloadHosts) > 0 {
		policy = platformnet.OutboundPolicy{
			Enabled: true,
			Allow: platformnet.OutboundAllowlist{
				Hosts:   cfg.AllowedDownloadHosts,
				Ports:   []int{80, 443},
				Schemes: []string{"http", "https"},
			},
		}
	}
	return opensubtitles.New(opensubtitles.Config{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		CacheSize:         cfg.CacheSize,
		CacheTTL:          cfg.CacheTTL,
		DownloadPolicy:    policy,
	})
}
