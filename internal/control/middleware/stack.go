// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jbfp/videocaster/internal/log"
)

// StackConfig selects the ingress middlewares NewRouter installs.
type StackConfig struct {
	EnableCORS           bool
	AllowedOrigins       []string
	CORSAllowCredentials bool

	EnableSecurityHeaders bool
	CSP                   string
	// TrustedProxies may set X-Forwarded-Proto.
	TrustedProxies []*net.IPNet

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// Global per-IP limit; zero RequestsPerMinute disables it.
	EnableRateLimit   bool
	RequestsPerMinute int
}

// NewRouter returns a chi router with the middlewares of cfg applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(cfg.middlewares()...)
	return r
}

// middlewares lists the stack outermost first. Recovery wraps everything,
// the request id exists before anything logs, and logging sits inside
// tracing so log lines carry the span.
func (cfg StackConfig) middlewares() []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{Recoverer, RequestID}
	if cfg.EnableCORS {
		mws = append(mws, CORS(cfg.AllowedOrigins, cfg.CORSAllowCredentials))
	}
	if cfg.EnableSecurityHeaders {
		mws = append(mws, SecurityHeaders(cfg.CSP, cfg.TrustedProxies))
	}
	if cfg.EnableMetrics {
		mws = append(mws, Metrics())
	}
	if cfg.TracingService != "" {
		mws = append(mws, Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		mws = append(mws, log.Middleware())
	}
	if cfg.EnableRateLimit && cfg.RequestsPerMinute > 0 {
		mws = append(mws, APIRateLimit(cfg.RequestsPerMinute))
	}
	return mws
}
