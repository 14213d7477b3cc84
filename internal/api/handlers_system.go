// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/jbfp/videocaster/internal/log"
)

// handleLocalIP returns the LAN address as a JSON string.
func (s *Server) handleLocalIP(w http.ResponseWriter, r *http.Request) {
	ip, err := s.localIP(r.Context())
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Warn().Err(err).Str("event", "api.local_ip_failed").Msg("local address lookup failed")
		writeProblem(w, http.StatusInternalServerError, codeInternal, "local address unavailable")
		return
	}
	writeJSON(w, http.StatusOK, ip.String())
}

// handleShutdown asks the daemon to stop gracefully.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	logger := log.WithContext(r.Context(), s.logger)
	logger.Info().Str("event", "api.shutdown_requested").Msg("shutdown requested")
	// Flush before connections start draining.
	w.WriteHeader(http.StatusAccepted)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	accepted := s.requestShutdown()
	s.audit.ShutdownRequested(r, accepted)
	if !accepted {
		logger.Warn().Str("event", "api.shutdown_unavailable").Msg("no shutdown handler installed")
	}
}
