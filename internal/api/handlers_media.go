// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jbfp/videocaster/internal/frame"
	"github.com/jbfp/videocaster/internal/library"
	"github.com/jbfp/videocaster/internal/log"
	platformfs "github.com/jbfp/videocaster/internal/platform/fs"
)

// handleVideo streams a video file with byte range support.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	rt := s.state()
	ref := library.UnescapeVideoRef(chi.URLParam(r, "*"))

	path, err := rt.library.Resolve(ref)
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Debug().
			Err(err).
			Str(log.FieldPath, ref).
			Str("event", "api.video_rejected").
			Msg("video path rejected")
		w.Header().Set("Accept-Ranges", "bytes")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	rt.responder.Serve(w, r, path)
}

// handleListDir returns the visible entries of a directory.
func (s *Server) handleListDir(w http.ResponseWriter, r *http.Request) {
	listing, err := s.state().library.List(r.URL.Query().Get("path"))
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Info().
			Err(err).
			Str(log.FieldPath, r.URL.Query().Get("path")).
			Str("event", "api.list_failed").
			Msg("directory listing failed")
		s.writeLocalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// handleFrame returns a JPEG preview frame of a video.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	if raw == "" {
		writeBadRequest(w, "path is required")
		return
	}

	rt := s.state()
	path, err := rt.library.Resolve(raw)
	if err != nil {
		s.writeLocalError(w, r, err)
		return
	}
	if err := platformfs.IsRegularFile(path); err != nil {
		writeNotFound(w, "video not found")
		return
	}

	img, err := rt.frames.Extract(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, frame.ErrTimeout):
			writeProblem(w, http.StatusGatewayTimeout, codeTimeout, "frame extraction timed out")
		case errors.Is(err, context.Canceled):
			// client went away
		default:
			writeProblem(w, http.StatusInternalServerError, codeInternal, "frame extraction failed")
		}
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
