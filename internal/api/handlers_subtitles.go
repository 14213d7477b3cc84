// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jbfp/videocaster/internal/fingerprint"
	"github.com/jbfp/videocaster/internal/library"
	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/subtitles"
)

const vttContentType = "text/vtt; charset=utf-8"

// handleSubtitlesByPath searches subtitles by the fingerprint of a local file.
func (s *Server) handleSubtitlesByPath(w http.ResponseWriter, r *http.Request) {
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

	candidates, err := rt.resolver.Search(r.Context(), path)
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	writeCandidates(w, candidates)
}

// handleSubtitlesByMetadata searches subtitles by title, season and episode.
func (s *Server) handleSubtitlesByMetadata(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := subtitles.MetadataQuery{
		Title:   q.Get("title"),
		Season:  q.Get("season"),
		Episode: q.Get("episode"),
	}
	if query.Title == "" {
		writeBadRequest(w, "title is required")
		return
	}

	candidates, err := s.state().resolver.SearchByMetadata(r.Context(), query)
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	writeCandidates(w, candidates)
}

// handleSubtitleDownload converts one subtitle URL to WebVTT. Failures serve
// the placeholder track.
func (s *Server) handleSubtitleDownload(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	target, err := url.PathUnescape(raw)
	if err != nil {
		target = raw
	}

	vtt, found := s.state().resolver.Fetch(r.Context(), target)
	writeVTT(w, vtt, found)
}

// handleSubtitleResolve runs the whole lookup for a video and always answers
// with WebVTT.
func (s *Server) handleSubtitleResolve(w http.ResponseWriter, r *http.Request) {
	rt := s.state()
	ref := library.UnescapeVideoRef(chi.URLParam(r, "*"))

	path, err := rt.library.Resolve(ref)
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Debug().
			Err(err).
			Str(log.FieldPath, ref).
			Str("event", "api.subtitles_rejected").
			Msg("subtitle path rejected, serving fallback")
		writeVTT(w, []byte(subtitles.FallbackVTT), false)
		return
	}

	vtt, found := rt.resolver.Resolve(r.Context(), path)
	writeVTT(w, vtt, found)
}

func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	if isLocalError(err) {
		s.writeLocalError(w, r, err)
		return
	}
	if r.Context().Err() != nil {
		return
	}
	logger := log.WithContext(r.Context(), s.logger)
	logger.Warn().
		Err(err).
		Str("event", "api.subtitle_search_failed").
		Msg("subtitle search failed")
	writeProblem(w, http.StatusBadGateway, codeUpstream, "subtitle database request failed")
}

func isLocalError(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, fingerprint.ErrTooSmall) ||
		errors.Is(err, library.ErrOutsideRoot)
}

func writeCandidates(w http.ResponseWriter, candidates []subtitles.Candidate) {
	if candidates == nil {
		candidates = []subtitles.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

func writeVTT(w http.ResponseWriter, vtt []byte, found bool) {
	w.Header().Set("Content-Type", vttContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(vtt)))
	w.Header().Set(HeaderSubtitlesResolved, strconv.FormatBool(found))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(vtt)
}
