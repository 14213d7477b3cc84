// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/jbfp/videocaster/internal/fingerprint"
	"github.com/jbfp/videocaster/internal/library"
)

// Error codes returned in the "error" field.
const (
	codeNotFound    = "not_found"
	codeBadRequest  = "bad_request"
	codeInvalidPath = "invalid_path"
	codeTooSmall    = "file_too_small"
	codeUpstream    = "upstream_error"
	codeTimeout     = "timeout"
	codeInternal    = "internal_error"
	codeUnavailable = "unavailable"
)

// problem is the JSON error body.
type problem struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem writes an error response
func writeProblem(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, problem{Error: code, Detail: detail})
}

// writeNotFound writes a 404 Not Found response
func writeNotFound(w http.ResponseWriter, detail string) {
	writeProblem(w, http.StatusNotFound, codeNotFound, detail)
}

// writeBadRequest writes a 400 Bad Request response
func writeBadRequest(w http.ResponseWriter, detail string) {
	writeProblem(w, http.StatusBadRequest, codeBadRequest, detail)
}

// writeLocalError maps errors from the media library and fingerprinting.
// OS error text is never sent to the client.
// Rejected paths are audited.
func (s *Server) writeLocalError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrOutsideRoot):
		s.audit.PathRejected(r, r.URL.RequestURI(), "outside media root")
		writeProblem(w, http.StatusBadRequest, codeInvalidPath, "path is outside the media root")
	case errors.Is(err, library.ErrInvalidPath):
		s.audit.PathRejected(r, r.URL.RequestURI(), "invalid path")
		writeProblem(w, http.StatusBadRequest, codeInvalidPath, "invalid path")
	case errors.Is(err, fingerprint.ErrTooSmall):
		writeProblem(w, http.StatusBadRequest, codeTooSmall, "file is too small to fingerprint")
	case errors.Is(err, os.ErrNotExist):
		writeNotFound(w, "file not found")
	case errors.Is(err, os.ErrPermission):
		writeProblem(w, http.StatusForbidden, "forbidden", "permission denied")
	default:
		writeProblem(w, http.StatusInternalServerError, codeInternal, "local file error")
	}
}
