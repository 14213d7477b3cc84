// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"mime"
	"path/filepath"
	"strings"
)

// Cast receivers are picky about these; the system mime table often lacks them.
var contentTypes = map[string]string{
	".avi":  "video/x-msvideo",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".srt":  "application/x-subrip",
	".vtt":  "text/vtt",
	".webm": "video/webm",
}

// ContentType guesses the media type of path from its extension.
func ContentType(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct, true
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct, true
	}
	return "", false
}
