// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"net/url"
	"strings"
)

var refEscapes = strings.NewReplacer("%2E", ".", "%2e", ".", "%2F", "/", "%2f", "/")

// UnescapeVideoRef decodes a video path sent as a single URL path segment.
// Cast receivers drop query strings, so the sender escapes dots and slashes.
// Remaining percent escapes are decoded when they are well formed.
func UnescapeVideoRef(s string) string {
	s = refEscapes.Replace(s)
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}
