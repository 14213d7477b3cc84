// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package opensubtitles

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/jbfp/videocaster/internal/subtitles"
)

// MetadataSearchURL renders the title search path. Season and episode are
// appended only when set.
func MetadataSearchURL(base string, q subtitles.MetadataQuery) string {
	lang := q.Language
	if lang == "" {
		lang = subtitles.DefaultLanguage
	}

	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	b.WriteString("/search/query-")
	b.WriteString(encodeSegment(q.Title))
	b.WriteString("/sublanguageid-")
	b.WriteString(lang)
	if q.Season != "" {
		b.WriteString("/season-")
		b.WriteString(encodeSegment(q.Season))
	}
	if q.Episode != "" {
		b.WriteString("/episode-")
		b.WriteString(encodeSegment(q.Episode))
	}
	return b.String()
}

// encodeSegment percent-encodes every byte that is not an ASCII letter or
// digit. Dots and slashes become spaces first; the API treats them as path
// separators.
func encodeSegment(s string) string {
	s = strings.NewReplacer(".", " ", "/", " ").Replace(s)

	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// gunzip decompresses body when it starts with the gzip magic and returns it
// unchanged otherwise.
func gunzip(body []byte, limit int64) ([]byte, error) {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("decompressed subtitle exceeds %d bytes", limit)
	}
	return out, nil
}
