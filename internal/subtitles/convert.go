// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package subtitles converts SRT subtitles to WebVTT and resolves subtitles
// for local video files.
package subtitles

import (
	"regexp"
	"strings"
)

const (
	// ContentTypeVTT is the media type of converted subtitles.
	ContentTypeVTT = "text/vtt"

	vttHeader = "WEBVTT\n\n"

	// FallbackVTT is served when no subtitle could be found or converted.
	FallbackVTT = vttHeader + "00:00:00.000 --> 00:00:15.000\nNo subtitles found\n"
)

// Converter rewrites SRT text into WebVTT. The patterns are compiled once by
// NewConverter and only read afterwards, so one Converter is shared by all
// requests.
type Converter struct {
	cueID  *regexp.Regexp
	timing *regexp.Regexp
}

// NewConverter compiles the line classifiers.
func NewConverter() *Converter {
	return &Converter{
		cueID:  regexp.MustCompile(`^\d+$`),
		timing: regexp.MustCompile(`(\d\d:\d\d:\d\d(?:[,.]\d\d\d)?) --> (\d\d:\d\d:\d\d(?:[,.]\d\d\d)?)`),
	}
}

// Convert returns srt as WebVTT. Cue numbers are dropped, timing lines get
// '.' as millisecond separator, everything else passes through. The header
// is always prepended, so converting VTT output again duplicates it.
func (c *Converter) Convert(srt string) string {
	var b strings.Builder
	b.Grow(len(vttHeader) + len(srt))
	b.WriteString(vttHeader)

	for _, line := range splitLines(srt) {
		switch {
		case c.cueID.MatchString(line):
			continue
		case c.timing.MatchString(line):
			b.WriteString(strings.ReplaceAll(line, ",", "."))
		default:
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}

	return b.String()
}

// splitLines splits on '\n', drops one trailing '\r' per line and does not
// yield an empty final line for text ending in a newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
