// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httprange parses HTTP Range request headers.
//
// The parser is deliberately lax in the same ways real players are: extra
// whitespace and empty comma separated pieces are tolerated, and pieces that
// start past the end of the resource are dropped as long as at least one
// other piece is satisfiable.
package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const unitPrefix = "bytes="

var (
	// ErrMissingUnitPrefix is returned when a non-empty header does not start with "bytes=".
	ErrMissingUnitPrefix = errors.New("range: missing bytes= prefix")
	// ErrInvalidRange is returned when a piece has no '-' separator.
	ErrInvalidRange = errors.New("range: invalid range")
	// ErrParsing is returned when a position is not a valid integer.
	ErrParsing = errors.New("range: malformed position")
	// ErrStartAfterEnd is returned for a closed range whose start exceeds its end.
	ErrStartAfterEnd = errors.New("range: start after end")
	// ErrStartIsNegative is returned when the start position is negative.
	ErrStartIsNegative = errors.New("range: start is negative")
	// ErrNoRanges is returned when every piece started past the end of the resource.
	ErrNoRanges = errors.New("range: no satisfiable ranges")
)

// ByteRange is a contiguous run of bytes within a resource.
type ByteRange struct {
	Start  int64
	Length int64
}

// End returns the inclusive last byte offset of the range.
func (r ByteRange) End() int64 {
	return r.Start + r.Length - 1
}

// Parse parses the value of a Range header for a resource of size bytes.
//
// An empty header yields an empty result and no error; the caller serves the
// whole resource. Ranges are returned in header order without merging.
func Parse(header string, size int64) ([]ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	if !strings.HasPrefix(header, unitPrefix) {
		return nil, ErrMissingUnitPrefix
	}

	var (
		ranges    []ByteRange
		noOverlap bool
	)

	for _, piece := range strings.Split(header[len(unitPrefix):], ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		startStr, endStr, ok := strings.Cut(piece, "-")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, piece)
		}
		startStr = strings.TrimSpace(startStr)
		endStr = strings.TrimSpace(endStr)

		if startStr == "" {
			n, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrParsing, piece, err)
			}
			if n < 0 {
				return nil, fmt.Errorf("%w: %q: negative suffix length", ErrParsing, piece)
			}
			n = min(n, size)
			ranges = append(ranges, ByteRange{Start: size - n, Length: n})
			continue
		}

		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrParsing, piece, err)
		}
		if start < 0 {
			return nil, fmt.Errorf("%w: %q", ErrStartIsNegative, piece)
		}
		if start >= size {
			noOverlap = true
			continue
		}

		if endStr == "" {
			ranges = append(ranges, ByteRange{Start: start, Length: size - start})
			continue
		}

		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrParsing, piece, err)
		}
		if start > end {
			return nil, fmt.Errorf("%w: %q", ErrStartAfterEnd, piece)
		}
		if end >= size {
			end = size - 1
		}
		ranges = append(ranges, ByteRange{Start: start, Length: end - start + 1})
	}

	if noOverlap && len(ranges) == 0 {
		return nil, ErrNoRanges
	}

	return ranges, nil
}

// ContentRange formats the Content-Range header for a satisfied range.
func ContentRange(r ByteRange, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End(), size)
}

// UnsatisfiedContentRange formats the Content-Range header for a 416 response.
func UnsatisfiedContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}
