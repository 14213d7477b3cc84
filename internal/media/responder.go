// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media serves local video files with HTTP byte range support.
package media

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jbfp/videocaster/internal/httprange"
	"github.com/jbfp/videocaster/internal/log"
	"github.com/jbfp/videocaster/internal/telemetry"
)

const copyBufferSize = 64 << 10

var copyBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, copyBufferSize)
		return &b
	},
}

// Response is a prepared answer for one video request. Body is nil when no
// bytes are to be sent; otherwise the caller must Close it.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
	Length int64
	Offset int64
	// Size is the file size, or -1 when the file could not be examined.
	Size int64
}

// Options configures a Responder.
type Options struct {
	// LegacyRangeErrorBody attaches the whole file to 416 responses.
	LegacyRangeErrorBody bool
	Inhibitor            IdleInhibitor
	Metrics              StreamMetrics
}

// Responder turns a file path and Range header into a Response.
type Responder struct {
	legacy    bool
	inhibitor IdleInhibitor
	metrics   StreamMetrics
	logger    zerolog.Logger
}

// NewResponder returns a responder. Nil collaborators become no-ops.
func NewResponder(opts Options) *Responder {
	r := &Responder{
		legacy:    opts.LegacyRangeErrorBody,
		inhibitor: opts.Inhibitor,
		metrics:   opts.Metrics,
		logger:    log.WithComponent("media"),
	}
	if r.inhibitor == nil {
		r.inhibitor = NoopInhibitor{}
	}
	if r.metrics == nil {
		r.metrics = NoopStreamMetrics{}
	}
	return r
}

// Prepare opens path and computes status, headers and body for rangeHeader.
// It never fails; errors are expressed as status codes.
func (rs *Responder) Prepare(path, rangeHeader string) *Response {
	resp := &Response{Status: http.StatusOK, Header: make(http.Header), Size: -1}
	resp.Header.Set("Accept-Ranges", "bytes")

	f, err := os.Open(path)
	if err != nil {
		rs.logger.Info().Err(err).Str(log.FieldPath, path).Str("event", "media.open_failed").Msg("cannot open video file")
		resp.Status = http.StatusNotFound
		return resp
	}

	if ct, ok := ContentType(path); ok {
		resp.Header.Set("Content-Type", ct)
	} else {
		rs.logger.Warn().Str(log.FieldPath, path).Str("event", "media.unknown_type").Msg("unknown content type")
	}

	info, err := f.Stat()
	if err != nil {
		rs.logger.Error().Err(err).Str(log.FieldPath, path).Str("event", "media.stat_failed").Msg("cannot stat video file")
		closeQuietly(f)
		resp.Status = http.StatusInternalServerError
		return resp
	}
	if !info.Mode().IsRegular() {
		rs.logger.Info().Str(log.FieldPath, path).Str("event", "media.not_regular").Msg("not a regular file")
		closeQuietly(f)
		resp.Header.Del("Content-Type")
		resp.Status = http.StatusNotFound
		return resp
	}
	size := info.Size()
	resp.Size = size

	offset, length := int64(0), size
	ranged := false
	ranges, err := httprange.Parse(rangeHeader, size)
	switch {
	case err != nil:
		rs.logger.Info().Err(err).Str(log.FieldRange, rangeHeader).Int64(log.FieldSize, size).Str("event", "media.range_invalid").Msg("unsatisfiable range")
		resp.Header.Set("Content-Range", httprange.UnsatisfiedContentRange(size))
		resp.Status = http.StatusRequestedRangeNotSatisfiable
		if !rs.legacy {
			closeQuietly(f)
			return resp
		}
	case len(ranges) > 0 && ranges[0].Length == 0:
		// bytes=-0: nothing to serve.
		length = 0
	case len(ranges) > 0:
		first := ranges[0]
		offset, length = first.Start, first.Length
		ranged = true
		resp.Header.Set("Content-Encoding", "identity")
		resp.Header.Set("Content-Range", httprange.ContentRange(first, size))
	}

	if ranged && (offset > 0 || length < size) {
		resp.Status = http.StatusPartialContent
	}
	resp.Offset, resp.Length = offset, length
	resp.Header.Set("Content-Length", strconv.FormatInt(length, 10))

	if length == 0 {
		closeQuietly(f)
		return resp
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			rs.logger.Error().Err(err).Str(log.FieldPath, path).Int64("offset", offset).Str("event", "media.seek_failed").Msg("cannot seek video file")
			closeQuietly(f)
			resp.Header.Del("Content-Length")
			resp.Header.Del("Content-Range")
			resp.Header.Del("Content-Encoding")
			resp.Status = http.StatusInternalServerError
			resp.Offset, resp.Length = 0, 0
			return resp
		}
	}

	rs.logger.Debug().
		Str(log.FieldPath, path).
		Str(log.FieldRange, rangeHeader).
		Int64(log.FieldSize, size).
		Int64("offset", offset).
		Int64("length", length).
		Bool("ranged", ranged).
		Str("event", "media.prepare").
		Msg("prepared video response")

	resp.Body = newStream(f, length, rs.inhibitor, rs.metrics)
	return resp
}

// Serve writes the response for path to w. HEAD requests get headers only.
func (rs *Responder) Serve(w http.ResponseWriter, r *http.Request, path string) {
	rangeHeader := r.Header.Get("Range")
	ctx, span := telemetry.Tracer("media").Start(r.Context(), "media.serve")
	defer span.End()

	resp := rs.Prepare(path, rangeHeader)
	if resp.Body != nil {
		defer closeQuietly(resp.Body)
	}

	span.SetAttributes(telemetry.MediaAttributes(path, resp.Size, resp.Offset, resp.Length, rangeHeader)...)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))

	h := w.Header()
	for k, v := range resp.Header {
		h[k] = v
	}
	rs.metrics.ObserveResponse(resp.Status)
	w.WriteHeader(resp.Status)

	if resp.Body == nil || r.Method == http.MethodHead {
		return
	}

	bufp := copyBuffers.Get().(*[]byte)
	defer copyBuffers.Put(bufp)

	n, err := io.CopyBuffer(w, resp.Body, *bufp)
	if err != nil && !errors.Is(err, ctx.Err()) {
		logger := log.WithContext(ctx, rs.logger)
		logger.Debug().
			Err(err).
			Str(log.FieldPath, path).
			Int64(log.FieldBytes, n).
			Str("event", "media.copy_aborted").
			Msg("video stream ended early")
	}
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
