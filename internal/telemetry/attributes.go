// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Media attributes
	MediaPathKey   = "media.path"
	MediaSizeKey   = "media.size"
	MediaRangeKey  = "media.range"
	MediaOffsetKey = "media.offset"
	MediaLengthKey = "media.length"

	// Subtitle attributes
	SubtitleHashKey     = "subtitle.hash"
	SubtitleLanguageKey = "subtitle.language"
	SubtitleResultsKey  = "subtitle.results"
	UpstreamOpKey       = "upstream.op"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// MediaAttributes describes a ranged file response. rangeHeader is omitted when empty.
func MediaAttributes(path string, size, offset, length int64, rangeHeader string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(MediaPathKey, path),
		attribute.Int64(MediaSizeKey, size),
		attribute.Int64(MediaOffsetKey, offset),
		attribute.Int64(MediaLengthKey, length),
	}
	if rangeHeader != "" {
		attrs = append(attrs, attribute.String(MediaRangeKey, rangeHeader))
	}
	return attrs
}

// SubtitleAttributes describes a subtitle database lookup.
func SubtitleAttributes(op, hash, language string, results int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs, attribute.String(UpstreamOpKey, op))
	if hash != "" {
		attrs = append(attrs, attribute.String(SubtitleHashKey, hash))
	}
	if language != "" {
		attrs = append(attrs, attribute.String(SubtitleLanguageKey, language))
	}
	return append(attrs, attribute.Int(SubtitleResultsKey, results))
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
