// SPDX-License-Identifier: MIT
package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestHTTPAttributes(t *testing.T) {
	m := attrMap(HTTPAttributes("GET", "/video/{path}", "/video/a.mkv", 206))

	assert.Len(t, m, 4)
	assert.Equal(t, "GET", m[HTTPMethodKey].AsString())
	assert.Equal(t, "/video/{path}", m[HTTPRouteKey].AsString())
	assert.Equal(t, "/video/a.mkv", m[HTTPURLKey].AsString())
	assert.EqualValues(t, 206, m[HTTPStatusCodeKey].AsInt64())
}

func TestMediaAttributes(t *testing.T) {
	tests := []struct {
		name        string
		rangeHeader string
		wantLen     int
	}{
		{name: "with range", rangeHeader: "bytes=0-", wantLen: 5},
		{name: "without range", rangeHeader: "", wantLen: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := attrMap(MediaAttributes("/m/a.mkv", 100, 10, 90, tt.rangeHeader))
			assert.Len(t, m, tt.wantLen)
			assert.EqualValues(t, 100, m[MediaSizeKey].AsInt64())
			assert.EqualValues(t, 10, m[MediaOffsetKey].AsInt64())
			assert.EqualValues(t, 90, m[MediaLengthKey].AsInt64())
		})
	}
}

func TestSubtitleAttributes(t *testing.T) {
	m := attrMap(SubtitleAttributes("search_hash", "0123456789abcdef", "eng", 3))
	assert.Equal(t, "search_hash", m[UpstreamOpKey].AsString())
	assert.Equal(t, "0123456789abcdef", m[SubtitleHashKey].AsString())
	assert.Equal(t, "eng", m[SubtitleLanguageKey].AsString())
	assert.EqualValues(t, 3, m[SubtitleResultsKey].AsInt64())

	m = attrMap(SubtitleAttributes("search_metadata", "", "", 0))
	assert.Len(t, m, 2)
}

func TestErrorAttributes(t *testing.T) {
	m := attrMap(ErrorAttributes(errors.New("boom"), "upstream"))
	assert.True(t, m[ErrorKey].AsBool())
	assert.Equal(t, "upstream", m[ErrorTypeKey].AsString())
}
