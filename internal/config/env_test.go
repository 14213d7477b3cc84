// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     string
	}{
		{name: "environment variable set", envValue: "from-env", envSet: true, want: "from-env"},
		{name: "environment variable not set", want: "default"},
		{name: "environment variable empty string", envValue: "", envSet: true, want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("VIDEOCASTER_TEST_STRING", tt.envValue)
			}
			assert.Equal(t, tt.want, ParseString("VIDEOCASTER_TEST_STRING", "default"))
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{name: "valid integer", envValue: "42", want: 42},
		{name: "negative integer", envValue: "-5", want: -5},
		{name: "invalid integer", envValue: "forty", want: 7},
		{name: "empty", envValue: "", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VIDEOCASTER_TEST_INT", tt.envValue)
			assert.Equal(t, tt.want, ParseInt("VIDEOCASTER_TEST_INT", 7))
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		envValue string
		want     bool
	}{
		{envValue: "true", want: true},
		{envValue: "YES", want: true},
		{envValue: "1", want: true},
		{envValue: "false", want: false},
		{envValue: "no", want: false},
		{envValue: "0", want: false},
		{envValue: "maybe", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("VIDEOCASTER_TEST_BOOL", tt.envValue)
			assert.Equal(t, tt.want, ParseBool("VIDEOCASTER_TEST_BOOL", true))
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("VIDEOCASTER_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, ParseDuration("VIDEOCASTER_TEST_DUR", time.Second))

	t.Setenv("VIDEOCASTER_TEST_DUR", "soon")
	assert.Equal(t, time.Second, ParseDuration("VIDEOCASTER_TEST_DUR", time.Second))
}

func TestParseFloat(t *testing.T) {
	t.Setenv("VIDEOCASTER_TEST_FLOAT", "0.25")
	assert.InDelta(t, 0.25, ParseFloat("VIDEOCASTER_TEST_FLOAT", 1), 1e-9)

	t.Setenv("VIDEOCASTER_TEST_FLOAT", "x")
	assert.InDelta(t, 1.0, ParseFloat("VIDEOCASTER_TEST_FLOAT", 1), 1e-9)
}

func TestParseList(t *testing.T) {
	def := []string{"a"}

	assert.Equal(t, def, ParseList("VIDEOCASTER_TEST_LIST_UNSET", def))

	t.Setenv("VIDEOCASTER_TEST_LIST", " mkv, ,MP4 ,webm")
	assert.Equal(t, []string{"mkv", "MP4", "webm"}, ParseList("VIDEOCASTER_TEST_LIST", def))

	t.Setenv("VIDEOCASTER_TEST_LIST", "   ")
	assert.Equal(t, def, ParseList("VIDEOCASTER_TEST_LIST", def))
}
