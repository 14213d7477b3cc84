// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		charset string
		want    string
	}{
		{"utf8 passthrough", []byte("Grüße"), "CP1252", "Grüße"},
		{"bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, "hi"...), "", "hi"},
		{"cp1252 declared", []byte{'c', 'a', 'f', 0xE9}, "CP1252", "café"},
		{"latin1 by label", []byte{'c', 'a', 'f', 0xE9}, "iso-8859-1", "café"},
		{"missing charset defaults to windows-1252", []byte{0x93, 'q', 0x94}, "", "“q”"},
		{"unknown charset defaults to windows-1252", []byte{'a', 0xE9}, "klingon", "aé"},
		{"declared utf-8 on invalid bytes", []byte{'a', 0xE9}, "UTF-8", "aé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeText(tt.data, tt.charset))
		})
	}
}
