// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitles

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText turns a downloaded subtitle payload into UTF-8.
//
// charset is the encoding declared by the subtitle database (for example
// "CP1252" or "UTF-8"); it may be empty. Payloads that are valid UTF-8 are
// used as-is. Anything else is decoded with the declared charset, or with
// Windows-1252 when the declaration is missing or unknown.
func DecodeText(data []byte, charset string) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	enc := lookupEncoding(charset)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	return string(out)
}

func lookupEncoding(name string) encoding.Encoding {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return charmap.Windows1252
	}
	if enc, err := htmlindex.Get(name); err == nil && enc != unicode.UTF8 {
		return enc
	}
	return charmap.Windows1252
}
