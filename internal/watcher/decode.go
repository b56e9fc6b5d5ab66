package watcher

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Supported status file encodings.
const (
	EncodingUTF8  = "utf-8"
	EncodingUTF16 = "utf-16"
)

// newDecoder returns a decoder for the configured encoding. A UTF-8 or UTF-16
// byte order mark in the input always wins over the configured encoding.
// UTF-16 without a BOM is read as little endian, the layout Windows tools emit.
func newDecoder(name string) (*encoding.Decoder, error) {
	var fallback encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingUTF8, "utf8":
		fallback = unicode.UTF8
	case EncodingUTF16, "utf16", "utf-16le":
		fallback = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "utf-16be":
		fallback = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return &encoding.Decoder{Transformer: unicode.BOMOverride(fallback.NewDecoder())}, nil
}

// decodeText converts raw file bytes into trimmed UTF-8 text.
func decodeText(decoder *encoding.Decoder, raw []byte) (string, error) {
	decoded, err := decoder.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode status text: %w", err)
	}
	return strings.TrimSpace(string(decoded)), nil
}
