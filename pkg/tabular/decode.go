/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decode.go
Description: Byte-to-text decoding for fetched tabular content. Honors UTF-8 and UTF-16
byte order marks and falls back to Windows-1252 when the bytes are not valid UTF-8.
*/

package tabular

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText converts raw document bytes into text, stripping any byte order mark
func DecodeText(raw []byte) (string, error) {
	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	if !utf8.Valid(raw) {
		fallback = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(out), nil
}
