/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: value.go
Description: Scalar cell values (text, number, or empty) and the numeric literal rules
used by type inference, user input parsing, and canonical number formatting.
*/

package tabular

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// maxExactInt is the largest magnitude at which every integer is representable as a float64
const maxExactInt = 1 << 53

// numericLiteral matches the numeric literals accepted by type inference.
// Hex, infinities, NaN and leading '+' signs stay text.
var numericLiteral = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// Value is a scalar cell value: text, number, or empty
type Value struct {
	Text    string
	Number  float64
	Numeric bool
}

// Text returns a text value. The empty string is the empty value.
func Text(s string) Value {
	return Value{Text: s}
}

// Number returns a numeric value
func Number(f float64) Value {
	return Value{Number: f, Numeric: true}
}

// IsEmpty reports whether the value holds nothing
func (v Value) IsEmpty() bool {
	return !v.Numeric && v.Text == ""
}

// String renders the value as delimited-text field content
func (v Value) String() string {
	if v.Numeric {
		return FormatNumber(v.Number)
	}
	return v.Text
}

// FormatNumber renders f as canonical decimal text
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// InferValue applies dynamic typing to a raw field: numeric literals become numbers,
// an empty field becomes the empty value, everything else stays text verbatim.
func InferValue(raw string) Value {
	if raw == "" {
		return Value{}
	}
	if !numericLiteral.MatchString(raw) {
		return Text(raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.Abs(f) >= maxExactInt {
		return Text(raw)
	}
	return Number(f)
}

// ParseNumberInput parses text typed into a number column
func ParseNumberInput(input string) Value {
	s := strings.TrimSpace(input)
	if s == "" {
		return Value{}
	}
	if !numericLiteral.MatchString(s) {
		return Text(input)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return Text(input)
	}
	return Number(f)
}
