/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: scan.go
Description: Record scanner for delimited text. Splits records on LF or CR LF, honours
double-quoted fields with doubled-quote escapes, and keeps line breaks inside quoted
fields byte for byte so serialized content parses back unchanged.
*/

package tabular

import "strings"

// scanRecords feeds every non-blank record to fn until fn returns false.
// Stray quotes are kept literally; an unterminated quoted field runs to the end of the
// text and is reported through onWarning.
func scanRecords(text string, d Delimiter, fn func(rec []string, line int) bool, onWarning func(ParseWarning)) {
	s := &recordScanner{text: text, sep: d.Symbol(), line: 1}
	for s.pos < len(s.text) {
		line := s.line
		rec, unterminated := s.record()
		if unterminated && onWarning != nil {
			onWarning(ParseWarning{Line: line, Row: -1, Code: CodeInvalidQuotes, Message: "quoted field not terminated"})
		}
		if isBlankRecord(rec) {
			continue
		}
		if !fn(rec, line) {
			return
		}
	}
}

type recordScanner struct {
	text string
	sep  string
	pos  int
	line int
}

// record reads fields up to the end of the current record
func (s *recordScanner) record() (rec []string, unterminated bool) {
	for {
		var field string
		var end bool
		if s.pos < len(s.text) && s.text[s.pos] == '"' {
			field, end, unterminated = s.quoted()
		} else {
			field, end = s.unquoted()
		}
		rec = append(rec, field)
		if end {
			return rec, unterminated
		}
	}
}

func (s *recordScanner) unquoted() (string, bool) {
	rest := s.text[s.pos:]
	for i := 0; i < len(rest); i++ {
		if s.sep != "" && strings.HasPrefix(rest[i:], s.sep) {
			s.pos += i + len(s.sep)
			return rest[:i], false
		}
		if n := lineBreak(rest[i:]); n > 0 {
			s.pos += i + n
			s.line++
			return rest[:i], true
		}
	}
	s.pos = len(s.text)
	return rest, true
}

func (s *recordScanner) quoted() (field string, end, unterminated bool) {
	var b strings.Builder
	s.pos++
	for s.pos < len(s.text) {
		c := s.text[s.pos]
		if c != '"' {
			if c == '\n' {
				s.line++
			}
			b.WriteByte(c)
			s.pos++
			continue
		}

		after := s.text[s.pos+1:]
		switch {
		case strings.HasPrefix(after, `"`):
			b.WriteByte('"')
			s.pos += 2
		case after == "":
			s.pos = len(s.text)
			return b.String(), true, false
		case s.sep != "" && strings.HasPrefix(after, s.sep):
			s.pos += 1 + len(s.sep)
			return b.String(), false, false
		case lineBreak(after) > 0:
			s.pos += 1 + lineBreak(after)
			s.line++
			return b.String(), true, false
		default:
			// stray quote inside a quoted field
			b.WriteByte('"')
			s.pos++
		}
	}
	return b.String(), true, true
}

// lineBreak returns the length of the record terminator at the start of s, or 0
func lineBreak(s string) int {
	switch {
	case strings.HasPrefix(s, "\r\n"):
		return 2
	case strings.HasPrefix(s, "\n"):
		return 1
	case s == "\r":
		return 1
	}
	return 0
}
