/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: codec.go
Description: Tabular codec. Parses delimited text into the row/column model with header
trimming, greedy empty-line skipping and dynamic typing, and serializes the model back
with every field quoted and line-feed terminators. Malformed rows become warnings.
*/

package tabular

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Warning codes reported while parsing
const (
	CodeTooFewFields  = "TooFewFields"
	CodeTooManyFields = "TooManyFields"
	CodeInvalidQuotes = "InvalidQuotes"
)

// loggedWarnings caps how many parse warnings are logged individually
const loggedWarnings = 3

// ParseWarning is a row-level problem found while parsing. It never aborts a parse.
type ParseWarning struct {
	Line    int
	Row     int // data row index, -1 when the problem is not tied to a row
	Code    string
	Message string
}

func (w ParseWarning) Error() string {
	return fmt.Sprintf("line %d: %s: %s", w.Line, w.Code, w.Message)
}

// ParseResult is the outcome of parsing a document
type ParseResult struct {
	Model     *DocumentModel
	Fields    []string
	Delimiter Delimiter
	Warnings  []ParseWarning
	// Inference is set when the delimiter was inferred
	Inference *Inference
}

// Codec parses and serializes delimited text, logging parse warnings
type Codec struct {
	logger logrus.FieldLogger
}

// NewCodec creates a codec. A nil logger discards output.
func NewCodec(logger logrus.FieldLogger) *Codec {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Codec{logger: logger}
}

// Parse reads text with delimiter d, inferring it when d is Auto
func (c *Codec) Parse(text string, d Delimiter) *ParseResult {
	result := &ParseResult{Delimiter: d}
	if d == Auto {
		inf := InferDetailed(text)
		result.Inference = &inf
		result.Delimiter = inf.Delimiter
	}

	var rows []Row
	var fields []string
	scanRecords(text, result.Delimiter, func(rec []string, line int) bool {
		if fields == nil {
			fields = normalizeHeader(rec)
			return true
		}
		row := make(Row, len(fields))
		n := len(rec)
		if n > len(fields) {
			n = len(fields)
		}
		for i := 0; i < n; i++ {
			row[fields[i]] = InferValue(rec[i])
		}
		switch {
		case len(rec) < len(fields):
			result.Warnings = append(result.Warnings, ParseWarning{
				Line: line, Row: len(rows), Code: CodeTooFewFields,
				Message: fmt.Sprintf("expected %d fields but parsed %d", len(fields), len(rec)),
			})
		case len(rec) > len(fields):
			result.Warnings = append(result.Warnings, ParseWarning{
				Line: line, Row: len(rows), Code: CodeTooManyFields,
				Message: fmt.Sprintf("expected %d fields but parsed %d, extra fields dropped", len(fields), len(rec)),
			})
		}
		rows = append(rows, row)
		return true
	}, func(w ParseWarning) {
		result.Warnings = append(result.Warnings, w)
	})

	if rows == nil {
		rows = []Row{}
	}
	result.Fields = fields
	result.Model = &DocumentModel{Columns: BuildColumns(fields, rows), Rows: rows}
	c.logWarnings(result)
	return result
}

// Serialize renders the model with delimiter d (Auto serializes with commas).
// Field order follows columns, every field is quoted, lines end with "\n".
func Serialize(columns []ColumnDef, rows []Row, d Delimiter) string {
	if len(columns) == 0 {
		return ""
	}
	sep := d.Resolve().Symbol()
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteString(sep)
		}
		writeQuoted(&b, col.Key())
	}
	for _, row := range rows {
		b.WriteByte('\n')
		for i, col := range columns {
			if i > 0 {
				b.WriteString(sep)
			}
			writeQuoted(&b, col.Get(row).String())
		}
	}
	return b.String()
}

// Serialize renders the model
func (c *Codec) Serialize(model *DocumentModel, d Delimiter) string {
	return Serialize(model.Columns, model.Rows, d)
}

func (c *Codec) logWarnings(result *ParseResult) {
	for i, w := range result.Warnings {
		if i == loggedWarnings {
			c.logger.WithField("suppressed", len(result.Warnings)-loggedWarnings).
				Warn("Further parse warnings suppressed")
			break
		}
		c.logger.WithFields(logrus.Fields{
			"line":    w.Line,
			"row":     w.Row,
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Parse warning")
	}
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(s, `"`, `""`))
	b.WriteByte('"')
}

// normalizeHeader trims header names and disambiguates duplicates as name_1, name_2, ...
func normalizeHeader(rec []string) []string {
	fields := make([]string, len(rec))
	used := make(map[string]bool, len(rec))
	next := make(map[string]int, len(rec))
	for i, h := range rec {
		name := strings.TrimSpace(h)
		if used[name] {
			n := next[name]
			if n == 0 {
				n = 1
			}
			candidate := fmt.Sprintf("%s_%d", name, n)
			for used[candidate] {
				n++
				candidate = fmt.Sprintf("%s_%d", name, n)
			}
			next[name] = n + 1
			name = candidate
		}
		used[name] = true
		fields[i] = name
	}
	return fields
}

// readSample returns the trimmed header and up to limit data records
func readSample(text string, d Delimiter, limit int) ([]string, [][]string, []ParseWarning) {
	var header []string
	var records [][]string
	var warnings []ParseWarning
	scanRecords(text, d, func(rec []string, _ int) bool {
		if header == nil {
			header = normalizeHeader(rec)
			return true
		}
		records = append(records, rec)
		return len(records) < limit
	}, func(w ParseWarning) {
		warnings = append(warnings, w)
	})
	return header, records, warnings
}

// isBlankRecord reports whether every field is empty after trimming
func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
