/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: delimiter.go
Description: Delimiter inference for delimited text. Scores each candidate separator by
how many header fields it yields and how many sampled rows agree with that field count,
with a generic auto-detect fallback. Pure and deterministic for a given input.
*/

package tabular

import (
	"fmt"
	"strings"
)

// Delimiter is a field separator. Auto asks for inference.
type Delimiter rune

const (
	Auto            Delimiter = 0
	Comma           Delimiter = ','
	Semicolon       Delimiter = ';'
	Tab             Delimiter = '\t'
	Pipe            Delimiter = '|'
	RecordSeparator Delimiter = 0x1e
	UnitSeparator   Delimiter = 0x1f
)

// SampleRows is the number of data rows inspected per candidate
const SampleRows = 50

// guessRows is the number of rows inspected by the auto-detect fallback
const guessRows = 10

// Candidates are tried in order; earlier candidates win ties
var Candidates = []Delimiter{Comma, Semicolon, Tab, Pipe}

// guessCandidates is the wider set used by the auto-detect fallback
var guessCandidates = []Delimiter{Comma, Tab, Pipe, Semicolon, RecordSeparator, UnitSeparator}

// String returns a readable name for the delimiter
func (d Delimiter) String() string {
	switch d {
	case Auto:
		return "auto"
	case Comma:
		return "comma"
	case Semicolon:
		return "semicolon"
	case Tab:
		return "tab"
	case Pipe:
		return "pipe"
	case RecordSeparator:
		return "record-separator"
	case UnitSeparator:
		return "unit-separator"
	default:
		return fmt.Sprintf("%q", rune(d))
	}
}

// Symbol returns the delimiter as the literal separator text ("" for Auto)
func (d Delimiter) Symbol() string {
	if d == Auto {
		return ""
	}
	return string(rune(d))
}

// Resolve returns the delimiter used for serialization: Auto serializes with commas
func (d Delimiter) Resolve() Delimiter {
	if d == Auto {
		return Comma
	}
	return d
}

// ParseDelimiter accepts a delimiter name or its literal character
func ParseDelimiter(s string) (Delimiter, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case ",", "comma":
		return Comma, nil
	case ";", "semicolon":
		return Semicolon, nil
	case "\t", `\t`, "tab":
		return Tab, nil
	case "|", "pipe":
		return Pipe, nil
	}
	return Auto, fmt.Errorf("unsupported delimiter: %q", s)
}

// CandidateScore is the evaluation of one candidate delimiter
type CandidateScore struct {
	Delimiter  Delimiter
	Fields     int
	Consistent int
	Score      int
}

// Inference is the full outcome of delimiter inference
type Inference struct {
	Delimiter Delimiter
	Scores    []CandidateScore
	// Fallback is set when no candidate qualified and the auto-detect pass decided
	Fallback bool
	// Ambiguous is set when nothing produced more than one field and the result is
	// the comma default. The user can correct it with an override.
	Ambiguous bool
}

// Infer selects the delimiter that yields the most self-consistent table
func Infer(text string) Delimiter {
	return InferDetailed(text).Delimiter
}

// InferDetailed runs inference and reports every candidate's score
func InferDetailed(text string) Inference {
	result := Inference{Delimiter: Comma}
	best := -1
	for _, d := range Candidates {
		cs := scoreCandidate(text, d)
		result.Scores = append(result.Scores, cs)
		if cs.Score > best {
			best = cs.Score
			result.Delimiter = d
		}
	}
	if best >= 0 {
		return result
	}

	result.Fallback = true
	if d, ok := guessDelimiter(text); ok {
		header, _, _ := readSample(text, d, SampleRows)
		if len(header) > 1 {
			result.Delimiter = d
			return result
		}
	}
	result.Delimiter = Comma
	result.Ambiguous = true
	return result
}

// scoreCandidate computes 10 x fieldCount + consistentRowCount, or -1 when the
// candidate finds at most one field
func scoreCandidate(text string, d Delimiter) CandidateScore {
	header, records, _ := readSample(text, d, SampleRows)
	cs := CandidateScore{Delimiter: d, Fields: len(header), Score: -1}
	if len(header) <= 1 {
		return cs
	}
	for _, rec := range records {
		if len(rec) == len(header) {
			cs.Consistent++
		}
	}
	cs.Score = 10*cs.Fields + cs.Consistent
	return cs
}

// guessDelimiter picks the candidate whose field counts vary least between rows
// while averaging at least two fields per row
func guessDelimiter(text string) (Delimiter, bool) {
	var (
		best      Delimiter
		found     bool
		bestDelta int
		bestAvg   float64
	)
	for _, d := range guessCandidates {
		var (
			rows  int
			delta int
			sum   int
			prev  = -1
		)
		scanRecords(text, d, func(rec []string, _ int) bool {
			rows++
			n := len(rec)
			sum += n
			if prev >= 0 && n > 0 {
				delta += absInt(n - prev)
			}
			prev = n
			return rows < guessRows
		}, nil)
		if rows == 0 {
			continue
		}
		avg := float64(sum) / float64(rows)
		if (!found || delta <= bestDelta) && (!found || avg > bestAvg) && avg > 1.99 {
			best, bestDelta, bestAvg, found = d, delta, avg, true
		}
	}
	return best, found
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
