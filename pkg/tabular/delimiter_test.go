/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: delimiter_test.go
Description: Tests for delimiter inference: scoring, tie-breaking, ragged rows, the
auto-detect fallback, and determinism.
*/

package tabular_test

import (
	"testing"

	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferSemicolon(t *testing.T) {
	inf := tabular.InferDetailed("a;b;c\n1;2;3\n4;5;6")
	assert.Equal(t, tabular.Semicolon, inf.Delimiter)
	assert.False(t, inf.Fallback)
	assert.False(t, inf.Ambiguous)

	require.Len(t, inf.Scores, len(tabular.Candidates))
	assert.Equal(t, -1, inf.Scores[0].Score, "comma yields a single field")
	assert.Equal(t, 32, inf.Scores[1].Score)
}

func TestInferEachCandidate(t *testing.T) {
	cases := map[string]tabular.Delimiter{
		"a,b\n1,2":          tabular.Comma,
		"a;b\n1;2":          tabular.Semicolon,
		"a\tb\tc\n1\t2\t3":  tabular.Tab,
		"a|b|c|d\n1|2|3|4":  tabular.Pipe,
		"x, y, z\n1, 2, 3": tabular.Comma,
	}
	for text, want := range cases {
		assert.Equal(t, want, tabular.Infer(text), text)
	}
}

func TestInferTieGoesToEarlierCandidate(t *testing.T) {
	// comma and pipe both find two fields and one consistent row
	text := "a,b|c\n1,2|3"
	inf := tabular.InferDetailed(text)
	assert.Equal(t, inf.Scores[0].Score, inf.Scores[3].Score)
	assert.Equal(t, tabular.Comma, inf.Delimiter)
}

func TestInferCountsConsistentRows(t *testing.T) {
	inf := tabular.InferDetailed("a|b|c\n1|2|3\n1|2\n4|5|6")
	assert.Equal(t, tabular.Pipe, inf.Delimiter)
	assert.Equal(t, 3, inf.Scores[3].Fields)
	assert.Equal(t, 2, inf.Scores[3].Consistent)
	assert.Equal(t, 32, inf.Scores[3].Score)
}

func TestInferMoreFieldsBeatsConsistency(t *testing.T) {
	// semicolon finds three ragged columns, comma two clean ones
	text := "a;b,c;d\n1;2,3;4\n5,6\n7,8"
	inf := tabular.InferDetailed(text)
	assert.Equal(t, 23, inf.Scores[0].Score)
	assert.Equal(t, 31, inf.Scores[1].Score)
	assert.Equal(t, tabular.Semicolon, inf.Delimiter)
}

func TestInferSamplesAtMostFiftyRows(t *testing.T) {
	text := "a,b\n"
	for i := 0; i < 80; i++ {
		text += "1,2\n"
	}
	inf := tabular.InferDetailed(text)
	assert.Equal(t, 20+tabular.SampleRows, inf.Scores[0].Score)
}

func TestInferFallbackFindsUnitSeparator(t *testing.T) {
	inf := tabular.InferDetailed("a\x1fb\n1\x1f2\n3\x1f4")
	assert.True(t, inf.Fallback)
	assert.False(t, inf.Ambiguous)
	assert.Equal(t, tabular.UnitSeparator, inf.Delimiter)
}

func TestInferDefaultsToCommaWhenAmbiguous(t *testing.T) {
	for _, text := range []string{"", "single\nvalue\nother", "\n\n"} {
		inf := tabular.InferDetailed(text)
		assert.Equal(t, tabular.Comma, inf.Delimiter, "%q", text)
		assert.True(t, inf.Ambiguous, "%q", text)
	}
}

func TestInferIsDeterministic(t *testing.T) {
	text := "name|qty;price\nbolt|3;0.5\nnut|4;0.25\nwasher|1"
	first := tabular.InferDetailed(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, tabular.InferDetailed(text))
	}
}

func TestParseDelimiter(t *testing.T) {
	cases := map[string]tabular.Delimiter{
		"":          tabular.Auto,
		"auto":      tabular.Auto,
		",":         tabular.Comma,
		"Semicolon": tabular.Semicolon,
		`\t`:        tabular.Tab,
		"\t":        tabular.Tab,
		"pipe":      tabular.Pipe,
	}
	for in, want := range cases {
		got, err := tabular.ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := tabular.ParseDelimiter("#")
	assert.Error(t, err)
}

func TestDelimiterResolve(t *testing.T) {
	assert.Equal(t, tabular.Comma, tabular.Auto.Resolve())
	assert.Equal(t, tabular.Pipe, tabular.Pipe.Resolve())
	assert.Equal(t, "", tabular.Auto.Symbol())
	assert.Equal(t, "\t", tabular.Tab.Symbol())
}
