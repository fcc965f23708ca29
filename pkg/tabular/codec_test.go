/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: codec_test.go
Description: Tests for parsing and serializing delimited text: header handling, typing,
warnings, quoting, and parse/serialize round trips across every candidate delimiter.
*/

package tabular_test

import (
	"strings"
	"testing"

	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSemicolonExample(t *testing.T) {
	res := tabular.NewCodec(nil).Parse("a;b;c\n1;2;3\n4;5;6", tabular.Auto)

	require.NotNil(t, res.Inference)
	assert.Equal(t, tabular.Semicolon, res.Delimiter)
	assert.Equal(t, []string{"a", "b", "c"}, res.Model.Keys())
	for _, col := range res.Model.Columns {
		assert.Equal(t, tabular.KindNumber, col.Kind, col.Key())
	}
	require.Len(t, res.Model.Rows, 2)
	assert.Equal(t, tabular.Number(4), res.Model.Rows[1]["a"])
	assert.Empty(t, res.Warnings)
}

func TestParseTrimsHeadersAndSkipsBlankRows(t *testing.T) {
	res := tabular.NewCodec(nil).Parse(" a , b \n1,x\n , \n\n3,y\n", tabular.Comma)

	assert.Equal(t, []string{"a", "b"}, res.Fields)
	require.Len(t, res.Model.Rows, 2)
	assert.Equal(t, tabular.Text("y"), res.Model.Rows[1]["b"])
}

func TestParseDisambiguatesDuplicateHeaders(t *testing.T) {
	res := tabular.NewCodec(nil).Parse("a,a,a_1,a\n1,2,3,4", tabular.Comma)

	assert.Equal(t, []string{"a", "a_1", "a_1_1", "a_2"}, res.Fields)
	assert.Equal(t, tabular.Number(3), res.Model.Rows[0]["a_1_1"])
}

func TestParseDynamicTyping(t *testing.T) {
	text := "id,name,amount\n007,bolt,\n12345678901234567890,nut,1.5\n,washer,abc"
	res := tabular.NewCodec(nil).Parse(text, tabular.Comma)
	rows := res.Model.Rows
	require.Len(t, rows, 3)

	assert.Equal(t, tabular.Number(7), rows[0]["id"])
	assert.Equal(t, tabular.Text("12345678901234567890"), rows[1]["id"])
	assert.True(t, rows[0]["amount"].IsEmpty())
	assert.Equal(t, tabular.Text("abc"), rows[2]["amount"])

	id, _ := res.Model.Column("id")
	name, _ := res.Model.Column("name")
	amount, _ := res.Model.Column("amount")
	assert.Equal(t, tabular.KindNumber, id.Kind)
	assert.Equal(t, tabular.KindText, name.Kind)
	assert.Equal(t, tabular.KindNumber, amount.Kind, "first non-empty sample is 1.5")
}

func TestParseQuotedFields(t *testing.T) {
	text := "\"name\",\"note\"\n\"Smith, J\",\"said \"\"hi\"\"\"\n\"multi\nline\",\"x\""
	res := tabular.NewCodec(nil).Parse(text, tabular.Comma)
	require.Len(t, res.Model.Rows, 2)

	assert.Equal(t, tabular.Text("Smith, J"), res.Model.Rows[0]["name"])
	assert.Equal(t, tabular.Text(`said "hi"`), res.Model.Rows[0]["note"])
	assert.Equal(t, tabular.Text("multi\nline"), res.Model.Rows[1]["name"])
}

func TestParseCRLFRecordsKeepQuotedLineBreaks(t *testing.T) {
	text := "a,b\r\n\"one\r\ntwo\",2\r\n\r\n3,4\r\n"
	res := tabular.NewCodec(nil).Parse(text, tabular.Comma)

	require.Len(t, res.Model.Rows, 2)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"a", "b"}, res.Model.Keys())
	assert.Equal(t, tabular.Text("one\r\ntwo"), res.Model.Rows[0]["a"])
	assert.Equal(t, tabular.Number(4), res.Model.Rows[1]["b"])
}

func TestParseUnterminatedQuote(t *testing.T) {
	res := tabular.NewCodec(nil).Parse("a,b\n1,\"open\n2,3", tabular.Comma)

	require.Len(t, res.Model.Rows, 1)
	assert.Equal(t, tabular.Text("open\n2,3"), res.Model.Rows[0]["b"])
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, tabular.CodeInvalidQuotes, res.Warnings[0].Code)
	assert.Equal(t, 2, res.Warnings[0].Line)
}

func TestParseStrayQuotesAreLiteral(t *testing.T) {
	res := tabular.NewCodec(nil).Parse("a,b\n5\" bolt,\"x\"y\"", tabular.Comma)

	require.Len(t, res.Model.Rows, 1)
	assert.Equal(t, tabular.Text(`5" bolt`), res.Model.Rows[0]["a"])
	assert.Equal(t, tabular.Text(`x"y`), res.Model.Rows[0]["b"])
	assert.Empty(t, res.Warnings)
}

func TestParseReportsRaggedRows(t *testing.T) {
	res := tabular.NewCodec(nil).Parse("a,b,c\n1,2\n1,2,3,4\n5,6,7", tabular.Comma)

	require.Len(t, res.Model.Rows, 3)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, tabular.CodeTooFewFields, res.Warnings[0].Code)
	assert.Equal(t, 0, res.Warnings[0].Row)
	assert.Equal(t, 2, res.Warnings[0].Line)
	assert.Equal(t, tabular.CodeTooManyFields, res.Warnings[1].Code)
	assert.Equal(t, 1, res.Warnings[1].Row)

	_, present := res.Model.Rows[0]["c"]
	assert.False(t, present)
	c, _ := res.Model.Column("c")
	assert.True(t, c.Get(res.Model.Rows[0]).IsEmpty())
	assert.Len(t, res.Model.Rows[1], 3, "extra field dropped")
}

func TestParseLogsFirstWarnings(t *testing.T) {
	logger, hook := test.NewNullLogger()
	text := "a,b\n1\n2\n3\n4\n5"
	res := tabular.NewCodec(logger).Parse(text, tabular.Comma)

	assert.Len(t, res.Warnings, 5)
	entries := hook.AllEntries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, logrus.WarnLevel, e.Level)
	}
	assert.Equal(t, tabular.CodeTooFewFields, entries[0].Data["code"])
	assert.Equal(t, 2, entries[3].Data["suppressed"])
}

func TestParseHeaderOnly(t *testing.T) {
	res := tabular.NewCodec(nil).Parse("a,b\n", tabular.Comma)
	assert.Equal(t, []string{"a", "b"}, res.Model.Keys())
	assert.NotNil(t, res.Model.Rows)
	assert.Empty(t, res.Model.Rows)
}

func TestSerializeQuotesEveryField(t *testing.T) {
	model := tabular.NewCodec(nil).Parse("a,b\nx,1\n\"say \"\"hi\"\"\",", tabular.Comma).Model

	out := tabular.Serialize(model.Columns, model.Rows, tabular.Comma)
	assert.Equal(t, "\"a\",\"b\"\n\"x\",\"1\"\n\"say \"\"hi\"\"\",\"\"", out)

	out = tabular.Serialize(model.Columns, model.Rows, tabular.Semicolon)
	assert.Equal(t, "\"a\";\"b\"\n\"x\";\"1\"\n\"say \"\"hi\"\"\";\"\"", out)

	assert.Equal(t, strings.Replace(out, ";", ",", -1), tabular.Serialize(model.Columns, model.Rows, tabular.Auto))
}

func TestSerializeCanonicalNumbers(t *testing.T) {
	cols := tabular.BuildColumns([]string{"n"}, nil)
	rows := []tabular.Row{{"n": tabular.Number(1.50)}, {"n": tabular.Number(-0.0)}, {"n": tabular.Number(1e6)}}
	assert.Equal(t, "\"n\"\n\"1.5\"\n\"0\"\n\"1000000\"", tabular.Serialize(cols, rows, tabular.Comma))
}

func TestSerializeNoColumns(t *testing.T) {
	assert.Equal(t, "", tabular.Serialize(nil, []tabular.Row{{}}, tabular.Comma))
}

func TestRoundTripEveryDelimiter(t *testing.T) {
	fields := []string{"name", "meta.source", "qty", "note"}
	rows := []tabular.Row{
		{"name": tabular.Text("bolt, hex"), "meta.source": tabular.Text("page 1"), "qty": tabular.Number(3), "note": tabular.Text(`a "quoted" word`)},
		{"name": tabular.Text("nut;lock|tab\there"), "meta.source": tabular.Text(""), "qty": tabular.Number(0.25), "note": tabular.Text("two\nlines")},
		{"name": tabular.Text(" padded "), "meta.source": tabular.Text("p.2"), "qty": tabular.Value{}, "note": tabular.Text("")},
		{"name": tabular.Text("x\r\ny"), "meta.source": tabular.Text("cr\ronly"), "qty": tabular.Number(-1), "note": tabular.Text("end\r\n")},
	}
	cols := tabular.BuildColumns(fields, rows)
	codec := tabular.NewCodec(nil)

	for _, d := range tabular.Candidates {
		t.Run(d.String(), func(t *testing.T) {
			res := codec.Parse(tabular.Serialize(cols, rows, d), d)
			assert.Equal(t, fields, res.Model.Keys())
			assert.Equal(t, rows, res.Model.Rows)
			assert.Empty(t, res.Warnings)
		})
	}
}

func TestRoundTripCanonicalizesNumericText(t *testing.T) {
	cols := tabular.BuildColumns([]string{"code"}, nil)
	rows := []tabular.Row{{"code": tabular.Text("010")}}
	res := tabular.NewCodec(nil).Parse(tabular.Serialize(cols, rows, tabular.Pipe), tabular.Pipe)
	assert.Equal(t, tabular.Number(10), res.Model.Rows[0]["code"])
	assert.Equal(t, "10", res.Model.Rows[0]["code"].String())
}

func TestReparseKeepsColumnIdentity(t *testing.T) {
	text := "meta.source;qty\np1;3"
	codec := tabular.NewCodec(nil)

	first := codec.Parse(text, tabular.Comma)
	assert.Equal(t, []string{"meta.source;qty"}, first.Model.Keys())

	second := codec.Parse(text, tabular.Semicolon)
	require.Len(t, second.Model.Columns, 2)
	col := second.Model.Columns[0]
	assert.True(t, col.Bound())
	assert.Equal(t, "meta.source", col.Key())
	assert.Equal(t, tabular.Text("p1"), col.Get(second.Model.Rows[0]))
}
