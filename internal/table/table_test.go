package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textRow(cells ...string) []Cell {
	row := make([]Cell, len(cells))
	for i, c := range cells {
		row[i] = Cell{Text: c}
	}
	return row
}

func TestParseText(t *testing.T) {
	cases := []struct {
		in   string
		want Value
	}{
		{"", Null()},
		{"   ", Null()},
		{"42", Int(42)},
		{"-7", Int(-7)},
		{"+3", Int(3)},
		{"0", Int(0)},
		{"007", String("007")},
		{"99999999999999999999", String("99999999999999999999")},
		{"1.5", Float(1.5)},
		{"1e3", Float(1000)},
		{".25", Float(0.25)},
		{"TRUE", Bool(true)},
		{"false", Bool(false)},
		{"NaN", String("NaN")},
		{"Inf", String("Inf")},
		{"hello", String("hello")},
		{"12-34", String("12-34")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseText(tc.in), "ParseText(%q)", tc.in)
	}
}

func TestParseNumberIntegralFloat(t *testing.T) {
	assert.Equal(t, Int(123456789012000000), parseNumber("1.23456789012E+17"))
	assert.Equal(t, Float(2.5), parseNumber("2.5"))
	assert.Equal(t, Int(3), parseNumber("3"))
}

func TestBuildInfersColumnKinds(t *testing.T) {
	tbl, err := Build(
		[]string{"ID", "Name", "Score", "Active", "Mixed", "Empty"},
		[][]Cell{
			textRow("1", "Alice", "1", "true", "1", ""),
			textRow("2", "Bob", "2.5", "false", "x", ""),
		},
	)
	require.NoError(t, err)
	require.NoError(t, tbl.Validate())

	kinds := make([]Kind, tbl.NumColumns())
	for i, c := range tbl.Columns {
		kinds[i] = c.Kind
	}
	assert.Equal(t, []Kind{KindInt, KindString, KindFloat, KindBool, KindString, KindNull}, kinds)

	assert.Equal(t, Float(1), tbl.Column("Score").Values[0])
	assert.Equal(t, String("1"), tbl.Column("Mixed").Values[0])
	assert.True(t, tbl.Column("Empty").Values[1].IsNull())
}

func TestBuildHeaderNormalization(t *testing.T) {
	tbl, err := Build([]string{"A", "", "A", "A", "B"}, [][]Cell{textRow("1", "2", "3", "4", "5")})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "Unnamed: 1", "A.1", "A.2", "B"}, tbl.Names())
}

func TestBuildPadsShortRowsAndSkipsBlankRows(t *testing.T) {
	tbl, err := Build([]string{"A", "B"}, [][]Cell{
		textRow("1"),
		textRow("", ""),
		textRow("2", "x", "", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
	assert.True(t, tbl.Column("B").Values[0].IsNull())
	assert.Equal(t, String("x"), tbl.Column("B").Values[1])
}

func TestBuildRaggedRow(t *testing.T) {
	_, err := Build([]string{"A"}, [][]Cell{textRow("1", "extra")})
	assert.True(t, errors.Is(err, ErrRaggedRow))
}

func TestPadHeader(t *testing.T) {
	rows := [][]Cell{textRow("1", "X", "note"), textRow("2", "Y", "", "")}
	assert.Equal(t, []string{"ID", "Dept", ""}, PadHeader([]string{"ID", "Dept"}, rows))

	// Trailing blank cells do not widen the header.
	header := []string{"ID", "Dept"}
	assert.Equal(t, header, PadHeader(header, [][]Cell{textRow("1", "X", " ")}))

	tbl, err := Build(PadHeader(header, rows), rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Dept", "Unnamed: 2"}, tbl.Names())
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build([]string{"A", "B"}, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Build(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestBuildRespectsHints(t *testing.T) {
	tbl, err := Build([]string{"Code", "Qty", "Flag"}, [][]Cell{
		{{Text: "123456789012", Hint: HintString}, {Text: "4", Hint: HintNumber}, {Text: "1", Hint: HintBool}},
	})
	require.NoError(t, err)
	assert.Equal(t, KindString, tbl.Column("Code").Kind)
	assert.Equal(t, KindInt, tbl.Column("Qty").Kind)
	assert.Equal(t, Bool(true), tbl.Column("Flag").Values[0])
}

func TestCloneIsDeep(t *testing.T) {
	tbl, err := Build([]string{"A"}, [][]Cell{textRow("1")})
	require.NoError(t, err)

	clone := tbl.Clone()
	clone.Columns[0].Values[0] = String("changed")
	clone.Columns[0].Kind = KindString

	assert.Equal(t, Int(1), tbl.Columns[0].Values[0])
	assert.Equal(t, KindInt, tbl.Columns[0].Kind)
}

func TestHeadAndSelect(t *testing.T) {
	tbl, err := Build([]string{"A", "B", "C"}, [][]Cell{
		textRow("1", "a", "x"),
		textRow("2", "b", "y"),
		textRow("3", "c", "z"),
	})
	require.NoError(t, err)

	head := tbl.Head(2)
	assert.Equal(t, 2, head.NumRows())
	assert.Equal(t, 3, tbl.Head(10).NumRows())

	sel := tbl.Select([]int{2, 0}, 2)
	assert.Equal(t, []string{"A", "B"}, sel.Names())
	assert.Equal(t, []Value{Int(3), String("c")}, sel.Row(0))
	assert.Equal(t, []Value{Int(1), String("a")}, sel.Row(1))
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "123456789012", Int(123456789012).Text())
	assert.Equal(t, "1.5", Float(1.5).Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "", Null().Text())
	assert.Nil(t, Null().Interface())
}
