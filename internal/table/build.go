package table

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrRaggedRow is returned when a data row has more non-empty cells than the
// header has columns.
var ErrRaggedRow = errors.New("row has more fields than the header")

// Hint tells the builder what the source format already knows about a cell.
type Hint int

const (
	// HintNone means the cell is plain text and its kind must be inferred.
	HintNone Hint = iota
	// HintString means the source stored the cell as text.
	HintString
	// HintNumber means the source stored the cell as a number.
	HintNumber
	// HintBool means the source stored the cell as a boolean.
	HintBool
)

// Cell is a raw cell as produced by a format reader.
type Cell struct {
	Text string
	Hint Hint
}

var (
	intPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	floatPattern = regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+|\d+)([eE][+-]?\d+)?$`)
)

// ParseText infers a typed value from plain text.
//
// Digit strings with a leading zero, or too long for int64, stay strings so
// that account numbers and IDs are never rounded through a float.
func ParseText(s string) Value {
	t := strings.TrimSpace(s)
	if t == "" {
		return Null()
	}
	if intPattern.MatchString(t) {
		digits := strings.TrimLeft(t, "+-")
		if len(digits) > 1 && digits[0] == '0' {
			return String(s)
		}
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return Int(n)
		}
		return String(s)
	}
	if floatPattern.MatchString(t) {
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return Float(f)
		}
		return String(s)
	}
	switch strings.ToLower(t) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return String(s)
}

// parseNumber converts a number stored by a spreadsheet. Integral values
// that fit in int64 become integers.
func parseNumber(s string) Value {
	t := strings.TrimSpace(s)
	if t == "" {
		return Null()
	}
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return Int(n)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return String(s)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return Int(int64(f))
	}
	return Float(f)
}

func parseCell(c Cell) Value {
	switch c.Hint {
	case HintString:
		if c.Text == "" {
			return Null()
		}
		return String(c.Text)
	case HintNumber:
		return parseNumber(c.Text)
	case HintBool:
		switch strings.ToLower(strings.TrimSpace(c.Text)) {
		case "1", "true":
			return Bool(true)
		case "0", "false":
			return Bool(false)
		case "":
			return Null()
		}
		return String(c.Text)
	default:
		return ParseText(c.Text)
	}
}

// Build turns a header and raw rows into a typed Table.
//
// Empty header cells are named "Unnamed: <index>" and repeated names get
// ".1", ".2" suffixes. Rows with no content are skipped, short rows are
// padded with nulls, and rows with extra non-empty cells fail with
// ErrRaggedRow. ErrEmptyInput is returned when no data rows remain.
func Build(header []string, rows [][]Cell) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("missing header row: %w", ErrEmptyInput)
	}
	names := normalizeHeader(header)
	width := len(names)

	cells := make([][]Value, width)
	raw := make([][]string, width)

	for i, row := range rows {
		if blank(row) {
			continue
		}
		if len(row) > width && !blank(row[width:]) {
			return nil, fmt.Errorf("data row %d has %d fields, header has %d: %w", i+1, len(row), width, ErrRaggedRow)
		}
		for j := 0; j < width; j++ {
			var c Cell
			if j < len(row) {
				c = row[j]
			}
			cells[j] = append(cells[j], parseCell(c))
			raw[j] = append(raw[j], c.Text)
		}
	}

	if len(cells[0]) == 0 {
		return nil, ErrEmptyInput
	}

	t := &Table{Columns: make([]*Column, width)}
	for j, name := range names {
		kind := resolveKind(cells[j])
		t.Columns[j] = &Column{Name: name, Kind: kind, Values: conform(kind, cells[j], raw[j])}
	}
	return t, nil
}

// PadHeader extends header with empty names up to the last non-empty cell of
// the widest row. Spreadsheet readers drop trailing empty header cells, so a
// column with data but no title would otherwise read as a ragged row.
func PadHeader(header []string, rows [][]Cell) []string {
	width := len(header)
	for _, row := range rows {
		for j := len(row) - 1; j >= width; j-- {
			if strings.TrimSpace(row[j].Text) != "" {
				width = j + 1
				break
			}
		}
	}
	if width == len(header) {
		return header
	}
	padded := make([]string, width)
	copy(padded, header)
	return padded
}

func blank(row []Cell) bool {
	for _, c := range row {
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			base := name
			for used[name] {
				suffix[base]++
				name = fmt.Sprintf("%s.%d", base, suffix[base])
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func resolveKind(values []Value) Kind {
	var ints, floats, bools, strs int
	for _, v := range values {
		switch v.Kind {
		case KindInt:
			ints++
		case KindFloat:
			floats++
		case KindBool:
			bools++
		case KindString:
			strs++
		}
	}
	switch {
	case ints+floats+bools+strs == 0:
		return KindNull
	case strs > 0:
		return KindString
	case bools > 0 && ints+floats > 0:
		return KindString
	case bools > 0:
		return KindBool
	case floats > 0:
		return KindFloat
	default:
		return KindInt
	}
}

// conform rewrites the cells of a column so every non-null cell has the
// column's kind.
func conform(kind Kind, values []Value, raw []string) []Value {
	for i, v := range values {
		if v.IsNull() || v.Kind == kind {
			continue
		}
		switch kind {
		case KindFloat:
			values[i] = Float(float64(v.Int))
		case KindString:
			values[i] = String(raw[i])
		}
	}
	return values
}
