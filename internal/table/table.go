// Package table provides the typed in-memory table that spreadsheets are
// loaded into before being split.
package table

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrEmptyInput is returned when a source has a header but no data rows.
var ErrEmptyInput = errors.New("no data rows")

// Kind is the type of a cell or of a whole column.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single typed cell. The zero Value is null.
// Values are comparable and can be used as map keys.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// String returns a string value.
func String(v string) Value { return Value{Kind: KindString, Str: v} }

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Text returns the canonical textual form of the value. Integers have no
// thousands separators and no exponent; null is the empty string.
func (v Value) Text() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.Str
	default:
		return ""
	}
}

// Interface returns the value as a plain Go value (int64, float64, bool,
// string or nil), the shape spreadsheet writers and JSON encoders expect.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	case KindString:
		return v.Str
	default:
		return nil
	}
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Table is an ordered list of columns of equal length.
type Table struct {
	Columns []*Column
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	if i := t.ColumnIndex(name); i >= 0 {
		return t.Columns[i]
	}
	return nil
}

// Row returns the cells of row i across all columns.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// Validate checks that every column has the same number of rows.
func (t *Table) Validate() error {
	n := t.NumRows()
	for _, c := range t.Columns {
		if len(c.Values) != n {
			return fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Values), n)
		}
	}
	return nil
}

// Clone returns a deep copy, so the copy can be coerced without touching
// the original.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		values := make([]Value, len(c.Values))
		copy(values, c.Values)
		out.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return out
}

// Head returns a copy holding only the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	if n < 0 {
		n = 0
	}
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		values := make([]Value, n)
		copy(values, c.Values[:n])
		out.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return out
}

// Select returns a table made of the given rows and the first ncols columns.
// Row order follows rows.
func (t *Table) Select(rows []int, ncols int) *Table {
	if ncols > len(t.Columns) {
		ncols = len(t.Columns)
	}
	out := &Table{Columns: make([]*Column, ncols)}
	for j := 0; j < ncols; j++ {
		src := t.Columns[j]
		values := make([]Value, len(rows))
		for k, r := range rows {
			values[k] = src.Values[r]
		}
		out.Columns[j] = &Column{Name: src.Name, Kind: src.Kind, Values: values}
	}
	return out
}
