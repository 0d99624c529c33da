// Package xlsx reads and writes .xlsx (Excel) workbooks as typed tables.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yangming0322/splittable/internal/table"
)

// ErrInvalidWorkbook is returned when the bytes are not a readable workbook.
var ErrInvalidWorkbook = errors.New("invalid Excel workbook")

// Read loads the first sheet of an .xlsx workbook. Row 1 is the header.
//
// Cells keep the kind excelize stored them with: text cells stay text even
// when they look numeric, and numbers formatted as dates are read as the
// text Excel displays.
func Read(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidWorkbook)
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: could not read sheet %q: %v", ErrInvalidWorkbook, sheet, err)
	}
	display, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read sheet %q: %v", ErrInvalidWorkbook, sheet, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("sheet %q is empty: %w", sheet, table.ErrEmptyInput)
	}

	sr := &sheetReader{f: f, sheet: sheet, dates: make(map[int]bool)}
	rows := make([][]table.Cell, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		row := make([]table.Cell, len(raw[i]))
		for j, text := range raw[i] {
			if text == "" {
				continue
			}
			cell, err := sr.cell(i, j, text, displayAt(display, i, j))
			if err != nil {
				return nil, err
			}
			row[j] = cell
		}
		rows = append(rows, row)
	}

	return table.Build(table.PadHeader(raw[0], rows), rows)
}

type sheetReader struct {
	f     *excelize.File
	sheet string
	dates map[int]bool
}

func (sr *sheetReader) cell(row, col int, raw, shown string) (table.Cell, error) {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return table.Cell{}, fmt.Errorf("invalid cell coordinates: %w", err)
	}
	typ, err := sr.f.GetCellType(sr.sheet, name)
	if err != nil {
		return table.Cell{}, fmt.Errorf("%w: could not read cell %s: %v", ErrInvalidWorkbook, name, err)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError, excelize.CellTypeDate:
		return table.Cell{Text: shown, Hint: table.HintString}, nil
	case excelize.CellTypeBool:
		return table.Cell{Text: raw, Hint: table.HintBool}, nil
	}

	if sr.isDate(name) {
		return table.Cell{Text: shown, Hint: table.HintString}, nil
	}
	return table.Cell{Text: raw, Hint: table.HintNumber}, nil
}

// isDate reports whether the cell's number format renders a date or time.
func (sr *sheetReader) isDate(cell string) bool {
	id, err := sr.f.GetCellStyle(sr.sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := sr.dates[id]; ok {
		return v
	}
	style, err := sr.f.GetStyle(id)
	result := err == nil && isDateFormat(style)
	sr.dates[id] = result
	return result
}

var (
	quotedSection  = regexp.MustCompile(`"[^"]*"`)
	bracketSection = regexp.MustCompile(`\[[^\]]*\]`)
)

func isDateFormat(style *excelize.Style) bool {
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 22,
		style.NumFmt >= 45 && style.NumFmt <= 47:
		return true
	}
	if style.CustomNumFmt == nil {
		return false
	}
	code := strings.ToLower(*style.CustomNumFmt)
	code = quotedSection.ReplaceAllString(code, "")
	code = bracketSection.ReplaceAllString(code, "")
	return strings.ContainsAny(code, "ydh")
}

func displayAt(rows [][]string, i, j int) string {
	if i < len(rows) && j < len(rows[i]) {
		return rows[i][j]
	}
	return ""
}
