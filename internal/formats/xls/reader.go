// Package xls reads legacy .xls (BIFF8) workbooks into typed tables.
package xls

import (
	"errors"
	"fmt"
	"io"

	"github.com/extrame/xls"

	"github.com/yangming0322/splittable/internal/table"
)

// ErrInvalidWorkbook is returned when the bytes are not a readable workbook.
var ErrInvalidWorkbook = errors.New("invalid Excel 97-2003 workbook")

// Read loads the first sheet of an .xls workbook. Row 1 is the header.
// BIFF cells come back as display text, so kinds are inferred the same way
// as for CSV.
func Read(r io.ReadSeeker) (tbl *table.Table, err error) {
	// The BIFF parser panics on some truncated inputs.
	defer func() {
		if p := recover(); p != nil {
			tbl, err = nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, p)
		}
	}()

	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidWorkbook)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: could not open first sheet", ErrInvalidWorkbook)
	}

	var grid [][]table.Cell
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := rowAt(sheet, i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]table.Cell, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = table.Cell{Text: row.Col(j)}
		}
		grid = append(grid, cells)
	}

	// Leading empty rows carry no header.
	for len(grid) > 0 && len(grid[0]) == 0 {
		grid = grid[1:]
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("first sheet is empty: %w", table.ErrEmptyInput)
	}

	header := make([]string, len(grid[0]))
	for j, c := range grid[0] {
		header[j] = c.Text
	}
	return table.Build(table.PadHeader(header, grid[1:]), grid[1:])
}

// rowAt returns row i, or nil when the sheet has no record for it.
// WorkSheet.Row dereferences the missing row instead of returning nil.
func rowAt(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
