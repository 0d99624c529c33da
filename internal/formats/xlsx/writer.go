package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/yangming0322/splittable/internal/table"
)

// textNumFmt is Excel's built-in "@" (Text) number format.
const textNumFmt = 49

// Write serializes a table as a single-sheet workbook: a header row followed
// by one row per table row. String columns get the Text number format so
// that digit strings stay text when the file is edited in Excel.
func Write(t *table.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, t.NumColumns())
	for j, c := range t.Columns {
		header[j] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("could not write header row: %w", err)
	}

	row := make([]interface{}, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.Columns {
			row[j] = c.Values[i].Interface()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("invalid cell coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("could not write row %d: %w", i+1, err)
		}
	}

	if err := styleTextColumns(f, sheet, t); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func styleTextColumns(f *excelize.File, sheet string, t *table.Table) error {
	styleID := -1
	for j, c := range t.Columns {
		if c.Kind != table.KindString {
			continue
		}
		if styleID < 0 {
			id, err := f.NewStyle(&excelize.Style{NumFmt: textNumFmt})
			if err != nil {
				return fmt.Errorf("could not create text style: %w", err)
			}
			styleID = id
		}
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return fmt.Errorf("invalid column number: %w", err)
		}
		if err := f.SetColStyle(sheet, col, styleID); err != nil {
			return fmt.Errorf("could not style column %s: %w", col, err)
		}
	}
	return nil
}
