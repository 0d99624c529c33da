package splitter

import (
	"strconv"

	"github.com/yangming0322/splittable/internal/table"
)

// DefaultDigitLimit is the longest integer kept as a number. Spreadsheet
// tools render longer integers in scientific notation or round them.
const DefaultDigitLimit = 10

// DetectLongDigitColumns rewrites, in place, every integer column whose
// longest value is more than digitLimit characters as a string column of
// canonical decimal strings. It returns the rewritten column names in table
// order. Columns already holding text are not integer columns, so a second
// call returns nothing.
func DetectLongDigitColumns(t *table.Table, digitLimit int) []string {
	if digitLimit <= 0 {
		digitLimit = DefaultDigitLimit
	}

	var coerced []string
	for _, col := range t.Columns {
		if col.Kind != table.KindInt {
			continue
		}
		if maxDigits(col) <= digitLimit {
			continue
		}
		for i, v := range col.Values {
			if v.IsNull() {
				continue
			}
			col.Values[i] = table.String(strconv.FormatInt(v.Int, 10))
		}
		col.Kind = table.KindString
		coerced = append(coerced, col.Name)
	}
	return coerced
}

func maxDigits(col *table.Column) int {
	longest := 0
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		if n := len(strconv.FormatInt(v.Int, 10)); n > longest {
			longest = n
		}
	}
	return longest
}
