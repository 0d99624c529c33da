//go:build ignore

// This program generates test fixture files for splittable.
//
// staff.xls is checked in rather than generated: nothing in the module
// writes BIFF8. It is a minimal Excel 97-2003 workbook with a blank first
// row, the header ID/Name/Dept/Salary on row 2, three employees and a blank
// row before the last one.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/yangming0322/splittable/internal/formats/csv"
	"github.com/yangming0322/splittable/internal/formats/xlsx"
)

// staff is the worked example: split at Salary, group by Dept.
const staff = `ID,Name,Dept,Salary
1,Ann,HR,100
2,Bob,IT,200
3,Cid,HR,300
4,Dee,Sales,250
5,Eve,IT,220
`

// longIDs carries a 12-digit ID column that must come out as text.
const longIDs = `ID,Name,Region
310000000001,Ann,North
310000000002,Bob,South
310000000003,Cid,North
`

// collide has group values that map to the same file name.
const collide = `Code,Group
1,a/b
2,a:b
3,
`

func main() {
	files := map[string]string{
		"testdata/staff.csv":    staff,
		"testdata/long_ids.csv": longIDs,
		"testdata/collide.csv":  collide,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	if err := generateXlsx(); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating staff.xlsx: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Test fixtures generated successfully.")
}

func generateXlsx() error {
	t, err := csv.Read(strings.NewReader(staff), csv.EncodingUTF8)
	if err != nil {
		return err
	}
	data, err := xlsx.Write(t)
	if err != nil {
		return err
	}
	return os.WriteFile("testdata/staff.xlsx", data, 0644)
}
