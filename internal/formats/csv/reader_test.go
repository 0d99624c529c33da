package csv

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/yangming0322/splittable/internal/table"
)

func TestReadBasic(t *testing.T) {
	data := "ID,Name,Dept,Salary\n1,A,X,100\n2,B,Y,200\n3,C,X,300\n"
	tbl, err := Read(strings.NewReader(data), EncodingAuto)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got := strings.Join(tbl.Names(), ","); got != "ID,Name,Dept,Salary" {
		t.Errorf("unexpected columns %q", got)
	}
	if tbl.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.NumRows())
	}
	if tbl.Column("ID").Kind != table.KindInt {
		t.Errorf("expected ID to be integer, got %s", tbl.Column("ID").Kind)
	}
	if tbl.Column("Dept").Values[2] != table.String("X") {
		t.Errorf("unexpected Dept value %+v", tbl.Column("Dept").Values[2])
	}
}

func TestReadStripsBOM(t *testing.T) {
	data := "\ufeffName,Value\nA,1\n"
	tbl, err := Read(strings.NewReader(data), EncodingUTF8)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if tbl.Columns[0].Name != "Name" {
		t.Errorf("expected BOM to be stripped, got %q", tbl.Columns[0].Name)
	}
}

func TestReadGBK(t *testing.T) {
	src := "部门,姓名\n销售,张三\n"
	encoded, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(src))
	if err != nil {
		t.Fatal(err)
	}

	for _, enc := range []string{EncodingAuto, EncodingGBK, EncodingGB18030} {
		tbl, err := Read(bytes.NewReader(encoded), enc)
		if err != nil {
			t.Fatalf("Read(%s) failed: %v", enc, err)
		}
		if tbl.Columns[0].Name != "部门" {
			t.Errorf("Read(%s): expected header 部门, got %q", enc, tbl.Columns[0].Name)
		}
		if tbl.Column("姓名").Values[0] != table.String("张三") {
			t.Errorf("Read(%s): unexpected cell %+v", enc, tbl.Column("姓名").Values[0])
		}
	}
}

func TestReadQuotedFields(t *testing.T) {
	data := "Name,Note\n\"Smith, J\",\"said \"\"hi\"\"\"\n"
	tbl, err := Read(strings.NewReader(data), "")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := tbl.Column("Name").Values[0].Str; got != "Smith, J" {
		t.Errorf("expected quoted comma to survive, got %q", got)
	}
	if got := tbl.Column("Note").Values[0].Str; got != `said "hi"` {
		t.Errorf("unexpected note %q", got)
	}
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""), "")
	if !errors.Is(err, table.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}

	_, err = Read(strings.NewReader("A,B\n"), "")
	if !errors.Is(err, table.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput for header-only file, got %v", err)
	}
}

func TestReadUnknownEncoding(t *testing.T) {
	_, err := Read(strings.NewReader("A\n1\n"), "latin-9")
	if err == nil {
		t.Error("expected error for unsupported encoding")
	}
}
