// Package loader turns an uploaded spreadsheet into a typed table, choosing
// the parser from the file extension.
package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/yangming0322/splittable/internal/formats/csv"
	"github.com/yangming0322/splittable/internal/formats/xls"
	"github.com/yangming0322/splittable/internal/formats/xlsx"
	"github.com/yangming0322/splittable/internal/table"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .csv, .xls and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrParse is returned when the bytes are not valid CSV or spreadsheet data.
	ErrParse = errors.New("could not parse file")
)

// SupportedExtensions lists the accepted file extensions.
var SupportedExtensions = []string{".csv", ".xls", ".xlsx"}

// Options tunes how files are read.
type Options struct {
	// CSVEncoding is one of auto, utf-8, gbk, gb18030. Empty means auto.
	CSVEncoding string
}

// Load reads r as the file called name. The stream is rewound first, so the
// same handle can be loaded for a preview and again for the split.
func Load(r io.ReadSeeker, name string, opts Options) (*table.Table, error) {
	format := Detect(name)
	if format == "" {
		return nil, fmt.Errorf("%w: %q — expected one of %s", ErrUnsupportedFormat, filepath.Ext(name), strings.Join(SupportedExtensions, ", "))
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("could not rewind %s: %w", name, err)
	}

	var (
		tbl *table.Table
		err error
	)
	switch format {
	case ".csv":
		tbl, err = csv.Read(r, opts.CSVEncoding)
	case ".xlsx":
		tbl, err = xlsx.Read(r)
	case ".xls":
		tbl, err = xls.Read(r)
	}
	if err != nil {
		return nil, classify(name, err)
	}
	return tbl, nil
}

// Detect returns the normalized extension of a supported file, or "".
func Detect(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return ext
		}
	}
	return ""
}

// Preview returns the column names and the first n rows of t.
func Preview(t *table.Table, n int) *table.Table {
	return t.Head(n)
}

func classify(name string, err error) error {
	switch {
	case errors.Is(err, table.ErrEmptyInput):
		return fmt.Errorf("%s: %w", name, err)
	case errors.Is(err, csv.ErrMalformed),
		errors.Is(err, xlsx.ErrInvalidWorkbook),
		errors.Is(err, xls.ErrInvalidWorkbook),
		errors.Is(err, table.ErrRaggedRow):
		return fmt.Errorf("%w %s: %v", ErrParse, name, err)
	default:
		return fmt.Errorf("could not read %s: %w", name, err)
	}
}
