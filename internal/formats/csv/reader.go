// Package csv reads comma-separated files into typed tables.
package csv

import (
	"bytes"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/yangming0322/splittable/internal/table"
)

// Encodings accepted by Read.
const (
	EncodingAuto    = "auto"
	EncodingUTF8    = "utf-8"
	EncodingGBK     = "gbk"
	EncodingGB18030 = "gb18030"
)

// ErrMalformed wraps errors from the CSV tokenizer.
var ErrMalformed = errors.New("malformed CSV")

// Read parses CSV data with a header on the first line.
//
// enc selects the text encoding. With EncodingAuto (or ""), UTF-8 input is
// used as-is and anything else is decoded as GB18030, the superset of the
// GBK exports produced by Chinese Excel installs.
func Read(r io.Reader, enc string) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read CSV data: %w", err)
	}

	data, err = decode(data, enc)
	if err != nil {
		return nil, err
	}

	reader := stdcsv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file has no header row: %w", table.ErrEmptyInput)
	}

	rows := make([][]table.Cell, len(records)-1)
	for i, rec := range records[1:] {
		row := make([]table.Cell, len(rec))
		for j, field := range rec {
			row[j] = table.Cell{Text: field}
		}
		rows[i] = row
	}

	return table.Build(records[0], rows)
}

func decode(data []byte, enc string) ([]byte, error) {
	var decoder *encoding.Decoder

	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", EncodingAuto:
		if utf8.Valid(data) {
			decoder = unicode.UTF8BOM.NewDecoder()
		} else {
			decoder = simplifiedchinese.GB18030.NewDecoder()
		}
	case EncodingUTF8, "utf8":
		decoder = unicode.UTF8BOM.NewDecoder()
	case EncodingGBK:
		decoder = simplifiedchinese.GBK.NewDecoder()
	case EncodingGB18030:
		decoder = simplifiedchinese.GB18030.NewDecoder()
	default:
		return nil, fmt.Errorf("unsupported CSV encoding %q — use auto, utf-8, gbk or gb18030", enc)
	}

	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode %s text: %v", ErrMalformed, enc, err)
	}
	return out, nil
}
