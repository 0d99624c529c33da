// Package output provides formatting utilities for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/yangming0322/splittable/internal/table"
)

// Format represents an output format.
type Format int

const (
	// FormatText is plain text output.
	FormatText Format = iota
	// FormatJSON is JSON output.
	FormatJSON
)

// Writer handles formatted output to a destination.
type Writer struct {
	dest   io.Writer
	format Format
}

// NewWriter creates a new output writer with the given format.
func NewWriter(format Format) *Writer {
	return &Writer{
		dest:   os.Stdout,
		format: format,
	}
}

// NewWriterTo creates a writer that writes to dest instead of stdout.
func NewWriterTo(dest io.Writer, format Format) *Writer {
	return &Writer{dest: dest, format: format}
}

// WriteJSON encodes a value as pretty-printed JSON.
func (w *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(w.dest)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteText writes plain text.
func (w *Writer) WriteText(s string) error {
	_, err := fmt.Fprint(w.dest, s)
	return err
}

// WriteLn writes a line of text.
func (w *Writer) WriteLn(s string) error {
	_, err := fmt.Fprintln(w.dest, s)
	return err
}

// WriteTable renders t as a bordered text grid, or as a TablePreview in
// JSON mode. Null cells are left blank.
func (w *Writer) WriteTable(t *table.Table) error {
	if w.format == FormatJSON {
		return w.WriteJSON(NewTablePreview(t))
	}

	tw := tablewriter.NewWriter(w.dest)
	tw.SetHeader(t.Names())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.Text()
		}
		tw.Append(cells)
	}
	tw.Render()
	return nil
}

// ColumnInfo describes one column of a loaded table.
type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// TablePreview is the JSON shape of a table preview.
type TablePreview struct {
	Columns []ColumnInfo    `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// NewTablePreview converts t into its JSON preview shape.
func NewTablePreview(t *table.Table) TablePreview {
	p := TablePreview{
		Columns: make([]ColumnInfo, 0, t.NumColumns()),
		Rows:    make([][]interface{}, 0, t.NumRows()),
	}
	for _, c := range t.Columns {
		p.Columns = append(p.Columns, ColumnInfo{Name: c.Name, Kind: c.Kind.String()})
	}
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v.Interface()
		}
		p.Rows = append(p.Rows, cells)
	}
	return p
}

// WriteError writes an error message to stderr.
func WriteError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
