// Package splitter partitions a table by the values of one column and
// writes each partition as its own spreadsheet.
package splitter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yangming0322/splittable/internal/formats/xlsx"
	"github.com/yangming0322/splittable/internal/sink"
	"github.com/yangming0322/splittable/internal/table"
)

var (
	// ErrMissingBoundaryColumn is returned when the last output column is
	// not set or not in the table.
	ErrMissingBoundaryColumn = errors.New("boundary column is missing")
	// ErrMissingGroupColumn is returned when the grouping column is not set
	// or not in the table.
	ErrMissingGroupColumn = errors.New("group column is missing")
	// ErrSerialization matches every *SerializationError.
	ErrSerialization = errors.New("could not write partition")
)

// SerializationError reports the partition whose output failed.
type SerializationError struct {
	Group string
	Err   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("could not write partition %q: %v", e.Group, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSerialization) true.
func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// NullGroupName names the partition of rows whose group value is empty.
const NullGroupName = "empty"

// OutputExt is appended to every partition name.
const OutputExt = ".xlsx"

// Options configures a split.
type Options struct {
	// Boundary is the last column (inclusive) copied into outputs.
	Boundary string
	// GroupBy is the column whose values define the partitions.
	GroupBy string
	// DigitLimit is passed to DetectLongDigitColumns; 0 means the default.
	DigitLimit int
	// Progress, if set, receives the completed percentage after each partition.
	Progress func(pct int)
}

// Report summarizes a finished split.
type Report struct {
	Partitions int      `json:"partitions"`
	Rows       int      `json:"rows"`
	Files      []string `json:"files"`
	Coerced    []string `json:"coercedColumns"`
}

// Partition is the set of rows sharing one group value.
type Partition struct {
	Key  table.Value
	Name string
	Rows []int
}

// ValidateSplitParameters checks both column names before any work starts.
// When both are bad the returned error matches both sentinels.
func ValidateSplitParameters(t *table.Table, boundary, group string) error {
	var errs []error
	if boundary == "" {
		errs = append(errs, fmt.Errorf("%w: choose the last column to keep", ErrMissingBoundaryColumn))
	} else if t.ColumnIndex(boundary) < 0 {
		errs = append(errs, fmt.Errorf("%w: %q is not a column (available: %s)", ErrMissingBoundaryColumn, boundary, strings.Join(t.Names(), ", ")))
	}
	if group == "" {
		errs = append(errs, fmt.Errorf("%w: choose the column to group by", ErrMissingGroupColumn))
	} else if t.ColumnIndex(group) < 0 {
		errs = append(errs, fmt.Errorf("%w: %q is not a column (available: %s)", ErrMissingGroupColumn, group, strings.Join(t.Names(), ", ")))
	}
	return errors.Join(errs...)
}

// Partitions groups row indices by exact equality of the group column,
// in first-seen order. Null values form their own partition.
func Partitions(t *table.Table, group string) []Partition {
	col := t.Column(group)
	if col == nil {
		return nil
	}

	index := make(map[table.Value]int)
	var parts []Partition
	for i, v := range col.Values {
		if v.IsNull() {
			v = table.Null()
		}
		p, ok := index[v]
		if !ok {
			p = len(parts)
			index[v] = p
			parts = append(parts, Partition{Key: v, Name: SafeName(v)})
		}
		parts[p].Rows = append(parts[p].Rows, i)
	}
	return parts
}

// SafeName turns a group value into a file base name by replacing ':' and
// '/' with '-'. Distinct values can map to the same name; the later
// partition then replaces the earlier one in the sink.
func SafeName(v table.Value) string {
	if v.IsNull() {
		return NullGroupName
	}
	return strings.NewReplacer(":", "-", "/", "-").Replace(v.Text())
}

// Split validates the options, coerces long integer columns of t in place,
// and hands one workbook per partition to s under "<safe name>.xlsx".
//
// A failure while writing a partition stops the split and returns a
// *SerializationError. Entries already accepted by s are left in place.
func Split(t *table.Table, opts Options, s sink.Sink) (*Report, error) {
	if err := ValidateSplitParameters(t, opts.Boundary, opts.GroupBy); err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, table.ErrEmptyInput
	}

	report := &Report{
		Coerced: DetectLongDigitColumns(t, opts.DigitLimit),
		Rows:    t.NumRows(),
	}

	ncols := t.ColumnIndex(opts.Boundary) + 1
	parts := Partitions(t, opts.GroupBy)

	for i, p := range parts {
		data, err := xlsx.Write(t.Select(p.Rows, ncols))
		if err != nil {
			return report, &SerializationError{Group: p.Name, Err: err}
		}
		name := p.Name + OutputExt
		if err := s.Put(name, data); err != nil {
			return report, &SerializationError{Group: p.Name, Err: err}
		}

		report.Partitions++
		report.Files = append(report.Files, name)
		if opts.Progress != nil {
			opts.Progress((i + 1) * 100 / len(parts))
		}
	}

	return report, nil
}
