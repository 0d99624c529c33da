package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yangming0322/splittable/cmd/version"
	"github.com/yangming0322/splittable/internal/fs"
	"github.com/yangming0322/splittable/internal/loader"
	"github.com/yangming0322/splittable/internal/splitter"
	"github.com/yangming0322/splittable/internal/table"
)

// Exit codes for consistent error reporting.
const (
	ExitOK          = 0 // success
	ExitUserError   = 1 // bad flags, missing file, unknown column, bad path
	ExitSystemError = 2 // IO error, workbook serialization failure
)

// ErrUsage marks errors caused by how the command was invoked.
var ErrUsage = errors.New("usage error")

// ExitCodeFor classifies err into one of the exit codes. Problems with the
// input file or the requested columns and paths are user errors.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage),
		errors.Is(err, os.ErrNotExist),
		errors.Is(err, loader.ErrUnsupportedFormat),
		errors.Is(err, loader.ErrParse),
		errors.Is(err, table.ErrEmptyInput),
		errors.Is(err, splitter.ErrMissingBoundaryColumn),
		errors.Is(err, splitter.ErrMissingGroupColumn),
		errors.Is(err, fs.ErrInvalidDestinationPath):
		return ExitUserError
	default:
		return ExitSystemError
	}
}

// JSONResult is the standard JSON output envelope for all commands.
type JSONResult struct {
	OK      bool        `json:"ok"`
	Command string      `json:"command"`
	Version string      `json:"version"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    int         `json:"code,omitempty"`
}

// PrintJSON writes a standard success JSON result to stdout.
func PrintJSON(cmd string, data interface{}) error {
	return EncodeJSON(os.Stdout, cmd, data)
}

// EncodeJSON writes a success envelope to w.
func EncodeJSON(w io.Writer, cmd string, data interface{}) error {
	result := JSONResult{
		OK:      true,
		Command: cmd,
		Version: version.Version,
		Data:    data,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// PrintJSONError writes a standard error JSON result to stdout.
func PrintJSONError(cmd string, err error, code int) error {
	return EncodeJSONError(os.Stdout, cmd, err, code)
}

// EncodeJSONError writes an error envelope to w.
func EncodeJSONError(w io.Writer, cmd string, err error, code int) error {
	result := JSONResult{
		OK:      false,
		Command: cmd,
		Version: version.Version,
		Error:   err.Error(),
		Code:    code,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil {
		return fmt.Errorf("could not encode JSON error: %w", encErr)
	}
	return nil
}
