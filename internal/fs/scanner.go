package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SpreadsheetExtensions maps the inputs a split accepts to a display name.
var SpreadsheetExtensions = map[string]string{
	".csv":  "CSV",
	".xls":  "Excel (Legacy)",
	".xlsx": "Excel",
}

// FileInfo describes a spreadsheet found on disk.
type FileInfo struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Extension  string    `json:"extension"`
	Format     string    `json:"format"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ScanOptions configures the directory scan.
type ScanOptions struct {
	Recursive  bool
	Extensions []string // filter to these extensions; empty = all spreadsheets
}

// Scan walks root and returns the spreadsheets in it, sorted by path.
// Hidden files and directories (including split staging dirs) and Excel
// lock files ("~$book.xlsx") are skipped.
func Scan(root string, opts ScanOptions) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("could not access %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	extFilter := make(map[string]bool)
	for _, e := range opts.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		extFilter[e] = true
	}

	var files []FileInfo
	walkFn := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible
		}
		if d.IsDir() {
			if path != root && (!opts.Recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsIgnored(d.Name()) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		format, ok := SpreadsheetExtensions[ext]
		if !ok {
			return nil
		}
		if len(extFilter) > 0 && !extFilter[ext] {
			return nil
		}

		finfo, err := d.Info()
		if err != nil {
			return nil
		}

		files = append(files, FileInfo{
			Path:       path,
			Name:       d.Name(),
			Extension:  ext,
			Format:     format,
			Size:       finfo.Size(),
			ModifiedAt: finfo.ModTime(),
		})
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// IsIgnored reports whether a file name is hidden or an Office lock file.
func IsIgnored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}

// FormatSize renders a byte count as "12.3 KB".
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
