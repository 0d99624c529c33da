// Package fs validates output destinations and finds spreadsheets on disk.
package fs

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
)

// ErrInvalidDestinationPath is returned for output directories that are not
// absolute paths on the host OS.
var ErrInvalidDestinationPath = errors.New("invalid destination path")

var (
	windowsPath = regexp.MustCompile(`^[a-zA-Z]:\\`)
	posixPath   = regexp.MustCompile(`^/([^/:*?"<>|\r\n]+/)*[^/:*?"<>|\r\n]*$`)
)

// TrimQuotes removes one pair of surrounding single or double quotes, as
// left behind by "Copy as path" in file managers.
func TrimQuotes(path string) string {
	path = strings.TrimSpace(path)
	if len(path) >= 2 && strings.ContainsRune(`"'`, rune(path[0])) && strings.ContainsRune(`"'`, rune(path[len(path)-1])) {
		return path[1 : len(path)-1]
	}
	return path
}

// ValidateDestination checks path against the absolute-path syntax of goos
// ("windows" needs a drive letter, everything else a leading slash and no
// reserved characters) and returns the cleaned path.
func ValidateDestination(path, goos string) (string, error) {
	path = TrimQuotes(path)
	if path == "" {
		return "", fmt.Errorf("%w: no output directory given", ErrInvalidDestinationPath)
	}

	var ok bool
	if goos == "windows" {
		ok = windowsPath.MatchString(path)
	} else {
		ok = posixPath.MatchString(path)
	}
	if !ok {
		return "", fmt.Errorf("%w: %q — use an absolute folder path such as %s", ErrInvalidDestinationPath, path, examplePath(goos))
	}
	return path, nil
}

// ValidateHostDestination validates path for the running OS.
func ValidateHostDestination(path string) (string, error) {
	return ValidateDestination(path, runtime.GOOS)
}

// PrepareDestination validates path for the running OS and creates the
// directory if it does not exist yet.
func PrepareDestination(path string) (string, error) {
	path, err := ValidateHostDestination(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("could not create output directory %s: %w", path, err)
	}
	return path, nil
}

func examplePath(goos string) string {
	if goos == "windows" {
		return `D:\reports\split`
	}
	return "/Users/me/reports/split"
}
