package fs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateDestinationPosix(t *testing.T) {
	valid := []string{
		"/",
		"/tmp/out",
		"/Users/me/报表/拆分",
		"/tmp/out/",
		`"/tmp/quoted"`,
		"'/tmp/single'",
	}
	for _, p := range valid {
		if _, err := ValidateDestination(p, "darwin"); err != nil {
			t.Errorf("expected %q to be valid: %v", p, err)
		}
	}

	invalid := []string{
		"",
		"relative/out",
		"./out",
		"/tmp/a:b",
		"/tmp/what?",
		"/tmp//double",
		`C:\reports`,
	}
	for _, p := range invalid {
		_, err := ValidateDestination(p, "linux")
		if !errors.Is(err, ErrInvalidDestinationPath) {
			t.Errorf("expected %q to be rejected, got %v", p, err)
		}
	}
}

func TestValidateDestinationWindows(t *testing.T) {
	if _, err := ValidateDestination(`D:\reports\split`, "windows"); err != nil {
		t.Errorf("expected drive path to be valid: %v", err)
	}
	for _, p := range []string{`reports\split`, "/tmp/out", `D:reports`} {
		if _, err := ValidateDestination(p, "windows"); !errors.Is(err, ErrInvalidDestinationPath) {
			t.Errorf("expected %q to be rejected on windows, got %v", p, err)
		}
	}
}

func TestValidateDestinationStripsQuotes(t *testing.T) {
	got, err := ValidateDestination(`  "/tmp/out"  `, "linux")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/out" {
		t.Errorf("expected quotes stripped, got %q", got)
	}
}

func TestPrepareDestinationCreatesDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("temp dirs are drive-rooted on windows")
	}
	dir := filepath.Join(t.TempDir(), "a", "b")
	got, err := PrepareDestination(dir)
	if err != nil {
		t.Fatalf("PrepareDestination failed: %v", err)
	}
	if info, err := os.Stat(got); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be created", got)
	}
}

func TestPrepareDestinationRejectsRelative(t *testing.T) {
	wd := t.TempDir()
	old, _ := os.Getwd()
	if err := os.Chdir(wd); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(old)

	_, err := PrepareDestination("out")
	if !errors.Is(err, ErrInvalidDestinationPath) {
		t.Fatalf("expected ErrInvalidDestinationPath, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(wd, "out")); !os.IsNotExist(err) {
		t.Error("no directory should be created for a rejected path")
	}
}

func TestScanFindsSpreadsheets(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "a.xlsx", "x")
	createTestFile(t, dir, "b.CSV", "x")
	createTestFile(t, dir, "c.xls", "x")
	createTestFile(t, dir, "notes.txt", "x")
	createTestFile(t, dir, "~$a.xlsx", "x")
	createTestFile(t, dir, ".hidden.csv", "x")
	createTestFile(t, dir, "sub/d.xlsx", "x")

	files, err := Scan(dir, ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %+v", len(files), files)
	}
	if files[0].Name != "a.xlsx" || files[1].Extension != ".csv" {
		t.Errorf("unexpected order: %+v", files)
	}
}

func TestScanRecursiveSkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "sub/d.xlsx", "x")
	createTestFile(t, dir, ".splittable-123/staged.xlsx", "x")

	files, err := Scan(dir, ScanOptions{Recursive: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "d.xlsx" {
		t.Errorf("expected only sub/d.xlsx, got %+v", files)
	}
}

func TestScanFilterExtension(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "a.xlsx", "x")
	createTestFile(t, dir, "b.csv", "x")

	files, err := Scan(dir, ScanOptions{Extensions: []string{"csv"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "b.csv" {
		t.Errorf("expected only b.csv, got %+v", files)
	}
}

func TestScanNotDir(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "a.csv", "x")
	if _, err := Scan(path, ScanOptions{}); err == nil {
		t.Error("expected error scanning a file")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
