package watch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yangming0322/splittable/internal/job"
)

const employees = "ID,Name,Dept,Salary\n1,Ann,HR,100\n2,Bob,IT,200\n3,Cid,HR,300\n"

func TestNewWatcher(t *testing.T) {
	w, err := New(WatchConfig{
		Directories: []string{t.TempDir()},
		Debounce:    100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if w == nil {
		t.Fatal("expected non-nil watcher")
	}
	w.watcher.Close()
}

func TestMatchesRuleExtension(t *testing.T) {
	w, _ := New(WatchConfig{})
	defer w.watcher.Close()

	rule := Rule{ID: "r1", Extensions: []string{".csv", "xlsx"}, Enabled: true}

	if !w.matchesRule("/tmp/report.csv", rule) {
		t.Error("should match .csv")
	}
	if !w.matchesRule("/tmp/data.XLSX", rule) {
		t.Error("should match .xlsx without dot in rule")
	}
	if w.matchesRule("/tmp/old.xls", rule) {
		t.Error("should not match .xls")
	}
}

func TestMatchesRulePattern(t *testing.T) {
	w, _ := New(WatchConfig{})
	defer w.watcher.Close()

	rule := Rule{ID: "r1", Pattern: "sales_*.xlsx", Enabled: true}

	if !w.matchesRule("/tmp/sales_2024.xlsx", rule) {
		t.Error("should match sales_2024.xlsx")
	}
	if w.matchesRule("/tmp/payroll.xlsx", rule) {
		t.Error("should not match payroll.xlsx")
	}
}

func TestMatchesRuleExtensionAndPattern(t *testing.T) {
	w, _ := New(WatchConfig{})
	defer w.watcher.Close()

	rule := Rule{ID: "r1", Pattern: "staff_*", Extensions: []string{".csv"}, Enabled: true}

	if !w.matchesRule("/tmp/staff_01.csv", rule) {
		t.Error("should match staff_01.csv")
	}
	if w.matchesRule("/tmp/staff_01.xlsx", rule) {
		t.Error("should not match .xlsx")
	}
	if w.matchesRule("/tmp/other_01.csv", rule) {
		t.Error("should not match other_01.csv")
	}
}

func TestIsOutput(t *testing.T) {
	drop := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	w, _ := New(WatchConfig{
		Directories: []string{drop},
		Rules:       []Rule{{ID: "r1", Output: out, Enabled: true}},
	})
	defer w.watcher.Close()

	cases := map[string]bool{
		filepath.Join(drop, "a.csv"):                           false,
		filepath.Join(drop, "sub", "a.csv"):                    false,
		filepath.Join(drop, ".splittable-1234", "HR.xlsx"):     true,
		filepath.Join(out, "HR.xlsx"):                          true,
		filepath.Join(out, "nested", "HR.xlsx"):                true,
		filepath.Join(filepath.Dir(out), "out-other", "x.csv"): false,
	}
	for path, want := range cases {
		if got := w.isOutput(path); got != want {
			t.Errorf("isOutput(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcherEvents(t *testing.T) {
	dir := t.TempDir()

	w, err := New(WatchConfig{
		Directories: []string{dir},
		Rules: []Rule{
			{ID: "test-rule", Extensions: []string{".csv"}, Boundary: "Name", Group: "Dept", Enabled: true},
		},
		Debounce: 50,
	})
	if err != nil {
		t.Fatal(err)
	}

	handlerCalled := make(chan string, 4)
	w.Handler = func(path string, rule Rule) error {
		handlerCalled <- path
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(dir, "staff.csv")
	os.WriteFile(testFile, []byte(employees), 0644)

	select {
	case path := <-handlerCalled:
		if path != testFile {
			t.Errorf("expected %q, got %q", testFile, path)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for handler call")
	}
}

func TestWatcherSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := New(WatchConfig{
		Directories: []string{dir},
		Rules:       []Rule{{ID: "r1", Enabled: true}},
		Debounce:    50,
	})
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var called []string
	w.Handler = func(path string, rule Rule) error {
		mu.Lock()
		called = append(called, path)
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("test"), 0644)
	os.WriteFile(filepath.Join(dir, "~$book.xlsx"), []byte("lock"), 0644)
	os.WriteFile(filepath.Join(dir, "result.zip"), []byte("zip"), 0644)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(called) != 0 {
		t.Errorf("handler should not be called, got %v", called)
	}
}

func TestProcessExistingSplitsIntoOutput(t *testing.T) {
	drop := t.TempDir()
	out := filepath.Join(t.TempDir(), "split")
	if err := os.WriteFile(filepath.Join(drop, "staff.csv"), []byte(employees), 0644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(drop, "notes.txt"), []byte("x"), 0644)

	w, err := New(WatchConfig{
		Directories: []string{drop},
		Rules:       []Rule{{ID: "staff", Boundary: "Name", Group: "Dept", Output: out, Enabled: true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()
	w.Handler = SplitHandler(context.Background(), job.Request{})

	n, err := w.ProcessExisting()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 file processed, got %d", n)
	}
	for _, name := range []string{"HR.xlsx", "IT.xlsx"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	events := w.GetEvents()
	if len(events) != 1 || events[0].Status != "processed" || events[0].Operation != "SCAN" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestSplitHandlerArchiveNextToInput(t *testing.T) {
	drop := t.TempDir()
	in := filepath.Join(drop, "staff.csv")
	if err := os.WriteFile(in, []byte(employees), 0644); err != nil {
		t.Fatal(err)
	}

	h := SplitHandler(context.Background(), job.Request{})
	if err := h(in, Rule{ID: "z", Boundary: "Name", Group: "Dept", Enabled: true}); err != nil {
		t.Fatal(err)
	}

	entries, _ := os.ReadDir(drop)
	found := false
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".zip") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a zip archive in %s", drop)
	}
}

func TestProcessFileRecordsErrors(t *testing.T) {
	drop := t.TempDir()
	in := filepath.Join(drop, "staff.csv")
	os.WriteFile(in, []byte(employees), 0644)

	w, _ := New(WatchConfig{
		Directories: []string{drop},
		Rules:       []Rule{{ID: "bad", Boundary: "Missing", Group: "Dept", Enabled: true}},
	})
	defer w.watcher.Close()
	w.Handler = SplitHandler(context.Background(), job.Request{})

	w.processFile(in, "CREATE")
	events := w.GetEvents()
	if len(events) != 1 || events[0].Status != "error" || events[0].Error == "" {
		t.Errorf("expected error event, got %+v", events)
	}
}

func TestProcessFileDisabledRuleSkips(t *testing.T) {
	w, _ := New(WatchConfig{Rules: []Rule{{ID: "off", Enabled: false}}})
	defer w.watcher.Close()

	w.processFile("/tmp/a.csv", "CREATE")
	events := w.GetEvents()
	if len(events) != 1 || events[0].Status != "skipped" {
		t.Errorf("expected skipped event, got %+v", events)
	}
}

func TestValidateRules(t *testing.T) {
	if err := ValidateRules(nil); err == nil {
		t.Error("expected error for no rules")
	}
	if err := ValidateRules([]Rule{{ID: "a", Group: "Dept", Enabled: true}}); err == nil {
		t.Error("expected error for missing boundary")
	}
	if err := ValidateRules([]Rule{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Error("expected error for duplicate IDs")
	}
	if err := ValidateRules([]Rule{{ID: "a", Boundary: "B", Group: "G", Output: "relative/out", Enabled: true}}); err == nil {
		t.Error("expected error for relative output")
	}
	if err := ValidateRules([]Rule{{ID: "a", Boundary: "B", Group: "G", Output: t.TempDir(), Enabled: true}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateRules([]Rule{{ID: "off"}}); err != nil {
		t.Errorf("disabled rules need no columns: %v", err)
	}
}

func TestPIDFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	if err := WritePIDFile(dir); err != nil {
		t.Fatal(err)
	}

	pid, err := ReadPIDFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if pid != os.Getpid() {
		t.Errorf("expected PID %d, got %d", os.Getpid(), pid)
	}

	if err := RemovePIDFile(dir); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadPIDFile(dir); err == nil {
		t.Error("expected error after removing PID file")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "watch.yaml")

	config := WatchConfig{
		Directories: []string{"/srv/drop"},
		Rules: []Rule{
			{ID: "r1", Extensions: []string{".xlsx"}, Boundary: "Salary", Group: "Dept", Output: "/srv/out", Enabled: true},
		},
		Recursive: true,
		Debounce:  500,
	}

	if err := SaveConfig(path, config); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(loaded.Directories) != 1 || loaded.Directories[0] != "/srv/drop" {
		t.Errorf("directories mismatch: %v", loaded.Directories)
	}
	if !loaded.Recursive || loaded.Debounce != 500 {
		t.Errorf("unexpected settings %+v", loaded)
	}
	if len(loaded.Rules) != 1 || loaded.Rules[0].Group != "Dept" || loaded.Rules[0].Output != "/srv/out" {
		t.Errorf("rules mismatch: %+v", loaded.Rules)
	}
}

func TestLoadHandWrittenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	doc := `directories: [/srv/drop]
debounce_ms: 250
rules:
  - id: sales
    pattern: "sales_*"
    boundary: Amount
    group: Region
    enabled: true
`
	os.WriteFile(path, []byte(doc), 0644)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Debounce != 250 || len(cfg.Rules) != 1 || cfg.Rules[0].Pattern != "sales_*" {
		t.Errorf("unexpected config %+v", cfg)
	}

	os.WriteFile(path, []byte("rules: [oops"), 0644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestGetStatus(t *testing.T) {
	w, _ := New(WatchConfig{
		Directories: []string{"/tmp/a", "/tmp/b"},
		Rules:       []Rule{{ID: "r1"}, {ID: "r2"}},
	})
	defer w.watcher.Close()

	status := w.GetStatus()
	if !status.Running {
		t.Error("expected running=true")
	}
	if len(status.Directories) != 2 {
		t.Errorf("expected 2 directories, got %d", len(status.Directories))
	}
	if status.Rules != 2 {
		t.Errorf("expected 2 rules, got %d", status.Rules)
	}
}

func TestEventJSON(t *testing.T) {
	evt := Event{
		Time:      time.Now(),
		Path:      "/tmp/staff.csv",
		Operation: "CREATE",
		RuleID:    "r1",
		Status:    "processed",
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ruleId":"r1"`) {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestDefaultDebounce(t *testing.T) {
	w, _ := New(WatchConfig{Debounce: 0})
	defer w.watcher.Close()

	if w.Config.Debounce != 500 {
		t.Errorf("expected default debounce 500, got %d", w.Config.Debounce)
	}
}
