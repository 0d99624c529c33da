// Package watch provides a drop-folder watcher: spreadsheets saved into a
// watched directory are split according to configured rules.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/yangming0322/splittable/internal/fs"
)

// Rule says which dropped files to split and how.
type Rule struct {
	ID         string   `yaml:"id" json:"id"`
	Pattern    string   `yaml:"pattern,omitempty" json:"pattern,omitempty"` // Glob on the base name, e.g. "sales_*.xlsx"
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	Boundary   string   `yaml:"boundary" json:"boundary"`
	Group      string   `yaml:"group" json:"group"`
	// Output is the destination directory. When empty the split is saved
	// as a ZIP archive next to the input.
	Output  string `yaml:"output,omitempty" json:"output,omitempty"`
	Atomic  bool   `yaml:"atomic,omitempty" json:"atomic,omitempty"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// WatchConfig holds the complete watcher configuration.
type WatchConfig struct {
	Directories []string `yaml:"directories" json:"directories"`
	Rules       []Rule   `yaml:"rules" json:"rules"`
	Recursive   bool     `yaml:"recursive" json:"recursive"`
	Debounce    int      `yaml:"debounce_ms" json:"debounceMs"` // Milliseconds to wait before processing
}

// Event represents a file event that was detected and processed.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"` // "CREATE", "WRITE", "SCAN"
	RuleID    string    `json:"ruleId,omitempty"`
	Status    string    `json:"status"` // "processed", "error", "skipped"
	Error     string    `json:"error,omitempty"`
}

// Watcher monitors directories for file changes and runs the handler.
type Watcher struct {
	Config   WatchConfig
	Logger   *slog.Logger
	Events   []Event
	Handler  EventHandler
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce map[string]*time.Timer
	started  time.Time
}

// EventHandler is called when a matching file event occurs.
type EventHandler func(path string, rule Rule) error

// Status represents the current watcher status.
type Status struct {
	Running     bool     `json:"running"`
	Directories []string `json:"directories"`
	Rules       int      `json:"rules"`
	EventCount  int      `json:"eventCount"`
	StartedAt   string   `json:"startedAt,omitempty"`
}

// New creates a new Watcher with the given configuration.
func New(config WatchConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	if config.Debounce <= 0 {
		config.Debounce = 500
	}

	w := &Watcher{
		Config:   config,
		Logger:   slog.Default().With("component", "watch"),
		watcher:  fsw,
		debounce: make(map[string]*time.Timer),
	}

	return w, nil
}

// Start begins watching the configured directories. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.Config.Directories {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", dir, err)
		}

		if w.Config.Recursive {
			if err := w.addRecursive(absDir); err != nil {
				return err
			}
		} else {
			if err := w.watcher.Add(absDir); err != nil {
				return fmt.Errorf("could not watch %s: %w — check that the directory exists", absDir, err)
			}
		}
	}

	w.mu.Lock()
	w.started = time.Now()
	w.mu.Unlock()
	w.Logger.Info("watching", "directories", len(w.Config.Directories), "rules", len(w.Config.Rules))

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("stopping watcher")
			w.stopTimers()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Error("watch error", "error", err)
		}
	}
}

// ProcessExisting runs the rules over the spreadsheets already present in
// the watched directories, in path order.
func (w *Watcher) ProcessExisting() (int, error) {
	n := 0
	for _, dir := range w.Config.Directories {
		files, err := fs.Scan(dir, fs.ScanOptions{Recursive: w.Config.Recursive})
		if err != nil {
			return n, err
		}
		for _, f := range files {
			if w.isOutput(f.Path) {
				continue
			}
			w.processFile(f.Path, "SCAN")
			n++
		}
	}
	return n, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if fs.IsIgnored(filepath.Base(path)) && path != dir {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	path := event.Name
	if _, ok := fs.SpreadsheetExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return
	}
	if fs.IsIgnored(filepath.Base(path)) || w.isOutput(path) {
		return
	}

	// Editors and copies fire several writes; split once they settle.
	w.mu.Lock()
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(time.Duration(w.Config.Debounce)*time.Millisecond, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		w.processFile(path, event.Op.String())
	})
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, path)
	}
}

// isOutput reports whether path lies in a rule's output directory or in a
// hidden directory such as a split staging area. Splitting those would
// feed the watcher its own results.
func (w *Watcher) isOutput(path string) bool {
	dir := filepath.Dir(path)
	for _, root := range w.Config.Directories {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(abs, dir)
		if err != nil || !within(rel) {
			continue
		}
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if part != "." && fs.IsIgnored(part) {
				return true
			}
		}
	}
	for _, rule := range w.Config.Rules {
		if rule.Output == "" {
			continue
		}
		out := filepath.Clean(fs.TrimQuotes(rule.Output))
		rel, err := filepath.Rel(out, dir)
		if err == nil && within(rel) {
			return true
		}
	}
	return false
}

// within reports whether a filepath.Rel result stays inside its base.
func within(rel string) bool {
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) processFile(path string, operation string) {
	for _, rule := range w.Config.Rules {
		if !rule.Enabled {
			continue
		}
		if !w.matchesRule(path, rule) {
			continue
		}

		evt := Event{
			Time:      time.Now(),
			Path:      path,
			Operation: operation,
			RuleID:    rule.ID,
		}

		if w.Handler != nil {
			if err := w.Handler(path, rule); err != nil {
				evt.Status = "error"
				evt.Error = err.Error()
				w.Logger.Error("split failed", "path", path, "rule", rule.ID, "error", err)
			} else {
				evt.Status = "processed"
				w.Logger.Info("split done", "path", path, "rule", rule.ID)
			}
		} else {
			evt.Status = "processed"
			w.Logger.Info("matched without handler", "path", path, "rule", rule.ID)
		}

		w.mu.Lock()
		w.Events = append(w.Events, evt)
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.Events = append(w.Events, Event{
		Time:      time.Now(),
		Path:      path,
		Operation: operation,
		Status:    "skipped",
	})
	w.mu.Unlock()
}

func (w *Watcher) matchesRule(path string, rule Rule) bool {
	ext := strings.ToLower(filepath.Ext(path))

	if len(rule.Extensions) > 0 {
		matched := false
		for _, e := range rule.Extensions {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if strings.ToLower(e) == ext {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if rule.Pattern != "" {
		matched, _ := filepath.Match(rule.Pattern, filepath.Base(path))
		if !matched {
			return false
		}
	}

	return true
}

// GetStatus returns the current watcher status.
func (w *Watcher) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Status{
		Running:     true,
		Directories: w.Config.Directories,
		Rules:       len(w.Config.Rules),
		EventCount:  len(w.Events),
	}
	if !w.started.IsZero() {
		s.StartedAt = w.started.Format(time.RFC3339)
	}
	return s
}

// GetEvents returns all recorded events.
func (w *Watcher) GetEvents() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.Events))
	copy(events, w.Events)
	return events
}

// ValidateRules checks that every enabled rule names both columns and has
// a usable destination, so a misconfigured watcher fails at start rather
// than on the first dropped file.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("no watch rules configured — add one with --boundary and --group")
	}
	seen := make(map[string]bool)
	for i, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("rule %d is missing an 'id' field", i+1)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule ID %q", r.ID)
		}
		seen[r.ID] = true
		if !r.Enabled {
			continue
		}
		if r.Boundary == "" || r.Group == "" {
			return fmt.Errorf("rule %q needs both 'boundary' and 'group'", r.ID)
		}
		if r.Output != "" {
			if _, err := fs.ValidateHostDestination(r.Output); err != nil {
				return fmt.Errorf("rule %q: %w", r.ID, err)
			}
		}
	}
	return nil
}

const pidFile = ".splittable-watch.pid"

// WritePIDFile writes the current process ID to the PID file in the given directory.
func WritePIDFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, pidFile)
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// ReadPIDFile reads the PID from the PID file.
func ReadPIDFile(dir string) (int, error) {
	path := filepath.Join(dir, pidFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(dir string) error {
	return os.Remove(filepath.Join(dir, pidFile))
}

// SaveConfig writes the watcher config to path as YAML.
func SaveConfig(path string, config WatchConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadConfig reads a watcher config written by SaveConfig or by hand.
func LoadConfig(path string) (*WatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config WatchConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("invalid watch config %s: %w", path, err)
	}
	return &config, nil
}
