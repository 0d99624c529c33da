// Package shell provides the interactive splittable session: open a file,
// look at its columns, pick the boundary and group columns with tab
// completion, and split.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/yangming0322/splittable/internal/cache"
	"github.com/yangming0322/splittable/internal/job"
	"github.com/yangming0322/splittable/internal/loader"
	"github.com/yangming0322/splittable/internal/output"
	"github.com/yangming0322/splittable/internal/table"
)

// DefaultPreviewRows is how many rows "open" and "preview" show.
const DefaultPreviewRows = 5

// Session manages an interactive shell session.
type Session struct {
	CommandHistory []string
	HistoryFile    string
	StartTime      time.Time

	// Template carries the settings every split uses (digit limit, CSV
	// encoding, atomic mode).
	Template job.Request

	File      string
	Boundary  string
	Group     string
	OutputDir string // empty means archive mode

	table *table.Table
	cache *cache.TableCache

	// KnownCommands is the list of session commands for completion.
	KnownCommands []string
}

// NewSession creates a new interactive session.
func NewSession(template job.Request) (*Session, error) {
	home, _ := os.UserHomeDir()
	histFile := filepath.Join(home, ".splittable", "shell_history")

	os.MkdirAll(filepath.Dir(histFile), 0755)

	return &Session{
		HistoryFile: histFile,
		StartTime:   time.Now(),
		Template:    template,
		cache:       cache.New(4, 0),
		KnownCommands: []string{
			"open", "columns", "preview", "boundary", "group", "out",
			"status", "split", "help", "history", "exit", "quit",
		},
	}, nil
}

// Run starts the REPL loop. Blocks until 'exit' or Ctrl+D.
func (s *Session) Run(ctx context.Context) error {
	completer := readline.NewPrefixCompleter(s.buildCompleter()...)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "splittable> ",
		HistoryFile:     s.HistoryFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("splittable — interactive session")
	fmt.Println("Type 'help' for commands, 'exit' to quit.")
	fmt.Println()

	if s.File != "" {
		s.printResult(s.Eval(ctx, "open "+s.File))
	}

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		s.CommandHistory = append(s.CommandHistory, line)

		switch line {
		case "exit", "quit":
			elapsed := time.Since(s.StartTime)
			fmt.Printf("\nSession ended. %d commands run in %s.\n",
				len(s.CommandHistory)-1, formatDuration(elapsed))
			return nil
		case "history":
			for i, cmd := range s.CommandHistory {
				fmt.Printf("  %d  %s\n", i+1, cmd)
			}
		default:
			s.printResult(s.Eval(ctx, line))
		}
	}

	return nil
}

func (s *Session) printResult(out string, err error) {
	if out != "" {
		fmt.Print(out)
		if !strings.HasSuffix(out, "\n") {
			fmt.Println()
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// Eval runs a single session command and returns its output.
func (s *Session) Eval(ctx context.Context, line string) (string, error) {
	cmd, arg := splitCommand(line)
	var buf bytes.Buffer

	var err error
	switch cmd {
	case "":
		return "", nil
	case "help":
		s.printHelp(&buf)
	case "open":
		err = s.open(&buf, arg)
	case "columns":
		err = s.columns(&buf)
	case "preview":
		err = s.preview(&buf, arg)
	case "boundary":
		s.Boundary, err = s.pickColumn(arg)
		if err == nil {
			fmt.Fprintf(&buf, "Boundary column: %s\n", s.Boundary)
		}
	case "group":
		s.Group, err = s.pickColumn(arg)
		if err == nil {
			fmt.Fprintf(&buf, "Group column: %s\n", s.Group)
		}
	case "out":
		err = s.setOutput(&buf, arg)
	case "status":
		s.status(&buf)
	case "split":
		err = s.split(ctx, &buf)
	default:
		err = fmt.Errorf("unknown command %q — type 'help' to list commands", cmd)
	}
	return buf.String(), err
}

// splitCommand separates the command word from the rest of the line, which
// may contain spaces (column names, paths).
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func (s *Session) open(w io.Writer, path string) error {
	path = strings.Trim(path, `"'`)
	if path == "" {
		return fmt.Errorf("usage: open <file.csv|file.xls|file.xlsx>")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s — check that the path is correct", path)
		}
		return fmt.Errorf("could not read %s: %w", path, err)
	}

	key := cache.Key(data, path)
	t, _, ok := s.cache.Get(key)
	if !ok {
		t, err = loader.Load(bytes.NewReader(data), filepath.Base(path), s.Template.Load)
		if err != nil {
			return err
		}
		s.cache.Put(data, path, t)
	}

	s.table = t
	s.File = path
	if s.table.ColumnIndex(s.Boundary) < 0 {
		s.Boundary = ""
	}
	if s.table.ColumnIndex(s.Group) < 0 {
		s.Group = ""
	}

	fmt.Fprintf(w, "Loaded %s: %d rows, %d columns\n", filepath.Base(path), t.NumRows(), t.NumColumns())
	return output.NewWriterTo(w, output.FormatText).WriteTable(loader.Preview(t, DefaultPreviewRows))
}

func (s *Session) requireTable() error {
	if s.table == nil {
		return fmt.Errorf("no file loaded — use 'open <file>' first")
	}
	return nil
}

func (s *Session) columns(w io.Writer) error {
	if err := s.requireTable(); err != nil {
		return err
	}
	for i, c := range s.table.Columns {
		fmt.Fprintf(w, "  %2d  %-24s %s\n", i+1, c.Name, c.Kind)
	}
	return nil
}

func (s *Session) preview(w io.Writer, arg string) error {
	if err := s.requireTable(); err != nil {
		return err
	}
	n := DefaultPreviewRows
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			return fmt.Errorf("preview expects a positive row count, got %q", arg)
		}
		n = v
	}
	return output.NewWriterTo(w, output.FormatText).WriteTable(loader.Preview(s.table, n))
}

// pickColumn accepts a column name or its 1-based number from 'columns'.
func (s *Session) pickColumn(arg string) (string, error) {
	if err := s.requireTable(); err != nil {
		return "", err
	}
	if arg == "" {
		return "", fmt.Errorf("name a column — press Tab to list them")
	}
	if s.table.ColumnIndex(arg) >= 0 {
		return arg, nil
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= s.table.NumColumns() {
		return s.table.Columns[n-1].Name, nil
	}
	return "", fmt.Errorf("no column named %q — type 'columns' to list them", arg)
}

func (s *Session) setOutput(w io.Writer, arg string) error {
	if arg == "" || strings.EqualFold(arg, "zip") {
		s.OutputDir = ""
		fmt.Fprintln(w, "Output: ZIP archive")
		return nil
	}
	s.OutputDir = arg
	fmt.Fprintf(w, "Output directory: %s\n", arg)
	return nil
}

func (s *Session) status(w io.Writer) {
	show := func(v string) string {
		if v == "" {
			return "(not set)"
		}
		return v
	}
	fmt.Fprintf(w, "  file:      %s\n", show(s.File))
	fmt.Fprintf(w, "  boundary:  %s\n", show(s.Boundary))
	fmt.Fprintf(w, "  group:     %s\n", show(s.Group))
	if s.OutputDir == "" {
		fmt.Fprintf(w, "  output:    ZIP archive\n")
	} else {
		fmt.Fprintf(w, "  output:    %s\n", s.OutputDir)
	}
}

func (s *Session) split(ctx context.Context, w io.Writer) error {
	if err := s.requireTable(); err != nil {
		return err
	}

	req := s.Template
	req.Name = filepath.Base(s.File)
	req.Boundary = s.Boundary
	req.GroupBy = s.Group
	req.OutputDir = s.OutputDir
	if s.OutputDir == "" {
		req.ArchiveDir = filepath.Dir(s.File)
	}

	res, err := job.RunTable(ctx, s.table.Clone(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote %d file(s)", res.Report.Partitions)
	if res.OutputDir != "" {
		fmt.Fprintf(w, " to %s\n", res.OutputDir)
	} else {
		fmt.Fprintf(w, " into %s\n", res.ArchivePath)
	}
	if len(res.Report.Coerced) > 0 {
		fmt.Fprintf(w, "Stored as text: %s\n", strings.Join(res.Report.Coerced, ", "))
	}
	return nil
}

// Complete returns tab-completion candidates for the given input.
func (s *Session) Complete(input string) []string {
	trimmed := strings.TrimLeft(input, " ")
	cmd, arg, hasArg := strings.Cut(trimmed, " ")

	if !hasArg {
		var matches []string
		for _, c := range s.KnownCommands {
			if strings.HasPrefix(c, cmd) {
				matches = append(matches, c)
			}
		}
		sort.Strings(matches)
		return matches
	}

	switch cmd {
	case "boundary", "group":
		var matches []string
		for _, name := range s.columnNames() {
			if strings.HasPrefix(name, strings.TrimLeft(arg, " ")) {
				matches = append(matches, name)
			}
		}
		return matches
	case "out":
		if strings.HasPrefix("zip", arg) {
			return []string{"zip"}
		}
	}
	return nil
}

func (s *Session) columnNames() []string {
	if s.table == nil {
		return nil
	}
	return s.table.Names()
}

func (s *Session) printHelp(w io.Writer) {
	fmt.Fprintln(w, "Session commands:")
	fmt.Fprintln(w, "  open <file>        load a .csv, .xls or .xlsx file and show a preview")
	fmt.Fprintln(w, "  columns            list columns and their types")
	fmt.Fprintln(w, "  preview [n]        show the first n rows")
	fmt.Fprintln(w, "  boundary <column>  last column copied into each output (Tab completes)")
	fmt.Fprintln(w, "  group <column>     column whose values name the output files")
	fmt.Fprintln(w, "  out <dir>|zip      write into a directory, or into a ZIP archive")
	fmt.Fprintln(w, "  status             show the current selection")
	fmt.Fprintln(w, "  split              run the split")
	fmt.Fprintln(w, "  history            show command history")
	fmt.Fprintln(w, "  exit               leave the session")
}

func (s *Session) buildCompleter() []readline.PrefixCompleterInterface {
	columns := readline.PcItemDynamic(func(string) []string { return s.columnNames() })
	files := readline.PcItemDynamic(func(line string) []string { return listSpreadsheets(line) })

	var items []readline.PrefixCompleterInterface
	for _, cmd := range s.KnownCommands {
		switch cmd {
		case "boundary", "group":
			items = append(items, readline.PcItem(cmd, columns))
		case "open":
			items = append(items, readline.PcItem(cmd, files))
		case "out":
			items = append(items, readline.PcItem(cmd, readline.PcItem("zip")))
		default:
			items = append(items, readline.PcItem(cmd))
		}
	}
	return items
}

// listSpreadsheets offers the spreadsheets in the working directory.
func listSpreadsheets(string) []string {
	entries, err := os.ReadDir(".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && loader.Detect(e.Name()) != "" {
			names = append(names, e.Name())
		}
	}
	return names
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}
