// Package watch provides the "splittable watch" CLI commands for drop-folder splitting.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/job"
	"github.com/yangming0322/splittable/internal/output"
	"github.com/yangming0322/splittable/internal/progress"
	w "github.com/yangming0322/splittable/internal/watch"
)

// activeFile records the configuration of the running watcher for "status".
const activeFile = "watch-active.yaml"

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Split spreadsheets dropped into a folder",
		Long: `Watch directories for new or modified spreadsheets and split them
according to rules.

Rules come from ~/.splittable/watch.yaml, or from flags for a single rule:

  directories: [/srv/drop]
  recursive: false
  rules:
    - id: payroll
      pattern: "payroll_*.xlsx"
      boundary: Salary
      group: Dept
      output: /srv/reports/payroll
      enabled: true

Example:
  splittable watch start
  splittable watch start /srv/drop --boundary Salary --group Dept --out /srv/reports
  splittable watch status
  splittable watch stop`,
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRulesCmd())

	return cmd
}

func newStartCmd() *cobra.Command {
	var (
		boundary   string
		group      string
		outDir     string
		extensions []string
		recursive  bool
		existing   bool
		debounce   int
	)

	cmd := &cobra.Command{
		Use:   "start [directory...]",
		Short: "Start watching directories and splitting dropped files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var wc w.WatchConfig
			if boundary != "" || group != "" {
				if len(args) == 0 {
					return fmt.Errorf("%w: name the directories to watch\n\nExample: splittable watch start /srv/drop --boundary Salary --group Dept", output.ErrUsage)
				}
				wc = w.WatchConfig{
					Directories: args,
					Recursive:   recursive,
					Rules: []w.Rule{{
						ID:         "default",
						Extensions: extensions,
						Boundary:   boundary,
						Group:      group,
						Output:     outDir,
						Enabled:    true,
					}},
				}
			} else {
				loaded, err := w.LoadConfig(config.RulesPath())
				if err != nil {
					return fmt.Errorf("%w: no rules given — pass --boundary and --group, or write %s: %v", output.ErrUsage, config.RulesPath(), err)
				}
				wc = *loaded
				if len(args) > 0 {
					wc.Directories = args
				}
				if cmd.Flags().Changed("recursive") {
					wc.Recursive = recursive
				}
			}
			if len(wc.Directories) == 0 {
				return fmt.Errorf("%w: no directories to watch", output.ErrUsage)
			}
			if err := w.ValidateRules(wc.Rules); err != nil {
				return fmt.Errorf("%w: %v", output.ErrUsage, err)
			}

			switch {
			case cmd.Flags().Changed("debounce"):
				wc.Debounce = debounce
			case wc.Debounce == 0:
				wc.Debounce = cfg.Watch.DebounceMs
			}

			watcher, err := w.New(wc)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			split := w.SplitHandler(ctx, job.FromConfig(cfg))
			watcher.Handler = func(path string, rule w.Rule) error {
				if err := split(path, rule); err != nil {
					color.New(color.FgRed).Printf("[%s] %s: %s\n", rule.ID, filepath.Base(path), err)
					return err
				}
				color.New(color.FgGreen).Printf("[%s] %s split\n", rule.ID, filepath.Base(path))
				return nil
			}

			dir := config.Dir()
			if err := w.WritePIDFile(dir); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not write PID file: %v\n", err)
			}
			defer w.RemovePIDFile(dir)

			active := filepath.Join(dir, activeFile)
			if err := w.SaveConfig(active, wc); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not record watcher config: %v\n", err)
			}
			defer os.Remove(active)

			if existing {
				spin := progress.NewSpinner("Splitting files already in the folders")
				spin.Start()
				n, err := watcher.ProcessExisting()
				if err != nil {
					spin.Stop("")
					return err
				}
				spin.Stop(fmt.Sprintf("%d existing file(s) checked", n))
			}

			fmt.Printf("Watching %s with %d rule(s)\n", strings.Join(wc.Directories, ", "), len(wc.Rules))
			fmt.Println("Press Ctrl+C to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Println("\nStopping watcher...")
				cancel()
			}()

			return watcher.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&boundary, "boundary", "b", "", "Boundary column for a single ad-hoc rule")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Group column for a single ad-hoc rule")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory for the ad-hoc rule (omit to save ZIPs next to the inputs)")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "Only split these extensions (default: .csv,.xls,.xlsx)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch directories recursively")
	cmd.Flags().BoolVar(&existing, "existing", false, "Also split files already in the directories")
	cmd.Flags().IntVar(&debounce, "debounce", 500, "Debounce interval in milliseconds (default from config)")

	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.Dir()
			pid, err := w.ReadPIDFile(dir)
			if err != nil {
				return fmt.Errorf("%w: no watcher running (PID file not found)", output.ErrUsage)
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				w.RemovePIDFile(dir)
				return fmt.Errorf("could not stop watcher (PID %d): %w", pid, err)
			}

			w.RemovePIDFile(dir)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return output.PrintJSON("watch stop", map[string]any{
					"stopped": true,
					"pid":     pid,
				})
			}

			fmt.Printf("Stopped watcher (PID %d)\n", pid)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current watcher status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.Dir()

			pid, err := w.ReadPIDFile(dir)
			running := err == nil

			// Signal 0 checks that the process still exists.
			if running {
				process, err := os.FindProcess(pid)
				if err != nil || process.Signal(syscall.Signal(0)) != nil {
					running = false
					w.RemovePIDFile(dir)
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")

			if !running {
				if jsonOut {
					return output.PrintJSON("watch status", map[string]any{"running": false})
				}
				fmt.Println("Watcher is not running")
				return nil
			}

			wc, _ := w.LoadConfig(filepath.Join(dir, activeFile))

			status := map[string]any{
				"running": true,
				"pid":     pid,
			}
			if wc != nil {
				status["directories"] = wc.Directories
				status["rules"] = len(wc.Rules)
				status["recursive"] = wc.Recursive
			}

			if jsonOut {
				return output.PrintJSON("watch status", status)
			}

			fmt.Printf("Watcher is running (PID %d)\n", pid)
			if wc != nil {
				fmt.Printf("  Directories: %s\n", strings.Join(wc.Directories, ", "))
				fmt.Printf("  Rules:       %d\n", len(wc.Rules))
				fmt.Printf("  Recursive:   %v\n", wc.Recursive)
			}
			return nil
		},
	}
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show and check the configured watch rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.RulesPath()
			wc, err := w.LoadConfig(path)
			if err != nil {
				return fmt.Errorf("%w: no watch rules found at %s", output.ErrUsage, path)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(wc)
			}

			fmt.Printf("Rules file:  %s\n", path)
			fmt.Printf("Directories: %s\n", strings.Join(wc.Directories, ", "))
			fmt.Printf("Recursive:   %v\n", wc.Recursive)
			fmt.Printf("Debounce:    %dms\n", wc.Debounce)
			fmt.Printf("Rules:       %d\n", len(wc.Rules))
			for _, r := range wc.Rules {
				out := r.Output
				if out == "" {
					out = "(zip next to input)"
				}
				fmt.Printf("  [%s] boundary=%s group=%s output=%s enabled=%v\n",
					r.ID, r.Boundary, r.Group, out, r.Enabled)
			}

			if err := w.ValidateRules(wc.Rules); err != nil {
				color.New(color.FgRed).Printf("\n%s\n", err)
				return nil
			}
			color.New(color.FgGreen).Println("\nRules are valid")
			return nil
		},
	}
}
