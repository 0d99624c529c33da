// Package cmd contains all CLI commands for the splittable binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/cmd/batch"
	"github.com/yangming0322/splittable/cmd/completion"
	cmdconfig "github.com/yangming0322/splittable/cmd/config"
	"github.com/yangming0322/splittable/cmd/doctor"
	"github.com/yangming0322/splittable/cmd/preview"
	"github.com/yangming0322/splittable/cmd/scan"
	"github.com/yangming0322/splittable/cmd/serve"
	"github.com/yangming0322/splittable/cmd/shell"
	"github.com/yangming0322/splittable/cmd/split"
	"github.com/yangming0322/splittable/cmd/version"
	cmdwatch "github.com/yangming0322/splittable/cmd/watch"
	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/logging"
	"github.com/yangming0322/splittable/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
	configFile string
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "splittable",
		Short: "Split a spreadsheet into one workbook per group",
		Long: `splittable — split one spreadsheet into many.

Reads a .csv, .xls or .xlsx file, keeps the columns up to a boundary column,
and writes one .xlsx workbook per distinct value of a group column, either
into a folder or into a single ZIP archive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetFile(configFile)
			cfg, err := config.Load()
			if err != nil {
				if !repairsConfig(cmd) {
					return fmt.Errorf("could not load configuration: %w — fix the file or run 'splittable config reset'", err)
				}
				color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: %v\n", err)
				logging.Setup("info", "text", os.Stderr)
				return nil
			}

			if noColor || !cfg.Output.Color {
				color.NoColor = true
			}
			if jsonOutput {
				os.Setenv("SPLITTABLE_JSON", "true")
			}

			level := cfg.Log.Level
			if verbose {
				level = "debug"
			}
			logging.Setup(level, cfg.Log.Format, os.Stderr)
			return nil
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.splittable/config.yaml)")

	rootCmd.SetFlagErrorFunc(output.UsageFlagError)

	// Register subcommands
	rootCmd.AddCommand(split.NewCommand())
	rootCmd.AddCommand(preview.NewCommand())
	rootCmd.AddCommand(scan.NewCommand())
	rootCmd.AddCommand(shell.NewCommand())
	rootCmd.AddCommand(batch.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(serve.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// repairsConfig reports whether cmd must run even when the config file is
// broken, so the user can inspect or reset it.
func repairsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "config", "doctor":
			return true
		}
	}
	return false
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	code := output.ExitCodeFor(err)
	if jsonOutput {
		output.PrintJSONError(cmd.Name(), err, code)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(code)
}
