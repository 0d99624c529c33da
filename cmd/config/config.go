// Package config provides the "splittable config" commands.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change split defaults",
		Long: `Inspect and change the defaults used by split, preview, shell, watch
and serve: the digit limit for long numbers, the CSV encoding, atomic
output, the HTTP listen address and upload limit, and logging.

Settings live in ~/.splittable/config.yaml (or the file given with --config).
Each key can be overridden for one run with an environment variable, e.g.
SPLITTABLE_DIGIT_LIMIT=12 or SPLITTABLE_CSV_ENCODING=gbk.`,
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newResetCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newEnvCommand())

	return cmd
}

func newInitCommand() *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file, asking for the split defaults",
		Long: `Ask for the digit limit, the CSV encoding used for exports without a
byte order mark, and the address 'splittable serve' listens on, then write
them to the config file. Press Enter to keep a value.

With --defaults nothing is asked and the built-in defaults are written.`,
		Args: output.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if defaults {
				if err := config.WizardNonInteractive(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote built-in defaults to %s\n", config.ConfigPath())
				return nil
			}
			return config.Wizard(cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Write the built-in defaults without asking")
	cmd.Flags().BoolVar(&defaults, "no-interactive", false, "Same as --defaults")
	cmd.Flags().MarkHidden("no-interactive")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the settings in effect",
		Args:  output.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if jsonFlag {
				return output.PrintJSON("config show", cfg)
			}

			fmt.Fprint(cmd.OutOrStdout(), config.ShowConfig())
			return nil
		},
	}
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a default and save it",
		Example: `  splittable config set digit_limit 15
  splittable config set csv.encoding gbk
  splittable config set output.atomic true`,
		Args:      output.UsageArgs(cobra.ExactArgs(2)),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			if err := config.Set(args[0], args[1]); err != nil {
				return fmt.Errorf("%w: %v", output.ErrUsage, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (saved to %s)\n", args[0], args[1], config.ConfigPath())
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print one setting and where it came from",
		Args:      output.UsageArgs(cobra.ExactArgs(1)),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsKnownKey(key) {
				return fmt.Errorf("%w: unknown key %q — one of: %s", output.ErrUsage, key, strings.Join(config.Keys(), ", "))
			}
			config.Load()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", key, config.Get(key), source(key))
			return nil
		},
	}
}

// source names where the value of key comes from.
func source(key string) string {
	if _, ok := os.LookupEnv(config.EnvName(key)); ok {
		return config.EnvName(key)
	}
	if viper.InConfig(key) {
		return "config file"
	}
	return "default"
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the config file so the built-in defaults apply",
		Args:  output.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ResetConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed the config file; built-in defaults apply")
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  output.UsageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the settings before running a split or the server",
		Args:  output.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			config.Load()

			issues := config.Validate()

			if jsonFlag {
				return output.PrintJSON("config validate", issues)
			}

			w := cmd.OutOrStdout()
			var errs, warnings int
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					errs++
					color.New(color.FgRed).Fprintf(w, "  ✗ %s\n", issue.Message)
				case "warning":
					warnings++
					color.New(color.FgYellow).Fprintf(w, "  ! %s\n", issue.Message)
				default:
					fmt.Fprintf(w, "  %s\n", issue.Message)
				}
				if issue.Fix != "" {
					fmt.Fprintf(w, "    run: %s\n", issue.Fix)
				}
			}

			if errs > 0 {
				return fmt.Errorf("%w: %d setting(s) are invalid", output.ErrUsage, errs)
			}
			if warnings > 0 {
				color.New(color.FgYellow).Fprintf(w, "Settings usable, %d warning(s)\n", warnings)
				return nil
			}
			color.New(color.FgGreen).Fprintln(w, "Settings are valid")
			return nil
		},
	}
}

func newEnvCommand() *cobra.Command {
	var shell string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the settings as SPLITTABLE_* variables",
		Long: `Print every setting as the environment variable that overrides it, for
containers, CI jobs or a systemd unit running 'splittable serve' or
'splittable watch start'.`,
		Args: output.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			config.Load()

			env := config.ToEnv()
			if jsonFlag {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(env)
			}

			keys := make([]string, 0, len(env))
			for k := range env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return writeEnv(cmd.OutOrStdout(), shell, keys, env)
		},
	}
	cmd.Flags().StringVar(&shell, "shell", "sh", "Syntax: sh | fish | powershell | dotenv")
	return cmd
}

func writeEnv(w io.Writer, shell string, keys []string, env map[string]string) error {
	var line string
	switch shell {
	case "sh", "bash", "zsh":
		line = "export %s=%q\n"
	case "fish":
		line = "set -gx %s %q\n"
	case "powershell":
		line = "$env:%s = %q\n"
	case "dotenv":
		line = "%s=%q\n"
	default:
		return fmt.Errorf("%w: unsupported shell %q — use sh, fish, powershell or dotenv", output.ErrUsage, shell)
	}
	for _, k := range keys {
		fmt.Fprintf(w, line, k, env[k])
	}
	return nil
}
