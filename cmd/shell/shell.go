// Package shell provides the "splittable shell" interactive command.
package shell

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/job"
	"github.com/yangming0322/splittable/internal/output"
	shellpkg "github.com/yangming0322/splittable/internal/shell"
)

// NewCommand creates the "shell" command.
func NewCommand() *cobra.Command {
	var evalCmd string

	cmd := &cobra.Command{
		Use:   "shell [file]",
		Short: "Start an interactive splitting session",
		Long: `Start an interactive session: open a spreadsheet, look at its columns,
pick the boundary and group columns with tab completion, and split.

The loaded file stays in memory, so several splits of the same file do not
parse it again.`,
		Args: output.UsageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			session, err := shellpkg.NewSession(job.FromConfig(cfg))
			if err != nil {
				return err
			}
			if len(args) == 1 {
				session.File = args[0]
			}

			if evalCmd != "" {
				if session.File != "" {
					if _, err := session.Eval(cmd.Context(), "open "+session.File); err != nil {
						return err
					}
				}
				out, err := session.Eval(cmd.Context(), evalCmd)
				if err != nil {
					return err
				}
				fmt.Print(out)
				return nil
			}
			return session.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&evalCmd, "eval", "", "Run a single session command and exit")
	return cmd
}
