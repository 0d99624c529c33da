// Package batch provides the "splittable batch" command for running several
// splits described in a YAML file.
package batch

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/job"
	"github.com/yangming0322/splittable/internal/output"
)

type batchSummary struct {
	Name      string          `json:"name"`
	Jobs      []job.JobResult `json:"jobs"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
}

// NewCommand returns the batch subcommand.
func NewCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "batch <batch.yaml>",
		Short: "Run the splits listed in a YAML file",
		Long: `Run several splits in order. Each job names an input, the boundary and
group columns, and optionally an output directory; without one the ZIP
archive is saved next to the input. Relative inputs are resolved against the
batch file's directory.

Outputs may use ${{ date.today }}, ${{ date.now }}, ${{ env.NAME }} and
${{ jobs.<id>.output }}.

A failing job stops the batch unless it sets on_failure: skip.

Example batch.yaml:
  name: monthly
  jobs:
    - id: hr
      input: exports/hr.xlsx
      boundary: Salary
      group: Dept
      output: /srv/reports/hr/${{ date.today }}`,
		Args: output.UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			b, err := job.LoadBatch(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", output.ErrUsage, err)
			}

			if dryRun {
				if jsonFlag {
					return output.PrintJSON("batch", b)
				}
				color.New(color.FgGreen).Printf("Batch %q is valid: %d job(s)\n", b.Name, len(b.Jobs))
				for i, j := range b.Jobs {
					fmt.Printf("  %d. %s  %s  (boundary %s, group %s)\n", i+1, j.ID, j.Input, j.Boundary, j.Group)
				}
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			runner := &job.Runner{Template: job.FromConfig(cfg)}
			if !jsonFlag {
				runner.OnStart = func(i, n int, j job.BatchJob) {
					fmt.Printf("[%d/%d] %s: %s\n", i+1, n, j.ID, filepath.Base(j.Input))
				}
			}

			results, runErr := runner.Run(cmd.Context(), b)
			summary := batchSummary{Name: b.Name, Jobs: results}
			for _, r := range results {
				switch r.Status {
				case "ok":
					summary.Succeeded++
				case "error":
					summary.Failed++
				case "skipped":
					summary.Skipped++
				}
			}

			if jsonFlag {
				if runErr != nil {
					return runErr
				}
				return output.PrintJSON("batch", summary)
			}

			for _, r := range results {
				switch r.Status {
				case "ok":
					where := r.Result.OutputDir
					if where == "" {
						where = r.Result.ArchivePath
					}
					color.New(color.FgGreen).Printf("  ✓ %s → %s\n", r.ID, where)
				case "error":
					color.New(color.FgRed).Printf("  ✗ %s: %s\n", r.ID, r.Error)
				default:
					color.New(color.FgYellow).Printf("  - %s skipped\n", r.ID)
				}
			}
			fmt.Printf("\nBatch %q: %d succeeded, %d failed, %d skipped.\n",
				b.Name, summary.Succeeded, summary.Failed, summary.Skipped)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the batch file without running it")
	return cmd
}
