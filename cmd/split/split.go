// Package split provides the "splittable split" command.
package split

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/job"
	"github.com/yangming0322/splittable/internal/output"
	"github.com/yangming0322/splittable/internal/progress"
)

// NewCommand returns the split subcommand.
func NewCommand() *cobra.Command {
	var (
		boundary   string
		group      string
		outDir     string
		archiveDir string
		atomic     bool
		digitLimit int
		encoding   string
	)

	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "Split a spreadsheet into one workbook per group",
		Long: `Split a .csv, .xls or .xlsx file into one .xlsx workbook per distinct
value of the group column. Each workbook keeps the columns from the first one
up to and including the boundary column.

With --out the workbooks are written into that folder (created if missing).
Without it they are packed into a ZIP archive named
表格拆分结果-<YYYYMMDD-HHMMSS>.zip, saved into --archive-dir or the current
directory.

Examples:
  splittable split staff.xlsx --boundary Salary --group Dept --out /srv/reports/by-dept
  splittable split export.csv -b Name -g Region --encoding gbk`,
		Args: output.UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			if boundary == "" || group == "" {
				return fmt.Errorf("%w: --boundary and --group are required\n\nExample: splittable split %s --boundary Salary --group Dept", output.ErrUsage, args[0])
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			req := job.FromConfig(cfg)
			req.Path = args[0]
			req.Boundary = boundary
			req.GroupBy = group
			req.OutputDir = outDir
			if cmd.Flags().Changed("atomic") {
				req.Atomic = atomic
			}
			if cmd.Flags().Changed("digit-limit") {
				req.DigitLimit = digitLimit
			}
			if encoding != "" {
				req.Load.CSVEncoding = encoding
			}
			if outDir == "" {
				if archiveDir == "" {
					archiveDir, err = os.Getwd()
					if err != nil {
						return fmt.Errorf("could not resolve the current directory: %w", err)
					}
				}
				req.ArchiveDir = archiveDir
			}

			bar := progress.NewPercent("Splitting")
			req.Progress = bar.Percent

			res, err := job.RunFile(cmd.Context(), req)
			if err != nil {
				return err
			}

			if jsonFlag {
				return output.PrintJSON("split", res)
			}

			bar.Finish(fmt.Sprintf("%d workbook(s) in %s", res.Report.Partitions, res.Elapsed))
			printReport(res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&boundary, "boundary", "b", "", "Last column copied into each workbook")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Column whose values name the output workbooks")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Absolute output directory (omit for a ZIP archive)")
	cmd.Flags().StringVar(&archiveDir, "archive-dir", "", "Where to save the ZIP archive (default: current directory)")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "Move workbooks into --out only when all were written")
	cmd.Flags().IntVar(&digitLimit, "digit-limit", 0, "Store integer columns with longer values as text (default from config)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "CSV encoding: auto | utf-8 | gbk | gb18030")

	return cmd
}

func printReport(res *job.Result) {
	green := color.New(color.FgGreen, color.Bold)
	if res.OutputDir != "" {
		green.Printf("Wrote %d workbook(s) to %s\n", res.Report.Partitions, res.OutputDir)
	} else {
		green.Printf("Wrote %d workbook(s) into %s\n", res.Report.Partitions, res.ArchivePath)
	}
	fmt.Printf("  Rows:  %d\n", res.Report.Rows)
	if len(res.Report.Coerced) > 0 {
		color.New(color.FgYellow).Printf("  Stored as text (more than the digit limit): %s\n", strings.Join(res.Report.Coerced, ", "))
	}
}
