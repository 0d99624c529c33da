// Package scan provides the "splittable scan" command for finding spreadsheets to split.
package scan

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/config"
	fslib "github.com/yangming0322/splittable/internal/fs"
	"github.com/yangming0322/splittable/internal/loader"
	"github.com/yangming0322/splittable/internal/output"
)

type scanEntry struct {
	fslib.FileInfo
	Rows    int      `json:"rows,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// NewCommand returns the scan subcommand.
func NewCommand() *cobra.Command {
	var (
		recursive bool
		exts      []string
		columns   bool
	)
	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "List the spreadsheets in a directory",
		Long: `List the .csv, .xls and .xlsx files in a directory. With --columns each
file is loaded and its row count and column names are shown, to find the
boundary and group columns without opening every file.`,
		Args: output.UsageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			files, err := fslib.Scan(dir, fslib.ScanOptions{Recursive: recursive, Extensions: exts})
			if err != nil {
				return err
			}

			entries := make([]scanEntry, len(files))
			var total int64
			for i, f := range files {
				entries[i] = scanEntry{FileInfo: f}
				total += f.Size
			}
			if columns {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				opts := loader.Options{CSVEncoding: cfg.CSV.Encoding}
				for i := range entries {
					describe(&entries[i], opts)
				}
			}

			if jsonFlag {
				return output.PrintJSON("scan", entries)
			}

			fmt.Printf("Found: %d spreadsheet(s) (%s)\n\n", len(entries), fslib.FormatSize(total))
			if len(entries) == 0 {
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			if columns {
				fmt.Fprintf(w, "NAME\tSIZE\tROWS\tCOLUMNS\n")
			} else {
				fmt.Fprintf(w, "NAME\tFORMAT\tSIZE\tMODIFIED\tPATH\n")
			}
			for _, e := range entries {
				if !columns {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						e.Name, e.Format, fslib.FormatSize(e.Size), e.ModifiedAt.Format("2006-01-02"), e.Path)
					continue
				}
				if e.Error != "" {
					fmt.Fprintf(w, "%s\t%s\t-\t%s\n", e.Name, fslib.FormatSize(e.Size), color.RedString(e.Error))
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Name, fslib.FormatSize(e.Size), e.Rows, strings.Join(e.Columns, ", "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Scan subdirectories")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Filter by extension (e.g., .csv,.xlsx)")
	cmd.Flags().BoolVar(&columns, "columns", false, "Load each file and show its rows and columns")
	return cmd
}

func describe(e *scanEntry, opts loader.Options) {
	f, err := os.Open(e.Path)
	if err != nil {
		e.Error = err.Error()
		return
	}
	defer f.Close()

	t, err := loader.Load(f, e.Name, opts)
	if err != nil {
		e.Error = err.Error()
		return
	}
	e.Rows = t.NumRows()
	e.Columns = t.Names()
}
