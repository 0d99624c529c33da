// Package preview provides the "splittable preview" command.
package preview

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/loader"
	"github.com/yangming0322/splittable/internal/output"
)

type previewResult struct {
	File    string              `json:"file"`
	Rows    int                 `json:"rows"`
	Preview output.TablePreview `json:"preview"`
}

// NewCommand returns the preview subcommand.
func NewCommand() *cobra.Command {
	var (
		rows     int
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the columns and first rows of a spreadsheet",
		Long: `Show the column names, their inferred types and the first rows of a
.csv, .xls or .xlsx file, to pick the boundary and group columns for a split.`,
		Args: output.UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			if rows <= 0 {
				return fmt.Errorf("%w: --rows must be positive, got %d", output.ErrUsage, rows)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts := loader.Options{CSVEncoding: cfg.CSV.Encoding}
			if encoding != "" {
				opts.CSVEncoding = encoding
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("file not found: %s — check that the path is correct: %w", path, err)
				}
				return fmt.Errorf("could not open %s: %w", path, err)
			}
			defer f.Close()

			t, err := loader.Load(f, filepath.Base(path), opts)
			if err != nil {
				return err
			}
			head := loader.Preview(t, rows)

			if jsonFlag {
				return output.PrintJSON("preview", previewResult{
					File:    filepath.Base(path),
					Rows:    t.NumRows(),
					Preview: output.NewTablePreview(head),
				})
			}

			var buf bytes.Buffer
			fmt.Fprintf(&buf, "%s: %d rows, %d columns\n\n", filepath.Base(path), t.NumRows(), t.NumColumns())
			for i, c := range t.Columns {
				fmt.Fprintf(&buf, "  %2d  %-24s %s\n", i+1, c.Name, c.Kind)
			}
			fmt.Fprintln(&buf)
			if err := output.NewWriterTo(&buf, output.FormatText).WriteTable(head); err != nil {
				return err
			}

			content := buf.String()
			if output.ShouldPage(content, output.TerminalHeight()) {
				return output.Page(content)
			}
			fmt.Print(content)
			return nil
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of rows to show")
	cmd.Flags().StringVar(&encoding, "encoding", "", "CSV encoding: auto | utf-8 | gbk | gb18030")

	return cmd
}
