package watch

import (
	"context"
	"path/filepath"

	"github.com/yangming0322/splittable/internal/job"
)

// SplitHandler returns a handler that splits each matched file with the
// rule's columns. template carries the shared settings such as the digit
// limit and CSV encoding.
func SplitHandler(ctx context.Context, template job.Request) EventHandler {
	return func(path string, rule Rule) error {
		req := template
		req.Path = path
		req.Name = ""
		req.Boundary = rule.Boundary
		req.GroupBy = rule.Group
		req.OutputDir = rule.Output
		req.Atomic = template.Atomic || rule.Atomic
		if rule.Output == "" {
			req.ArchiveDir = filepath.Dir(path)
		}
		_, err := job.RunFile(ctx, req)
		return err
	}
}
