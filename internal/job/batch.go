package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Batch is a YAML file listing several splits to run in order.
//
//	name: monthly
//	jobs:
//	  - id: hr
//	    input: exports/hr.xlsx
//	    boundary: Salary
//	    group: Dept
//	    output: /srv/reports/hr/${{ date.today }}
//	    on_failure: skip
type Batch struct {
	Name string     `yaml:"name" json:"name"`
	Jobs []BatchJob `yaml:"jobs" json:"jobs"`

	// dir resolves relative inputs; set by LoadBatch.
	dir string
}

// BatchJob is one entry of a Batch. An empty Output means archive mode,
// with the archive saved next to the input.
type BatchJob struct {
	ID        string `yaml:"id" json:"id"`
	Input     string `yaml:"input" json:"input"`
	Boundary  string `yaml:"boundary" json:"boundary"`
	Group     string `yaml:"group" json:"group"`
	Output    string `yaml:"output,omitempty" json:"output,omitempty"`
	Atomic    bool   `yaml:"atomic,omitempty" json:"atomic,omitempty"`
	OnFailure string `yaml:"on_failure,omitempty" json:"onFailure,omitempty"`
}

// JobResult is the outcome of one batch job.
type JobResult struct {
	ID     string  `json:"id"`
	Status string  `json:"status"` // "ok", "error", "skipped"
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// LoadBatch reads and parses a batch YAML file.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("batch file not found: %s — check that the path is correct: %w", path, err)
		}
		return nil, fmt.Errorf("could not read batch file %s: %w", path, err)
	}

	b, err := ParseBatch(data)
	if err != nil {
		return nil, err
	}
	b.dir = filepath.Dir(path)
	return b, nil
}

// ParseBatch parses a batch from YAML bytes.
func ParseBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid batch YAML: %w", err)
	}
	if err := validateBatch(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

func validateBatch(b *Batch) error {
	if b.Name == "" {
		return fmt.Errorf("batch is missing a 'name' field")
	}
	if len(b.Jobs) == 0 {
		return fmt.Errorf("batch %q has no jobs defined", b.Name)
	}

	seen := make(map[string]bool)
	for i, j := range b.Jobs {
		if j.ID == "" {
			return fmt.Errorf("job %d is missing an 'id' field", i+1)
		}
		if seen[j.ID] {
			return fmt.Errorf("duplicate job ID %q — each job must have a unique ID", j.ID)
		}
		seen[j.ID] = true

		if j.Input == "" {
			return fmt.Errorf("job %q is missing an 'input' field", j.ID)
		}
		switch j.OnFailure {
		case "", "stop", "skip":
		default:
			return fmt.Errorf("job %q: on_failure must be 'stop' or 'skip', got %q", j.ID, j.OnFailure)
		}
	}
	return nil
}

// Runner executes batches. Template supplies the settings shared by every
// job (digit limit, CSV encoding, progress).
type Runner struct {
	Template Request
	// OnStart, if set, is called before each job.
	OnStart func(i, n int, j BatchJob)

	outputs map[string]string
}

// Run executes the jobs in order. A failing job stops the batch unless it
// says on_failure: skip; the jobs after a stop are reported as skipped.
func (r *Runner) Run(ctx context.Context, b *Batch) ([]JobResult, error) {
	r.outputs = make(map[string]string)
	results := make([]JobResult, 0, len(b.Jobs))

	for i, j := range b.Jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if r.OnStart != nil {
			r.OnStart(i, len(b.Jobs), j)
		}

		req := r.Template
		req.Path = b.resolve(r.interpolate(j.Input))
		req.Name = ""
		req.Boundary = j.Boundary
		req.GroupBy = j.Group
		req.OutputDir = r.interpolate(j.Output)
		req.Atomic = req.Atomic || j.Atomic
		if req.OutputDir == "" {
			req.ArchiveDir = filepath.Dir(req.Path)
		}

		res, err := RunFile(ctx, req)
		if err != nil {
			results = append(results, JobResult{ID: j.ID, Status: "error", Error: err.Error()})
			if j.OnFailure == "skip" {
				slog.Warn("batch job failed, continuing", "job", j.ID, "error", err)
				continue
			}
			for _, rest := range b.Jobs[i+1:] {
				results = append(results, JobResult{ID: rest.ID, Status: "skipped"})
			}
			return results, fmt.Errorf("job %q failed: %w", j.ID, err)
		}

		if res.OutputDir != "" {
			r.outputs[j.ID] = res.OutputDir
		} else {
			r.outputs[j.ID] = res.ArchivePath
		}
		res.Archive = nil
		results = append(results, JobResult{ID: j.ID, Status: "ok", Result: res})
	}
	return results, nil
}

func (b *Batch) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || b.dir == "" {
		return path
	}
	return filepath.Join(b.dir, path)
}

var interpolationPattern = regexp.MustCompile(`\$\{\{\s*([^}]+)\s*\}\}`)

// interpolate expands ${{ date.today }}, ${{ date.now }}, ${{ env.NAME }}
// and ${{ jobs.<id>.output }}. Unknown expressions are left as written.
func (r *Runner) interpolate(s string) string {
	return interpolationPattern.ReplaceAllStringFunc(s, func(match string) string {
		inner := interpolationPattern.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		expr := strings.TrimSpace(inner[1])

		switch {
		case expr == "date.today":
			return now().Format("2006-01-02")
		case expr == "date.now":
			return now().Format("20060102-150405")
		case strings.HasPrefix(expr, "env."):
			return os.Getenv(strings.TrimPrefix(expr, "env."))
		case strings.HasPrefix(expr, "jobs."):
			parts := strings.Split(expr, ".")
			if len(parts) == 3 && parts[2] == "output" {
				if out, ok := r.outputs[parts[1]]; ok {
					return out
				}
			}
		}
		return match
	})
}
