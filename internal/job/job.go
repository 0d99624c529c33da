// Package job runs one split end to end: load the input, check the
// parameters, pick a sink and commit the outputs. The CLI, the shell, the
// watcher and the HTTP server all go through it.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yangming0322/splittable/internal/fs"
	"github.com/yangming0322/splittable/internal/loader"
	"github.com/yangming0322/splittable/internal/sink"
	"github.com/yangming0322/splittable/internal/splitter"
	"github.com/yangming0322/splittable/internal/table"
)

// Request describes one split.
type Request struct {
	// Path is the input file. Name, if set, is used for format detection
	// and messages instead of the base name of Path.
	Path string
	Name string

	Boundary string
	GroupBy  string

	// OutputDir selects directory mode. When empty the outputs are packed
	// into a ZIP archive.
	OutputDir string
	// ArchiveDir is where the archive is saved in archive mode. When empty
	// the archive is only returned in Result.Archive.
	ArchiveDir string
	// Atomic stages directory outputs and moves them into place only when
	// every partition was written.
	Atomic bool

	DigitLimit int
	Load       loader.Options
	Progress   func(pct int)
}

// Result describes a finished split.
type Result struct {
	Input       string           `json:"input"`
	Report      *splitter.Report `json:"report"`
	OutputDir   string           `json:"outputDir,omitempty"`
	ArchiveName string           `json:"archiveName,omitempty"`
	ArchivePath string           `json:"archivePath,omitempty"`
	Elapsed     string           `json:"elapsed"`

	// Archive holds the ZIP bytes in archive mode.
	Archive []byte `json:"-"`
}

var now = time.Now

func (r Request) displayName() string {
	if r.Name != "" {
		return r.Name
	}
	return filepath.Base(r.Path)
}

// RunFile loads req.Path and splits it. A bad destination is reported
// before the input is opened.
func RunFile(ctx context.Context, req Request) (*Result, error) {
	if req.OutputDir != "" {
		dir, err := fs.ValidateHostDestination(req.OutputDir)
		if err != nil {
			return nil, err
		}
		req.OutputDir = dir
	}

	f, err := os.Open(req.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s — check that the path is correct: %w", req.Path, err)
		}
		return nil, fmt.Errorf("could not open %s: %w", req.Path, err)
	}
	defer f.Close()

	t, err := loader.Load(f, req.displayName(), req.Load)
	if err != nil {
		return nil, err
	}
	return RunTable(ctx, t, req)
}

// RunTable splits an already loaded table. t is coerced in place, so
// callers holding a cached copy should pass a clone.
func RunTable(ctx context.Context, t *table.Table, req Request) (*Result, error) {
	start := now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := splitter.ValidateSplitParameters(t, req.Boundary, req.GroupBy); err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("%s: %w", req.displayName(), table.ErrEmptyInput)
	}

	opts := splitter.Options{
		Boundary:   req.Boundary,
		GroupBy:    req.GroupBy,
		DigitLimit: req.DigitLimit,
		Progress:   req.Progress,
	}
	log := slog.With("input", req.displayName(), "group", req.GroupBy, "boundary", req.Boundary)

	res := &Result{Input: req.displayName()}
	var err error
	if req.OutputDir != "" {
		err = runDir(t, opts, req, res)
	} else {
		err = runArchive(t, opts, req, res)
	}
	if err != nil {
		log.Debug("split failed", "error", err)
		return nil, err
	}

	res.Elapsed = now().Sub(start).Round(time.Millisecond).String()
	log.Debug("split finished", "partitions", res.Report.Partitions, "coerced", res.Report.Coerced)
	return res, nil
}

func runDir(t *table.Table, opts splitter.Options, req Request, res *Result) error {
	dir, err := fs.PrepareDestination(req.OutputDir)
	if err != nil {
		return err
	}
	res.OutputDir = dir

	if !req.Atomic {
		s, err := sink.NewDirSink(dir)
		if err != nil {
			return err
		}
		res.Report, err = splitter.Split(t, opts, s)
		return err
	}

	staged, err := sink.NewStagedDirSink(dir)
	if err != nil {
		return err
	}
	res.Report, err = splitter.Split(t, opts, staged)
	if err != nil {
		if abortErr := staged.Abort(); abortErr != nil {
			slog.Warn("could not remove staging directory", "error", abortErr)
		}
		return err
	}
	return staged.Commit()
}

func runArchive(t *table.Table, opts splitter.Options, req Request, res *Result) error {
	zs := sink.NewZipSink()
	report, err := splitter.Split(t, opts, zs)
	if err != nil {
		return err
	}
	res.Report = report

	data, err := zs.Bytes()
	if err != nil {
		return fmt.Errorf("could not build archive: %w", err)
	}
	res.Archive = data
	res.ArchiveName = sink.ArchiveName(now())

	if req.ArchiveDir == "" {
		return nil
	}
	if err := os.MkdirAll(req.ArchiveDir, 0755); err != nil {
		return fmt.Errorf("could not create %s: %w", req.ArchiveDir, err)
	}
	path := filepath.Join(req.ArchiveDir, res.ArchiveName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not save archive %s: %w", path, err)
	}
	res.ArchivePath = path
	return nil
}
