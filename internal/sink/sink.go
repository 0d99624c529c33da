// Package sink receives the serialized spreadsheets produced by a split,
// either as files in a directory or as entries of an in-memory ZIP archive.
package sink

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

// Sink accepts named payloads. Putting the same name twice replaces the
// earlier payload.
type Sink interface {
	Put(name string, data []byte) error
}

// ArchivePrefix is the base name of downloadable archives.
const ArchivePrefix = "表格拆分结果"

// ArchiveName returns the archive file name for a split completed at t.
func ArchiveName(t time.Time) string {
	return fmt.Sprintf("%s-%s.zip", ArchivePrefix, t.Format("20060102-150405"))
}

// DirSink writes each payload as a file in Dir.
type DirSink struct {
	Dir string
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory %s: %w", dir, err)
	}
	return &DirSink{Dir: dir}, nil
}

// Put writes data to Dir/name, replacing any existing file.
func (s *DirSink) Put(name string, data []byte) error {
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}

// StagedDirSink writes into a hidden staging directory and only moves the
// files into the destination on Commit.
type StagedDirSink struct {
	Dir     string
	staging string
	names   []string
	seen    map[string]bool
}

// NewStagedDirSink creates dir and a fresh staging directory inside it.
func NewStagedDirSink(dir string) (*StagedDirSink, error) {
	staging := filepath.Join(dir, ".splittable-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, fmt.Errorf("could not create staging directory %s: %w", staging, err)
	}
	return &StagedDirSink{Dir: dir, staging: staging, seen: make(map[string]bool)}, nil
}

// Put writes data into the staging directory.
func (s *StagedDirSink) Put(name string, data []byte) error {
	path := filepath.Join(s.staging, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if !s.seen[name] {
		s.seen[name] = true
		s.names = append(s.names, name)
	}
	return nil
}

// Commit moves every staged file into Dir and removes the staging directory.
func (s *StagedDirSink) Commit() error {
	for _, name := range s.names {
		if err := os.Rename(filepath.Join(s.staging, name), filepath.Join(s.Dir, name)); err != nil {
			return fmt.Errorf("could not move %s into %s: %w", name, s.Dir, err)
		}
	}
	return os.RemoveAll(s.staging)
}

// Abort discards everything written so far.
func (s *StagedDirSink) Abort() error {
	return os.RemoveAll(s.staging)
}

// ZipSink collects payloads in memory and encodes them as a DEFLATE ZIP.
type ZipSink struct {
	names   []string
	entries map[string][]byte
}

// NewZipSink returns an empty archive sink.
func NewZipSink() *ZipSink {
	return &ZipSink{entries: make(map[string][]byte)}
}

// Put stores data under name. A repeated name keeps its first position and
// takes the latest payload.
func (s *ZipSink) Put(name string, data []byte) error {
	if _, ok := s.entries[name]; !ok {
		s.names = append(s.names, name)
	}
	s.entries[name] = data
	return nil
}

// Names returns the entry names in insertion order.
func (s *ZipSink) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of distinct entries.
func (s *ZipSink) Len() int {
	return len(s.names)
}

// WriteTo encodes the archive to w.
func (s *ZipSink) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, name := range s.names {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return cw.n, fmt.Errorf("could not add %s to archive: %w", name, err)
		}
		if _, err := fw.Write(s.entries[name]); err != nil {
			return cw.n, fmt.Errorf("could not write %s to archive: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("could not finish archive: %w", err)
	}
	return cw.n, nil
}

// Bytes returns the encoded archive.
func (s *ZipSink) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
