package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yangming0322/splittable/cmd/version"
	"github.com/yangming0322/splittable/internal/job"
	"github.com/yangming0322/splittable/internal/loader"
	"github.com/yangming0322/splittable/internal/logging"
	"github.com/yangming0322/splittable/internal/output"
	"github.com/yangming0322/splittable/internal/sink"
	"github.com/yangming0322/splittable/internal/table"
)

const (
	defaultPreviewRows = 5
	maxPreviewRows     = 500
)

// PreviewResponse is returned by POST /api/preview.
type PreviewResponse struct {
	Token   string              `json:"token"`
	File    string              `json:"file"`
	Rows    int                 `json:"rows"`
	Preview output.TablePreview `json:"preview"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
		"cached":  s.cache.Len(),
	})
}

// handlePreview loads the uploaded file, caches the table and returns the
// column list with the first rows. The token lets /api/split reuse the
// parsed table.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	n := defaultPreviewRows
	if v := r.URL.Query().Get("rows"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, r, fmt.Errorf("%w: rows must be a positive integer", errBadForm))
			return
		}
		n = min(parsed, maxPreviewRows)
	}

	if err := s.parseForm(w, r); err != nil {
		respondError(w, r, err)
		return
	}
	data, name, err := readUpload(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	t, err := loader.Load(bytes.NewReader(data), name, s.opts.Template.Load)
	if err != nil {
		respondError(w, r, err)
		return
	}
	token := s.cache.Put(data, name, t)

	writeJSON(w, http.StatusOK, PreviewResponse{
		Token:   token,
		File:    name,
		Rows:    t.NumRows(),
		Preview: output.NewTablePreview(loader.Preview(t, n)),
	})
}

// handleSplit splits an uploaded file, or a previously previewed one named
// by token, and streams back the ZIP archive.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		respondError(w, r, err)
		return
	}

	var (
		t     *table.Table
		name  string
		token = r.FormValue("token")
	)
	if token != "" {
		cached, cachedName, ok := s.cache.Get(token)
		if !ok {
			respondError(w, r, errUnknownToken)
			return
		}
		t, name = cached, cachedName
	} else {
		data, uploadName, err := readUpload(r)
		if err != nil {
			respondError(w, r, err)
			return
		}
		t, err = loader.Load(bytes.NewReader(data), uploadName, s.opts.Template.Load)
		if err != nil {
			respondError(w, r, err)
			return
		}
		name = uploadName
	}

	jobID := uuid.NewString()
	log := logging.WithFields(r.Context(), "job", jobID, "file", name)

	req := s.opts.Template
	req.Name = name
	req.Boundary = r.FormValue("boundary")
	req.GroupBy = r.FormValue("group")
	req.OutputDir = ""
	req.ArchiveDir = ""
	req.Progress = nil

	res, err := job.RunTable(r.Context(), t, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if token != "" {
		s.cache.Invalidate(token)
	}
	log.Info("split served", "partitions", res.Report.Partitions, "bytes", len(res.Archive))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", contentDisposition(res.ArchiveName))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Archive)))
	w.Header().Set("X-Split-Job", jobID)
	w.Header().Set("X-Split-Partitions", strconv.Itoa(res.Report.Partitions))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Archive); err != nil {
		log.Warn("could not write archive", "error", err)
	}
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w (%d bytes)", errTooLarge, s.opts.MaxUploadBytes)
		}
		return fmt.Errorf("%w: %v", errBadForm, err)
	}
	return nil
}

func readUpload(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("could not read upload: %w", err)
	}
	return data, header.Filename, nil
}

// contentDisposition names the download. The archive name is not ASCII, so
// an ASCII fallback goes in filename and the real name in filename*.
func contentDisposition(name string) string {
	fallback := "split" + strings.TrimPrefix(name, sink.ArchivePrefix)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, url.PathEscape(name))
}
