package web

import (
	"errors"
	"net/http"

	"github.com/yangming0322/splittable/internal/fs"
	"github.com/yangming0322/splittable/internal/loader"
	"github.com/yangming0322/splittable/internal/logging"
	"github.com/yangming0322/splittable/internal/splitter"
	"github.com/yangming0322/splittable/internal/table"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var (
	errNoFile       = errors.New("no file provided: send the spreadsheet as the multipart field 'file' or pass a preview 'token'")
	errUnknownToken = errors.New("unknown or expired preview token: upload the file again")
	errTooLarge     = errors.New("upload exceeds the configured size limit")
	errBadForm      = errors.New("invalid multipart form")
)

// classify maps err to an HTTP status and a machine-readable code.
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, errNoFile), errors.Is(err, errBadForm):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errUnknownToken):
		return http.StatusNotFound, "unknown_token"
	case errors.Is(err, splitter.ErrMissingBoundaryColumn),
		errors.Is(err, splitter.ErrMissingGroupColumn):
		return http.StatusBadRequest, "missing_column"
	case errors.Is(err, fs.ErrInvalidDestinationPath):
		return http.StatusBadRequest, "invalid_destination"
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, loader.ErrParse):
		return http.StatusUnprocessableEntity, "parse_error"
	case errors.Is(err, table.ErrEmptyInput):
		return http.StatusUnprocessableEntity, "empty_input"
	case errors.Is(err, splitter.ErrSerialization):
		return http.StatusInternalServerError, "serialization_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError logs err with the request ID and writes the JSON error body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "status", status, "code", code, "error", err)
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "status", status, "code", code, "error", err)
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
