package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getflowcheck/flowcheck/pkg/bundle"
)

// maxImportBody caps the size of uploaded bundle documents.
const maxImportBody = 32 << 20 // 32 MiB

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
}

// ImportRequest is the POST /export/import body.
type ImportRequest struct {
	Bundle  json.RawMessage      `json:"bundle"`
	Options bundle.ImportOptions `json:"options"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if !s.startTime.IsZero() {
		resp.Uptime = time.Since(s.startTime).Round(time.Second).String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// idParams maps each entity type to the query parameter carrying its
// id filter.
var idParams = map[bundle.EntityType]string{
	bundle.TypeFlowConfigs:  "flowConfigIds",
	bundle.TypeQuestionSets: "questionSetIds",
	bundle.TypeTags:         "tagIds",
	bundle.TypeTests:        "testIds",
	bundle.TypeRuns:         "runIds",
}

// handleExport handles GET /export. The types parameter is required;
// per-type id parameters optionally narrow the selection.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var types []bundle.EntityType
	for _, raw := range query["types"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, ok := bundle.ParseEntityType(part)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Unknown entity type %q", part))
				return
			}
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "At least one entity type is required")
		return
	}

	ids := make(map[bundle.EntityType][]string)
	for t, param := range idParams {
		for _, raw := range query[param] {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					ids[t] = append(ids[t], part)
				}
			}
		}
	}

	b, err := s.exporter.Export(r.Context(), ownerFrom(r.Context()), bundle.ExportRequest{
		Types: types,
		IDs:   ids,
	})
	if err != nil {
		s.log.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export_failed", "Export could not be completed")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handlePreview handles POST /export/preview: validate the uploaded
// bundle and report conflicts without mutating anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Could not read request body")
		return
	}

	b, err := bundle.Validate(doc)
	if err != nil {
		writeBundleError(w, err)
		return
	}

	res, err := s.detector.Preview(r.Context(), ownerFrom(r.Context()), b)
	if err != nil {
		s.log.Error("preview failed", "error", err)
		writeError(w, http.StatusInternalServerError, "preview_failed", "Preview could not be completed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleImport handles POST /export/import: validate, then execute the
// import with the requested conflict strategy.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Could not read request body")
		return
	}

	var req ImportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON")
		return
	}
	if len(req.Bundle) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "A bundle is required")
		return
	}
	if _, err := bundle.ParseStrategy(string(req.Options.ConflictStrategy)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	b, err := bundle.Validate(req.Bundle)
	if err != nil {
		writeBundleError(w, err)
		return
	}

	res, err := s.importer.Execute(r.Context(), ownerFrom(r.Context()), b, req.Options)
	if err != nil {
		s.log.Error("import failed", "error", err)
		writeError(w, http.StatusInternalServerError, "import_failed", "Import could not be completed")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// writeBundleError maps bundle validation failures onto 400 responses,
// distinguishing version rejections from shape problems.
func writeBundleError(w http.ResponseWriter, err error) {
	var verErr *bundle.VersionError
	if errors.As(err, &verErr) {
		writeError(w, http.StatusBadRequest, "unsupported_version", verErr.Error())
		return
	}
	var shapeErr *bundle.ShapeError
	if errors.As(err, &shapeErr) {
		writeError(w, http.StatusBadRequest, "invalid_bundle", shapeErr.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_bundle", err.Error())
}
