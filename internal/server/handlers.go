package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/export"
	"github.com/ziadkadry99/sitesmith/internal/pipeline"
	"github.com/ziadkadry99/sitesmith/internal/preview"
)

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

type generateResponse struct {
	Status   string             `json:"status"`
	Document *document.Document `json:"document,omitempty"`
	Stats    *pipeline.Stats    `json:"stats,omitempty"`
}

type documentResponse struct {
	Document *document.Document    `json:"document"`
	History  document.HistoryState `json:"history"`
}

type updateRequest struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
}

type historyResponse struct {
	Applied bool                  `json:"applied"`
	History document.HistoryState `json:"history"`
}

type statusResponse struct {
	Generating bool            `json:"generating"`
	LastError  string          `json:"lastError,omitempty"`
	LastStats  *pipeline.Stats `json:"lastStats,omitempty"`
}

type imagesResponse struct {
	Images  []document.ImageAsset  `json:"images"`
	Favicon *document.FaviconAsset `json:"favicon,omitempty"`
}

// handleGenerate validates the request and starts a run. With ?wait=true
// it blocks and returns the document; otherwise it answers 202 and the
// client follows /ws/progress.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req document.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Normalize(s.cfg.DefaultLanguage)
	if err := req.Validate(s.cfg.MaxImageCount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Session.BeginGeneration(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	s.runs.Add(1)
	if r.URL.Query().Get("wait") == "true" {
		doc, stats, err := s.runGeneration(r.Context(), req)
		if err != nil {
			writeJSON(w, statusForError(err), errorResponse{Error: userMessage(err), Category: string(apperr.Classify(err))})
			return
		}
		writeJSON(w, http.StatusOK, generateResponse{Status: "done", Document: doc, Stats: stats})
		return
	}

	go s.runGeneration(s.baseCtx, req)
	writeJSON(w, http.StatusAccepted, generateResponse{Status: "started"})
}

// runGeneration owns the generation flag for its duration.
func (s *Server) runGeneration(ctx context.Context, req document.GenerationRequest) (*document.Document, *pipeline.Stats, error) {
	defer s.runs.Done()
	defer s.deps.Session.EndGeneration()

	doc, stats, err := s.deps.Generator.GenerateWithReporter(ctx, req, s.deps.Hub)
	s.setOutcome(stats, err)
	if err != nil {
		return nil, stats, err
	}
	s.deps.Session.Publish(doc)
	return doc, stats, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := statusResponse{
		Generating: s.deps.Session.Generating(),
		LastError:  s.lastError,
		LastStats:  s.lastStats,
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.deps.Session.Snapshot()
	if doc == nil {
		writeError(w, http.StatusNotFound, apperr.ErrNothingGenerated.Error())
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Document: doc, History: s.deps.Session.History()})
}

// handleUpdateDocument is the manual "update preview" action.
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	changed, err := s.deps.Session.Edit(req.HTML, req.CSS)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Applied: changed, History: s.deps.Session.History()})
}

// handleDeleteDocument starts over: the session and the stored record are
// both cleared.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Session.Generating() {
		writeError(w, http.StatusConflict, document.ErrGenerationInProgress.Error())
		return
	}
	s.deps.Session.Clear()
	if s.deps.Autosaver != nil {
		if err := s.deps.Autosaver.Flush(r.Context()); err != nil {
			s.deps.Logger.Warn().Err(err).Msg("clearing saved state failed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Session.History())
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	applied := s.deps.Session.Undo()
	writeJSON(w, http.StatusOK, historyResponse{Applied: applied, History: s.deps.Session.History()})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	applied := s.deps.Session.Redo()
	writeJSON(w, http.StatusOK, historyResponse{Applied: applied, History: s.deps.Session.History()})
}

const emptyPreview = `<!DOCTYPE html><html><head><meta charset="utf-8"></head>` +
	`<body style="font-family:sans-serif;color:#888;display:grid;place-items:center;height:90vh">` +
	`<p>Your website preview will appear here.</p></body></html>`

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Security-Policy", preview.ContentSecurityPolicy)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	doc := s.deps.Session.Snapshot()
	if doc == nil {
		w.Write([]byte(emptyPreview))
		return
	}
	page, err := preview.Render(doc)
	if err != nil {
		s.deps.Logger.Warn().Err(err).Msg("preview render failed")
		http.Error(w, "preview unavailable", http.StatusInternalServerError)
		return
	}
	w.Write([]byte(page))
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	doc := s.deps.Session.Snapshot()
	if doc == nil {
		writeError(w, http.StatusNotFound, apperr.ErrNothingGenerated.Error())
		return
	}
	text := doc.HTML
	if kind == preview.SourceCSS {
		text = doc.CSS
	}
	out, err := preview.Source(kind, text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	doc := s.deps.Session.Snapshot()
	if doc == nil {
		writeJSON(w, http.StatusOK, imagesResponse{Images: []document.ImageAsset{}})
		return
	}
	images := doc.Images
	if images == nil {
		images = []document.ImageAsset{}
	}
	writeJSON(w, http.StatusOK, imagesResponse{Images: images, Favicon: doc.Favicon})
}

// handleExport buffers the archive so failures can still set a status.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Assembler.Export(r.Context(), s.deps.Session.Snapshot(), &buf); err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: userMessage(err)})
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.ArchiveName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func statusForError(err error) int {
	var pre *apperr.ExportPreconditionError
	switch {
	case errors.As(err, &pre):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrExportInProgress), errors.Is(err, document.ErrGenerationInProgress):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	var fatal *apperr.FatalPipelineError
	if errors.As(err, &fatal) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func userMessage(err error) string {
	if errors.Is(err, export.ErrExportInProgress) {
		return "An export is already running."
	}
	return apperr.UserMessage(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
