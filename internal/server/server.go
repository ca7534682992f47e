// Package server exposes the pipeline over HTTP: multipart document upload
// and form-based querying, mirroring a conventional RAG backend API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"docusage/internal/config"
	"docusage/internal/helper"
	"docusage/internal/models"
	"docusage/internal/rag"
)

// maxUploadBytes caps a whole multipart upload at 50MB.
const maxUploadBytes = 50 << 20

// Pipeline is the slice of the orchestrator the server needs.
type Pipeline interface {
	Ingest(ctx context.Context, paths []string) (*models.IngestReport, error)
	Answer(ctx context.Context, question string) (*models.Answer, error)
}

// Server routes HTTP requests into the pipeline. Uploaded files live in
// UploadDir only for the duration of the ingestion call.
type Server struct {
	pipeline Pipeline
	cfg      *config.ServerConfig
}

func New(pipeline Pipeline, cfg *config.ServerConfig) *Server {
	return &Server{pipeline: pipeline, cfg: cfg}
}

// Handler builds the route table wrapped in CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/api/rag/upload-docs", s.handleUpload)
	mux.HandleFunc("/api/rag/query", s.handleQuery)
	return s.cors(mux)
}

// Run creates the upload directory and serves until the listener fails.
func (s *Server) Run() error {
	if err := helper.CreateFolder(s.cfg.UploadDir); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	log.Info().Str("addr", s.cfg.Addr).Msg("Server listening")
	return http.ListenAndServe(s.cfg.Addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the DocuSage backend."})
}

// handleUpload accepts one or more files as multipart/form-data, saves them
// under the upload dir, ingests them as one batch, then removes them.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		httpError(w, http.StatusBadRequest, "no valid files to process")
		return
	}

	paths := make([]string, 0, len(files))
	defer func() {
		for _, p := range paths {
			if err := os.Remove(p); err != nil {
				log.Warn().Err(err).Str("path", p).Msg("Cleanup failed for uploaded file")
			}
		}
	}()

	for _, fh := range files {
		path, err := s.saveUpload(fh)
		if err != nil {
			httpError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save %s", fh.Filename))
			return
		}
		paths = append(paths, path)
	}

	report, err := s.pipeline.Ingest(r.Context(), paths)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rag.ErrNoChunks) {
			status = http.StatusBadRequest
		}
		httpError(w, status, fmt.Sprintf("ingestion failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Successfully ingested %d documents.", report.Ingested),
		"report":  report,
	})
}

// saveUpload writes the uploaded file under a unique name that keeps the
// original extension, since extraction dispatches on it.
func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	id, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.UploadDir, id+filepath.Ext(fh.Filename))

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// handleQuery answers a question posted as the form field "user_input".
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	question := r.FormValue("user_input")
	answer, err := s.pipeline.Answer(r.Context(), question)
	if err != nil {
		if errors.Is(err, rag.ErrBlankQuestion) {
			httpError(w, http.StatusBadRequest, "query cannot be empty")
			return
		}
		httpError(w, http.StatusInternalServerError, "query handling failed")
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// cors allows the configured origins; an empty list allows any origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

func httpError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
