package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docusage/internal/config"
	"docusage/internal/models"
	"docusage/internal/rag"
)

type fakePipeline struct {
	ingestErr error
	ingested  [][]string
	answer    *models.Answer
	answerErr error
	questions []string
}

func (f *fakePipeline) Ingest(_ context.Context, paths []string) (*models.IngestReport, error) {
	f.ingested = append(f.ingested, paths)
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return &models.IngestReport{Documents: len(paths), Ingested: len(paths), Chunks: 2 * len(paths)}, nil
}

func (f *fakePipeline) Answer(_ context.Context, question string) (*models.Answer, error) {
	f.questions = append(f.questions, question)
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	return f.answer, nil
}

func newTestServer(t *testing.T, p *fakePipeline) *Server {
	t.Helper()
	return New(p, &config.ServerConfig{UploadDir: t.TempDir()})
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakePipeline{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestUpload_IngestsSavedFiles(t *testing.T) {
	p := &fakePipeline{}
	s := newTestServer(t, p)

	body, contentType := multipartBody(t, "notes.txt", "some document text")
	req := httptest.NewRequest(http.MethodPost, "/api/rag/upload-docs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, p.ingested, 1)
	require.Len(t, p.ingested[0], 1)
	assert.True(t, strings.HasSuffix(p.ingested[0][0], ".txt"), "saved name keeps the extension")

	var data map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.Contains(t, data["message"], "Successfully ingested")
}

func TestUpload_NoFiles(t *testing.T) {
	s := newTestServer(t, &fakePipeline{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/rag/upload-docs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestUpload_EmptyBatchReportsBadRequest(t *testing.T) {
	p := &fakePipeline{ingestErr: rag.ErrNoChunks}
	s := newTestServer(t, p)

	body, contentType := multipartBody(t, "empty.txt", "")
	req := httptest.NewRequest(http.MethodPost, "/api/rag/upload-docs", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestQuery_ReturnsAnswer(t *testing.T) {
	p := &fakePipeline{answer: &models.Answer{
		Answer:  "One sentence.",
		Sources: []models.SourceDocument{{Content: "passage", Score: 0.9123}},
	}}
	s := newTestServer(t, p)

	form := url.Values{"user_input": {"What is X?"}}
	req := httptest.NewRequest(http.MethodPost, "/api/rag/query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer models.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "One sentence.", answer.Answer)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, 0.9123, answer.Sources[0].Score)
	assert.Equal(t, []string{"What is X?"}, p.questions)
}

func TestQuery_BlankQuestion(t *testing.T) {
	p := &fakePipeline{answerErr: rag.ErrBlankQuestion}
	s := newTestServer(t, p)

	form := url.Values{"user_input": {"   "}}
	req := httptest.NewRequest(http.MethodPost, "/api/rag/query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestQuery_WrongMethod(t *testing.T) {
	s := newTestServer(t, &fakePipeline{})
	req := httptest.NewRequest(http.MethodGet, "/api/rag/query", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Result().StatusCode)
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	s := New(&fakePipeline{}, &config.ServerConfig{
		UploadDir:      t.TempDir(),
		AllowedOrigins: []string{"http://localhost:8501"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/rag/query", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:8501", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_BlocksUnknownOrigin(t *testing.T) {
	s := New(&fakePipeline{}, &config.ServerConfig{
		UploadDir:      t.TempDir(),
		AllowedOrigins: []string{"http://localhost:8501"},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Result().Header.Get("Access-Control-Allow-Origin"))
}
