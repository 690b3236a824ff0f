package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/jobs"
	"Outreach/backend/go/internal/rag_service/rag/classifier"
	"Outreach/backend/go/internal/rag_service/rag/embeddings"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/loaders"
	"Outreach/backend/go/internal/rag_service/rag/schema"
	"Outreach/backend/go/internal/rag_service/rag/splitters"
	"Outreach/backend/go/internal/rag_service/rag/storages/docstore"
	"Outreach/backend/go/internal/rag_service/rag/storages/vectorstore"
	"Outreach/backend/go/internal/rag_service/service"
	"Outreach/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDim    = 4
	testSecret = "test-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type constProvider struct{}

func (constProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0, 1, 0, 0}, nil
}

func (constProvider) Close() error { return nil }

type fakeJobs struct {
	submitted []string
	opts      []service.IngestOptions
}

func (f *fakeJobs) Submit(ctx context.Context, buf []byte, fileName, contentType string, opts service.IngestOptions) (*models.JobState, error) {
	f.submitted = append(f.submitted, fileName)
	f.opts = append(f.opts, opts)
	return &models.JobState{JobID: "job-1", Status: models.JobStatusQueued, FileName: fileName}, nil
}

func (f *fakeJobs) Status(ctx context.Context, jobID string) (*models.JobState, error) {
	if jobID != "job-1" {
		return nil, jobs.ErrJobNotFound
	}
	return &models.JobState{JobID: jobID, Status: models.JobStatusSucceeded, DocumentID: "doc-9"}, nil
}

type testAPI struct {
	router *gin.Engine
	jobs   *fakeJobs
	token  string
}

func newTestAPI(t *testing.T, withAuth bool, opts ...HandlerOption) *testAPI {
	t.Helper()
	embedder := embeddings.NewBatchEmbedder(constProvider{}, embeddings.WithDimension(testDim), embeddings.WithBatchDelay(0))
	svc := service.NewRagService(
		loaders.NewRegistry(),
		classifier.NewKeywordClassifier(),
		splitters.NewDefaultCharSplitter(),
		embedder,
		vectorstore.NewMemoryStore(testDim),
		docstore.NewInMemoryDocumentStore(),
		service.Config{TopK: 5},
		logger.Discard(),
	)

	fj := &fakeJobs{}
	opts = append([]HandlerOption{WithJobs(fj)}, opts...)
	h := NewHandler(svc, logger.Discard(), opts...)

	r := gin.New()
	var auth gin.HandlerFunc
	if withAuth {
		auth = AuthMiddleware(testSecret)
	}
	RegisterRoutes(r, h, auth)

	token, err := IssueToken(testSecret, "ops@example.com", time.Hour)
	require.NoError(t, err)
	return &testAPI{router: r, jobs: fj, token: token}
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, target, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, v interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestUploadListGetDelete(t *testing.T) {
	a := newTestAPI(t, false)

	w := a.do(uploadRequest(t, "/api/v1/documents", "handbook.txt", strings.Repeat("a", 1700), map[string]string{"uploadedBy": "sam"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res service.IngestResult
	decode(t, w, &res)
	assert.Equal(t, 3, res.ChunkCount)
	assert.Equal(t, models.DocumentStatusReady, res.Status)

	w = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents?status=ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Documents []models.Document `json:"documents"`
		Count     int               `json:"count"`
	}
	decode(t, w, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "sam", list.Documents[0].UploadedBy)

	w = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+res.DocumentID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+res.DocumentID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var deleted service.DeleteResult
	decode(t, w, &deleted)
	assert.True(t, deleted.Success)
	assert.Equal(t, res.DocumentID, deleted.DocumentID)

	w = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+res.DocumentID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+res.DocumentID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpload_EmptyDocumentIs422(t *testing.T) {
	a := newTestAPI(t, false)

	w := a.do(uploadRequest(t, "/api/v1/documents", "tiny.txt", "too short", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, errs.StageChunk, body["stage"])
}

func TestUpload_OversizedCategoryIs400(t *testing.T) {
	a := newTestAPI(t, false)
	long := map[string]string{"category": strings.Repeat("x", schema.MaxCategoryBytes+1)}

	w := a.do(uploadRequest(t, "/api/v1/documents", "notes.txt", strings.Repeat("a", 400), long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, errs.StageValidate, body["stage"])

	w = a.do(uploadRequest(t, "/api/v1/documents?async=true", "notes.txt", strings.Repeat("a", 400), long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, a.jobs.submitted)
}

func TestUpload_MissingFile(t *testing.T) {
	a := newTestAPI(t, false)
	w := a.do(jsonRequest(t, http.MethodPost, "/api/v1/documents", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	a := newTestAPI(t, false, WithMaxUploadBytes(100))
	w := a.do(uploadRequest(t, "/api/v1/documents", "big.txt", strings.Repeat("b", 200), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUpload_Async(t *testing.T) {
	a := newTestAPI(t, false)

	w := a.do(uploadRequest(t, "/api/v1/documents?async=true", "later.txt", "content", map[string]string{"category": "recruiting"}))
	require.Equal(t, http.StatusAccepted, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "job-1", body["jobId"])
	assert.Equal(t, []string{"later.txt"}, a.jobs.submitted)
	assert.Equal(t, "recruiting", a.jobs.opts[0].Category)

	w = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var state models.JobState
	decode(t, w, &state)
	assert.Equal(t, models.JobStatusSucceeded, state.Status)

	w = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReindexIs501(t *testing.T) {
	a := newTestAPI(t, false)

	w := a.do(uploadRequest(t, "/api/v1/documents", "r.txt", strings.Repeat("r", 300), nil))
	require.Equal(t, http.StatusCreated, w.Code)
	var res service.IngestResult
	decode(t, w, &res)

	w = a.do(httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+res.DocumentID+"/reindex", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = a.do(httptest.NewRequest(http.MethodPost, "/api/v1/documents/missing/reindex", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDocuments_BadStatus(t *testing.T) {
	a := newTestAPI(t, false)
	w := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents?status=archived", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchAndContext(t *testing.T) {
	a := newTestAPI(t, false)

	w := a.do(uploadRequest(t, "/api/v1/documents", "s.txt", strings.Repeat("s", 300), nil))
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(jsonRequest(t, http.MethodPost, "/api/v1/search", SearchRequest{Query: "anything"}))
	require.Equal(t, http.StatusOK, w.Code)
	var sr struct {
		Count int `json:"count"`
	}
	decode(t, w, &sr)
	assert.Equal(t, 1, sr.Count)

	w = a.do(jsonRequest(t, http.MethodPost, "/api/v1/context", SearchRequest{Query: "anything"}))
	require.Equal(t, http.StatusOK, w.Code)
	var cr struct {
		Context string `json:"context"`
	}
	decode(t, w, &cr)
	assert.Contains(t, cr.Context, "[1] s.txt")

	w = a.do(jsonRequest(t, http.MethodPost, "/api/v1/search", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	a := newTestAPI(t, false)
	w := a.do(uploadRequest(t, "/api/v1/documents", "s.txt", strings.Repeat("s", 1700), nil))
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats service.Stats
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.TotalDocuments)
	assert.Equal(t, int64(3), stats.Index.VectorCount)
}

func TestAuth_GuardsAdminRoutes(t *testing.T) {
	a := newTestAPI(t, true)

	w := a.do(uploadRequest(t, "/api/v1/documents", "a.txt", strings.Repeat("a", 300), nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := uploadRequest(t, "/api/v1/documents", "a.txt", strings.Repeat("a", 300), nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, a.do(req).Code)

	req = uploadRequest(t, "/api/v1/documents", "a.txt", strings.Repeat("a", 300), nil)
	req.Header.Set("Authorization", "Bearer "+a.token)
	w = a.do(req)
	require.Equal(t, http.StatusCreated, w.Code)

	// Reads stay open and the token subject became the uploader.
	w = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@example.com")
}

func TestAuth_RejectsWrongSecret(t *testing.T) {
	a := newTestAPI(t, true)
	token, err := IssueToken("other-secret", "x", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, a.do(req).Code)
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, false,
		WithHealthCheck("mysql", func(ctx context.Context) error { return nil }),
	)
	assert.Equal(t, http.StatusOK, a.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)

	b := newTestAPI(t, false,
		WithHealthCheck("milvus", func(ctx context.Context) error { return errors.New("unreachable") }),
	)
	w := b.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unreachable")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(errs.ErrNotFound))
	assert.Equal(t, http.StatusNotImplemented, statusFor(errs.Wrap(errs.StageIndex, errs.ErrNotSupported, nil)))
	assert.Equal(t, http.StatusBadRequest, statusFor(errs.Wrap(errs.StageValidate, errs.ErrInvalidInput, errors.New("too long"))))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(errs.Wrap(errs.StageQuery, errs.ErrEmptyInput, nil)))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(errs.Wrap(errs.StageExtract, errs.ErrExtraction, errors.New("bad pdf"))))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errs.Wrap(errs.StageEmbed, errs.ErrEmbedding, nil)))
}
