// Package api exposes the retrieval service over HTTP with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/jobs"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/schema"
	"Outreach/backend/go/internal/rag_service/service"
	"Outreach/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// JobSubmitter queues uploads for background ingestion.
type JobSubmitter interface {
	Submit(ctx context.Context, buf []byte, fileName, contentType string, opts service.IngestOptions) (*models.JobState, error)
	Status(ctx context.Context, jobID string) (*models.JobState, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	svc            *service.RagService
	jobs           JobSubmitter
	checks         map[string]HealthCheck
	maxUploadBytes int64
	log            *logger.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithJobs enables ?async=true uploads and the job status route.
func WithJobs(j JobSubmitter) HandlerOption {
	return func(h *Handler) { h.jobs = j }
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *Handler) { h.checks[name] = check }
}

// WithMaxUploadBytes caps the accepted upload size.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(svc *service.RagService, log *logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:            svc,
		checks:         make(map[string]HealthCheck),
		maxUploadBytes: 25 << 20,
		log:            log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrExtraction), errors.Is(err, errs.ErrEmptyDocument), errors.Is(err, errs.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	body := gin.H{"error": err.Error()}
	if stage := errs.StageOf(err); stage != "" {
		body["stage"] = stage
	}
	c.JSON(status, body)
}

// UploadDocument 处理 multipart 上传。?async=true 时交给后台任务并返回 202。
func (h *Handler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件字段 'file': " + err.Error()})
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("文件超过 %d 字节上限", h.maxUploadBytes)})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	buf, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := service.IngestOptions{
		Category:   c.PostForm("category"),
		UploadedBy: c.PostForm("uploadedBy"),
	}
	if opts.UploadedBy == "" {
		opts.UploadedBy = c.GetString(subjectKey)
	}
	// 异步任务在入队前同样需要通过长度校验
	if err := (schema.VectorMetadata{FileName: fileHeader.Filename, Category: opts.Category}).CheckLimits(); err != nil {
		h.fail(c, errs.Wrap(errs.StageValidate, errs.ErrInvalidInput, err))
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if h.jobs == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "异步摄取未启用"})
			return
		}
		state, err := h.jobs.Submit(c.Request.Context(), buf, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), opts)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"jobId": state.JobID, "status": state.Status})
		return
	}

	res, err := h.svc.Ingest(c.Request.Context(), buf, fileHeader.Filename, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListDocuments 支持按 category 与 status 过滤。
func (h *Handler) ListDocuments(c *gin.Context) {
	filter := models.DocumentFilter{
		Category: c.Query("category"),
		Status:   models.DocumentStatus(c.Query("status")),
	}
	switch filter.Status {
	case "", models.DocumentStatusProcessing, models.DocumentStatusReady, models.DocumentStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "未知的状态: " + string(filter.Status)})
		return
	}

	docs, err := h.svc.GetDocuments(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// GetDocument 返回文档记录以及记录在案的摄取错误。
func (h *Handler) GetDocument(c *gin.Context) {
	id := c.Param("id")
	doc, err := h.svc.GetDocument(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrNotFound.Error()})
		return
	}

	ingestionErrors, err := h.svc.DocumentErrors(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc, "errors": ingestionErrors})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	res, err := h.svc.DeleteDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ReindexDocument(c *gin.Context) {
	if err := h.svc.Reindex(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchRequest 定义了检索请求的 JSON 结构。
type SearchRequest struct {
	Query      string   `json:"query" binding:"required"`
	TopK       int      `json:"topK"`
	Category   string   `json:"category"`
	DocumentID string   `json:"documentId"`
	MinScore   *float32 `json:"minScore"`
}

func (r SearchRequest) options() service.SearchOptions {
	return service.SearchOptions{
		TopK:       r.TopK,
		Category:   r.Category,
		DocumentID: r.DocumentID,
		MinScore:   r.MinScore,
	}
}

func (h *Handler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.svc.Search(c.Request.Context(), req.Query, req.options())
	if err != nil {
		h.fail(c, err)
		return
	}
	if results == nil {
		results = []schema.SearchResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// Context 返回可直接拼接进邮件个性化提示词的上下文块。
func (h *Handler) Context(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block, results, err := h.svc.BuildContext(c.Request.Context(), req.Query, req.options())
	if err != nil {
		h.fail(c, err)
		return
	}
	if results == nil {
		results = []schema.SearchResult{}
	}
	c.JSON(http.StatusOK, gin.H{"context": block, "sources": results})
}

func (h *Handler) GetJob(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "异步摄取未启用"})
		return
	}
	state, err := h.jobs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Health 依次执行所有依赖检查，任一失败返回 503。
func (h *Handler) Health(c *gin.Context) {
	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": healthy, "checks": results})
}
