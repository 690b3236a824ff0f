// Package service is the orchestrator that ties extraction, chunking,
// embedding and the two stores together behind a small set of operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/pipeline"
	"Outreach/backend/go/internal/rag_service/rag/schema"
	"Outreach/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// Defaults applied by Search when the caller leaves options unset.
const (
	DefaultTopK     = 5
	DefaultMinScore = float32(0.7)
)

// IngestOptions are caller-supplied attributes for a new document.
type IngestOptions struct {
	// Category overrides classification when non-empty.
	Category   string
	UploadedBy string
}

// IngestResult describes a document that reached the ready state.
type IngestResult struct {
	DocumentID string                `json:"documentId"`
	FileName   string                `json:"fileName"`
	Category   string                `json:"category"`
	ChunkCount int                   `json:"chunkCount"`
	Status     models.DocumentStatus `json:"status"`
	Metadata   map[string]string     `json:"metadata"`
}

// SearchOptions tune a similarity search. Zero TopK and nil MinScore fall back
// to the service defaults.
type SearchOptions struct {
	TopK     int
	Category string
	MinScore *float32
	// DocumentID restricts the search to a single document.
	DocumentID string
}

// DeleteResult confirms a completed delete.
type DeleteResult struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId"`
}

// Stats combines document counts with the vector index summary.
type Stats struct {
	Documents      map[models.DocumentStatus]int64 `json:"documents"`
	TotalDocuments int64                           `json:"totalDocuments"`
	Index          *schema.IndexStats              `json:"index"`
}

// Config holds the tunables of a RagService. Zero TopK and nil MinScore fall
// back to DefaultTopK and DefaultMinScore; an explicit zero MinScore disables
// score filtering.
type Config struct {
	TopK     int
	MinScore *float32
	// ContextChars bounds BuildContext output.
	ContextChars int
}

// RagService runs the ingestion state machine and answers searches.
type RagService struct {
	indexing  *pipeline.IndexingPipeline
	retrieval *pipeline.RetrievalPipeline
	vectors   interfaces.VectorStore
	documents interfaces.DocumentStore
	cfg       Config
	log       *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewRagService wires a RagService from its collaborators.
func NewRagService(
	loader interfaces.Loader,
	classifier interfaces.Classifier,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	vectors interfaces.VectorStore,
	documents interfaces.DocumentStore,
	cfg Config,
	log *logger.Logger,
) *RagService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinScore == nil {
		minScore := DefaultMinScore
		cfg.MinScore = &minScore
	}
	if log == nil {
		log = logger.Discard()
	}
	return &RagService{
		indexing:  pipeline.NewIndexingPipeline(loader, classifier, splitter, embedder, vectors, log),
		retrieval: pipeline.NewRetrievalPipeline(embedder, vectors, log),
		vectors:   vectors,
		documents: documents,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Ingest extracts, chunks, embeds and stores a document. A record is created
// in the processing state once chunking succeeds; any later failure moves it
// to failed and the stage error is returned.
func (s *RagService) Ingest(ctx context.Context, buf []byte, fileName string, opts IngestOptions) (*IngestResult, error) {
	if err := (schema.VectorMetadata{FileName: fileName, Category: opts.Category}).CheckLimits(); err != nil {
		return nil, errs.Wrap(errs.StageValidate, errs.ErrInvalidInput, err)
	}

	prepared, err := s.indexing.Prepare(ctx, buf, fileName, opts.Category)
	if err != nil {
		s.log.WithError(models.ErrorInfo{Message: err.Error(), Stage: errs.StageOf(err)}).
			WithField("file_name", fileName).Error("document extraction failed")
		return nil, err
	}
	for _, c := range prepared.Chunks {
		if err := (schema.VectorMetadata{ChunkIndex: c.Index, Text: c.Text}).CheckLimits(); err != nil {
			return nil, errs.Wrap(errs.StageChunk, errs.ErrInvalidInput, err)
		}
	}

	doc := &models.Document{
		ID:         s.newID(),
		FileName:   fileName,
		FileSize:   int64(len(buf)),
		Category:   prepared.Category,
		UploadedBy: opts.UploadedBy,
		Status:     models.DocumentStatusProcessing,
		ChunkCount: len(prepared.Chunks),
		PageCount:  prepared.Extraction.PageCount,
		UploadDate: s.now().UTC(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	if len(prepared.Chunks) == 0 {
		return nil, s.fail(ctx, doc, errs.Wrap(errs.StageChunk, errs.ErrEmptyDocument, nil))
	}

	if err := s.indexing.Index(ctx, doc, prepared.Chunks); err != nil {
		return nil, s.fail(ctx, doc, err)
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, models.DocumentStatusReady, ""); err != nil {
		return nil, fmt.Errorf("更新文档状态失败: %w", err)
	}

	s.log.WithPayload(map[string]interface{}{
		"document_id": doc.ID,
		"file_name":   fileName,
		"category":    doc.Category,
		"chunks":      doc.ChunkCount,
	}).Info("document ready")

	return &IngestResult{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Category:   doc.Category,
		ChunkCount: doc.ChunkCount,
		Status:     models.DocumentStatusReady,
		Metadata:   resultMetadata(prepared.Extraction),
	}, nil
}

// fail marks doc failed, records the error row and returns cause unchanged.
// Bookkeeping errors are logged, never returned in place of cause.
func (s *RagService) fail(ctx context.Context, doc *models.Document, cause error) error {
	stage := errs.StageOf(cause)
	if err := s.documents.UpdateStatus(ctx, doc.ID, models.DocumentStatusFailed, cause.Error()); err != nil {
		s.log.WithField("document_id", doc.ID).WithField("error", err.Error()).Warn("failed to mark document failed")
	}
	rec := &models.IngestionError{DocumentID: doc.ID, Stage: stage, Message: cause.Error()}
	if err := s.documents.RecordError(ctx, rec); err != nil {
		s.log.WithField("document_id", doc.ID).WithField("error", err.Error()).Warn("failed to record ingestion error")
	}

	s.log.WithError(models.ErrorInfo{Message: cause.Error(), Stage: stage}).
		WithField("document_id", doc.ID).Error("document ingestion failed")
	return cause
}

func resultMetadata(ext *schema.Extraction) map[string]string {
	out := make(map[string]string, len(ext.Info)+len(ext.Metadata)+1)
	for k, v := range ext.Info {
		out[k] = v
	}
	for k, v := range ext.Metadata {
		out[k] = v
	}
	out["page_count"] = fmt.Sprintf("%d", ext.PageCount)
	return out
}

// Search embeds query and returns matches scoring at or above the minimum.
func (s *RagService) Search(ctx context.Context, query string, opts SearchOptions) ([]schema.SearchResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	minScore := *s.cfg.MinScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}
	filter := schema.Filter{DocumentID: opts.DocumentID, Category: opts.Category}
	return s.retrieval.Run(ctx, query, topK, filter, minScore)
}

// BuildContext runs Search and renders the hits as a numbered context block.
func (s *RagService) BuildContext(ctx context.Context, query string, opts SearchOptions) (string, []schema.SearchResult, error) {
	results, err := s.Search(ctx, query, opts)
	if err != nil {
		return "", nil, err
	}
	return pipeline.BuildContext(query, results, s.cfg.ContextChars), results, nil
}

// DeleteDocument removes the document's vectors and then its record. If the
// vector delete fails the record is left in place.
func (s *RagService) DeleteDocument(ctx context.Context, id string) (*DeleteResult, error) {
	if _, err := s.documents.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.vectors.DeleteByDocument(ctx, id); err != nil {
		return nil, errs.Wrap(errs.StageDelete, errs.ErrVectorStore, err)
	}
	if err := s.documents.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.log.WithField("document_id", id).Info("document deleted")
	return &DeleteResult{Success: true, DocumentID: id}, nil
}

// GetDocuments lists documents matching filter, newest first.
func (s *RagService) GetDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error) {
	return s.documents.List(ctx, filter)
}

// GetDocument returns nil, nil when id is unknown.
func (s *RagService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.documents.Get(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

// DocumentErrors returns the ingestion errors recorded for id.
func (s *RagService) DocumentErrors(ctx context.Context, id string) ([]models.IngestionError, error) {
	return s.documents.ListErrors(ctx, id)
}

// Reindex is not available: the original upload bytes are not retained.
func (s *RagService) Reindex(ctx context.Context, id string) error {
	if _, err := s.documents.Get(ctx, id); err != nil {
		return err
	}
	return errs.Wrap(errs.StageIndex, errs.ErrNotSupported, nil)
}

// Stats reports document counts per status and the vector index summary.
func (s *RagService) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.documents.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := s.vectors.Stats(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.StageQuery, errs.ErrVectorStore, err)
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return &Stats{Documents: counts, TotalDocuments: total, Index: idx}, nil
}
