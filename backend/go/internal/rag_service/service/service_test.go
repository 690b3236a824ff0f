package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/classifier"
	"Outreach/backend/go/internal/rag_service/rag/embeddings"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/loaders"
	"Outreach/backend/go/internal/rag_service/rag/schema"
	"Outreach/backend/go/internal/rag_service/rag/splitters"
	"Outreach/backend/go/internal/rag_service/rag/storages/docstore"
	"Outreach/backend/go/internal/rag_service/rag/storages/vectorstore"
	"Outreach/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 4

// unitProvider returns {1,0,0,0} for every text unless err is set.
type unitProvider struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *unitProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return []float32{1, 0, 0, 0}, nil
}

func (p *unitProvider) Close() error { return nil }

type brokenUpserts struct {
	*vectorstore.MemoryStore
}

func (b brokenUpserts) Upsert(ctx context.Context, records []schema.VectorRecord) error {
	return errors.New("connection reset")
}

type harness struct {
	svc      *RagService
	vectors  *vectorstore.MemoryStore
	docs     *docstore.InMemoryDocumentStore
	provider *unitProvider
}

func newHarness(t *testing.T, breakUpsert bool) *harness {
	t.Helper()
	return newHarnessWithConfig(t, breakUpsert, Config{})
}

func newHarnessWithConfig(t *testing.T, breakUpsert bool, cfg Config) *harness {
	t.Helper()
	return newHarnessWithSplitter(t, breakUpsert, cfg, splitters.NewDefaultCharSplitter())
}

func newHarnessWithSplitter(t *testing.T, breakUpsert bool, cfg Config, splitter interfaces.Splitter) *harness {
	t.Helper()
	h := &harness{
		vectors:  vectorstore.NewMemoryStore(dim),
		docs:     docstore.NewInMemoryDocumentStore(),
		provider: &unitProvider{},
	}
	embedder := embeddings.NewBatchEmbedder(h.provider,
		embeddings.WithDimension(dim),
		embeddings.WithBatchDelay(0),
	)
	var vectors interfaces.VectorStore = h.vectors
	if breakUpsert {
		vectors = brokenUpserts{h.vectors}
	}
	h.svc = NewRagService(
		loaders.NewRegistry(),
		classifier.NewKeywordClassifier(),
		splitter,
		embedder,
		vectors,
		h.docs,
		cfg,
		logger.Discard(),
	)
	return h
}

func TestIngest_Success(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	res, err := h.svc.Ingest(ctx, []byte(strings.Repeat("a", 1700)), "notes.txt", IngestOptions{UploadedBy: "ops"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChunkCount)
	assert.Equal(t, models.DocumentStatusReady, res.Status)
	assert.Equal(t, schema.CategoryGeneral, res.Category)
	assert.Equal(t, "notes.txt", res.Metadata["file_name"])

	want := []string{
		fmt.Sprintf("doc_%s_chunk_0", res.DocumentID),
		fmt.Sprintf("doc_%s_chunk_1", res.DocumentID),
		fmt.Sprintf("doc_%s_chunk_2", res.DocumentID),
	}
	assert.ElementsMatch(t, want, h.vectors.IDs())

	doc, err := h.svc.GetDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, models.DocumentStatusReady, doc.Status)
	assert.Equal(t, 3, doc.ChunkCount)
	assert.Equal(t, "ops", doc.UploadedBy)
}

func TestIngest_CategoryFromText(t *testing.T) {
	h := newHarness(t, false)

	text := "Recruiting update: we are hiring senior engineers. " + strings.Repeat("z", 200)
	res, err := h.svc.Ingest(context.Background(), []byte(text), "jobs.txt", IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, schema.CategoryRecruiting, res.Category)
}

func TestIngest_SuppliedCategoryKept(t *testing.T) {
	h := newHarness(t, false)

	text := "Recruiting update: we are hiring. " + strings.Repeat("z", 200)
	res, err := h.svc.Ingest(context.Background(), []byte(text), "jobs.txt", IngestOptions{Category: schema.CategoryCompanyInfo})
	require.NoError(t, err)
	assert.Equal(t, schema.CategoryCompanyInfo, res.Category)
}

func TestIngest_EmptyDocumentFails(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.svc.Ingest(ctx, []byte("too short"), "tiny.txt", IngestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrEmptyDocument))

	docs, err := h.svc.GetDocuments(ctx, models.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentStatusFailed, docs[0].Status)
	assert.Equal(t, 0, docs[0].ChunkCount)
	assert.Equal(t, 0, h.provider.calls)
	assert.Empty(t, h.vectors.IDs())

	recorded, err := h.svc.DocumentErrors(ctx, docs[0].ID)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, errs.StageChunk, recorded[0].Stage)
}

func TestIngest_ExtractionFailureCreatesNoRecord(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.svc.Ingest(ctx, []byte{0xff, 0xfe, 0x00, 0x01, 0x02}, "blob.bin", IngestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrExtraction))

	docs, err := h.svc.GetDocuments(ctx, models.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_OversizedCategoryRejected(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	label := strings.Repeat("x", schema.MaxCategoryBytes+1)
	_, err := h.svc.Ingest(ctx, []byte(strings.Repeat("a", 400)), "notes.txt", IngestOptions{Category: label})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	assert.Equal(t, errs.StageValidate, errs.StageOf(err))

	docs, err := h.svc.GetDocuments(ctx, models.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, h.vectors.IDs())

	res, err := h.svc.Ingest(ctx, []byte(strings.Repeat("a", 400)), "notes.txt", IngestOptions{Category: label[:schema.MaxCategoryBytes]})
	require.NoError(t, err)
	assert.Equal(t, label[:schema.MaxCategoryBytes], res.Category)
}

func TestIngest_OversizedChunkRejected(t *testing.T) {
	big, err := splitters.NewCharSplitter(20000, 100, 100)
	require.NoError(t, err)
	h := newHarnessWithSplitter(t, false, Config{}, big)
	ctx := context.Background()

	_, err = h.svc.Ingest(ctx, []byte(strings.Repeat("a", schema.MaxChunkTextBytes+500)), "huge.txt", IngestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	assert.Equal(t, errs.StageChunk, errs.StageOf(err))

	docs, err := h.svc.GetDocuments(ctx, models.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 0, h.provider.calls)
}

func TestIngest_EmbeddingFailureMarksFailed(t *testing.T) {
	h := newHarness(t, false)
	h.provider.err = errors.New("quota exceeded")
	ctx := context.Background()

	_, err := h.svc.Ingest(ctx, []byte(strings.Repeat("b", 900)), "b.txt", IngestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrEmbedding))

	docs, err := h.svc.GetDocuments(ctx, models.DocumentFilter{Status: models.DocumentStatusFailed})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].ErrorMessage, "quota exceeded")
	assert.Empty(t, h.vectors.IDs())
}

func TestIngest_UpsertFailureMarksFailed(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	_, err := h.svc.Ingest(ctx, []byte(strings.Repeat("c", 900)), "c.txt", IngestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrVectorStore))
	assert.Equal(t, errs.StageUpsert, errs.StageOf(err))

	docs, err := h.svc.GetDocuments(ctx, models.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentStatusFailed, docs[0].Status)
}

func TestIngest_FreshIDsPerCall(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	body := []byte(strings.Repeat("d", 300))

	first, err := h.svc.Ingest(ctx, body, "same.txt", IngestOptions{})
	require.NoError(t, err)
	second, err := h.svc.Ingest(ctx, body, "same.txt", IngestOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, first.DocumentID, second.DocumentID)
	assert.Len(t, h.vectors.IDs(), 2)
}

func seedScores(t *testing.T, h *harness) {
	t.Helper()
	// Cosine against the provider's {1,0,0,0} equals the first component.
	records := []schema.VectorRecord{
		{ID: "doc_x_chunk_0", Values: []float32{0.9, 0.43589, 0, 0}, Metadata: schema.VectorMetadata{DocumentID: "x", Text: "best", Category: schema.CategoryRecruiting}},
		{ID: "doc_x_chunk_1", Values: []float32{0.75, 0.66144, 0, 0}, Metadata: schema.VectorMetadata{DocumentID: "x", Text: "good", Category: schema.CategoryRecruiting, ChunkIndex: 1}},
		{ID: "doc_y_chunk_0", Values: []float32{0.5, 0.86603, 0, 0}, Metadata: schema.VectorMetadata{DocumentID: "y", Text: "weak", Category: schema.CategoryGeneral}},
	}
	require.NoError(t, h.vectors.Upsert(context.Background(), records))
}

func TestSearch_DefaultMinScore(t *testing.T) {
	h := newHarness(t, false)
	seedScores(t, h)

	results, err := h.svc.Search(context.Background(), "hiring plans", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "best", results[0].Text)
	assert.Equal(t, "good", results[1].Text)
}

func TestSearch_ConfiguredMinScore(t *testing.T) {
	strict := float32(0.8)
	h := newHarnessWithConfig(t, false, Config{MinScore: &strict})
	seedScores(t, h)

	results, err := h.svc.Search(context.Background(), "hiring plans", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "best", results[0].Text)

	zero := float32(0)
	h = newHarnessWithConfig(t, false, Config{MinScore: &zero})
	seedScores(t, h)
	results, err = h.svc.Search(context.Background(), "hiring plans", SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_ExplicitZeroMinScore(t *testing.T) {
	h := newHarness(t, false)
	seedScores(t, h)

	zero := float32(0)
	results, err := h.svc.Search(context.Background(), "hiring plans", SearchOptions{MinScore: &zero})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_TopKAndCategory(t *testing.T) {
	h := newHarness(t, false)
	seedScores(t, h)
	zero := float32(0)

	results, err := h.svc.Search(context.Background(), "q", SearchOptions{TopK: 1, MinScore: &zero})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "best", results[0].Text)

	results, err = h.svc.Search(context.Background(), "q", SearchOptions{Category: schema.CategoryGeneral, MinScore: &zero})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "y", results[0].DocumentID)
}

func TestBuildContext(t *testing.T) {
	h := newHarness(t, false)
	seedScores(t, h)

	block, results, err := h.svc.BuildContext(context.Background(), "hiring", SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Contains(t, block, "[1]")
	assert.Contains(t, block, "best")
	assert.NotContains(t, block, "weak")
}

func TestDeleteDocument(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	res, err := h.svc.Ingest(ctx, []byte(strings.Repeat("e", 1700)), "e.txt", IngestOptions{})
	require.NoError(t, err)
	require.Len(t, h.vectors.IDs(), 3)

	deleted, err := h.svc.DeleteDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, &DeleteResult{Success: true, DocumentID: res.DocumentID}, deleted)
	assert.Empty(t, h.vectors.IDs())

	doc, err := h.svc.GetDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Nil(t, doc)

	deleted, err = h.svc.DeleteDocument(ctx, res.DocumentID)
	assert.Nil(t, deleted)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestReindex(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	err := h.svc.Reindex(ctx, "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	res, err := h.svc.Ingest(ctx, []byte(strings.Repeat("f", 300)), "f.txt", IngestOptions{})
	require.NoError(t, err)
	err = h.svc.Reindex(ctx, res.DocumentID)
	assert.True(t, errors.Is(err, errs.ErrNotSupported))
}

func TestStats(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.svc.Ingest(ctx, []byte(strings.Repeat("g", 1700)), "g.txt", IngestOptions{})
	require.NoError(t, err)
	_, err = h.svc.Ingest(ctx, []byte("short"), "short.txt", IngestOptions{})
	require.Error(t, err)

	stats, err := h.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDocuments)
	assert.Equal(t, int64(1), stats.Documents[models.DocumentStatusReady])
	assert.Equal(t, int64(1), stats.Documents[models.DocumentStatusFailed])
	assert.Equal(t, int64(3), stats.Index.VectorCount)
	assert.Equal(t, dim, stats.Index.Dimension)
}
