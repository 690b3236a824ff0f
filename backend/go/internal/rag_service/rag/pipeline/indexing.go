package pipeline

import (
	"context"
	"fmt"
	"time"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"
	"Outreach/backend/go/internal/rag_service/rag/splitters"
	"Outreach/backend/go/pkg/logger"
)

// Prepared is a document that has been extracted, classified and chunked but
// not yet embedded.
type Prepared struct {
	Extraction *schema.Extraction
	Category   string
	Text       string
	Chunks     []schema.Chunk
}

// IndexingPipeline turns raw document bytes into vectors in the index.
// It is split in two halves so the caller can persist a document record
// between them.
type IndexingPipeline struct {
	loader      interfaces.Loader
	classifier  interfaces.Classifier
	splitter    interfaces.Splitter
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	loader interfaces.Loader,
	classifier interfaces.Classifier,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		loader:      loader,
		classifier:  classifier,
		splitter:    splitter,
		embedder:    embedder,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Prepare extracts text from buf, picks a category (category wins when
// non-empty) and chunks the normalised text. Zero chunks is not an error here.
func (p *IndexingPipeline) Prepare(ctx context.Context, buf []byte, fileName, category string) (*Prepared, error) {
	ext, err := p.loader.Load(ctx, buf, fileName)
	if err != nil {
		return nil, errs.Wrap(errs.StageExtract, errs.ErrExtraction, err)
	}

	text := splitters.Normalize(ext.Text)
	if category == "" {
		category = p.classifier.Classify(text)
	}
	chunks := p.splitter.Split(text)

	p.log.WithPayload(map[string]interface{}{
		"file_name":  fileName,
		"pages":      ext.PageCount,
		"characters": len([]rune(text)),
		"chunks":     len(chunks),
		"category":   category,
	}).Info("document prepared")

	return &Prepared{
		Extraction: ext,
		Category:   category,
		Text:       text,
		Chunks:     chunks,
	}, nil
}

// Index embeds the chunks of doc and upserts one vector record per chunk.
// Nothing is written unless every chunk was embedded.
func (p *IndexingPipeline) Index(ctx context.Context, doc *models.Document, chunks []schema.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return errs.Wrap(errs.StageEmbed, errs.ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return errs.Wrap(errs.StageEmbed, errs.ErrEmbedding,
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	records := BuildRecords(doc, chunks, vectors)
	if err := p.vectorStore.Upsert(ctx, records); err != nil {
		return errs.Wrap(errs.StageUpsert, errs.ErrVectorStore, err)
	}

	p.log.WithPayload(map[string]interface{}{
		"document_id": doc.ID,
		"vectors":     len(records),
	}).Info("document indexed")
	return nil
}

// BuildRecords pairs chunks with their vectors. chunks and vectors must be
// index-aligned.
func BuildRecords(doc *models.Document, chunks []schema.Chunk, vectors [][]float32) []schema.VectorRecord {
	uploadDate := doc.UploadDate.UTC().Format(time.RFC3339)
	records := make([]schema.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = schema.VectorRecord{
			ID:     schema.VectorID(doc.ID, c.Index),
			Values: vectors[i],
			Metadata: schema.VectorMetadata{
				DocumentID: doc.ID,
				FileName:   doc.FileName,
				Category:   doc.Category,
				ChunkIndex: c.Index,
				Text:       c.Text,
				UploadDate: uploadDate,
				StartChar:  c.StartChar,
				EndChar:    c.EndChar,
				Length:     c.Length,
			},
		}
	}
	return records
}
