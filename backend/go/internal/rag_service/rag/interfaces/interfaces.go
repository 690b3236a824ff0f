package interfaces

import (
	"context"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/schema"
)

// Loader extracts raw text from a binary document held in memory.
type Loader interface {
	Load(ctx context.Context, buf []byte, fileName string) (*schema.Extraction, error)
}

// Splitter splits normalised text into ordered chunks.
type Splitter interface {
	Split(text string) []schema.Chunk
}

// Classifier picks a category label from a document's full text.
type Classifier interface {
	Classify(text string) string
}

// EmbeddingModel turns text into fixed-length vectors.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// VectorStore is the external similarity-search index.
type VectorStore interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []schema.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, filter schema.Filter) ([]schema.Match, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	DeleteByIDs(ctx context.Context, ids []string) error
	Stats(ctx context.Context) (*schema.IndexStats, error)
}

// DocumentStore persists Document records. Get returns errs.ErrNotFound for
// unknown ids.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error)
	Delete(ctx context.Context, id string) error
	RecordError(ctx context.Context, rec *models.IngestionError) error
	ListErrors(ctx context.Context, documentID string) ([]models.IngestionError, error)
	CountByStatus(ctx context.Context) (map[models.DocumentStatus]int64, error)
}
