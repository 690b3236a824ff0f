package pipeline

import (
	"context"
	"strings"

	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"
	"Outreach/backend/go/pkg/logger"
)

// RetrievalPipeline embeds a query and returns the closest chunks.
type RetrievalPipeline struct {
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
func NewRetrievalPipeline(embedder interfaces.EmbeddingModel, vectorStore interfaces.VectorStore, log *logger.Logger) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Run returns at most topK results scoring at least minScore, in the order
// the index returned them.
func (p *RetrievalPipeline) Run(ctx context.Context, query string, topK int, filter schema.Filter, minScore float32) ([]schema.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.Wrap(errs.StageQuery, errs.ErrEmptyInput, nil)
	}

	vector, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := p.vectorStore.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, errs.Wrap(errs.StageQuery, errs.ErrVectorStore, err)
	}

	results := make([]schema.SearchResult, 0, len(matches))
	for _, m := range matches {
		if m.Score < minScore {
			continue
		}
		results = append(results, schema.SearchResult{
			Text:       m.Metadata.Text,
			Score:      m.Score,
			DocumentID: m.Metadata.DocumentID,
			FileName:   m.Metadata.FileName,
			Category:   m.Metadata.Category,
			ChunkIndex: m.Metadata.ChunkIndex,
		})
	}

	p.log.WithPayload(map[string]interface{}{
		"top_k":     topK,
		"category":  filter.Category,
		"matches":   len(matches),
		"results":   len(results),
		"min_score": minScore,
	}).Debug("retrieval finished")
	return results, nil
}
