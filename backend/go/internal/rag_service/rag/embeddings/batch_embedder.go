package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Outreach/backend/go/internal/embedding"
	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"
	"Outreach/backend/go/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// QueryPrefix is prepended to search queries so retrieval-tuned models embed
// them in query mode.
const QueryPrefix = "Represent this query for retrieving relevant documents: "

const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = 100 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
)

// BatchEmbedder turns text into vectors through a provider, adding input
// validation, per-call timeouts and rate-friendly batching on top.
type BatchEmbedder struct {
	provider   embedding.Embedding
	dimension  int
	timeout    time.Duration
	batchSize  int
	batchDelay time.Duration
	log        *logger.Logger
}

// Option configures a BatchEmbedder.
type Option func(*BatchEmbedder)

// WithDimension sets the expected vector length.
func WithDimension(d int) Option {
	return func(b *BatchEmbedder) {
		if d > 0 {
			b.dimension = d
		}
	}
}

// WithTimeout bounds every single provider call.
func WithTimeout(d time.Duration) Option {
	return func(b *BatchEmbedder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBatchSize sets how many texts are embedded concurrently.
func WithBatchSize(n int) Option {
	return func(b *BatchEmbedder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between consecutive sub-batches.
func WithBatchDelay(d time.Duration) Option {
	return func(b *BatchEmbedder) {
		if d >= 0 {
			b.batchDelay = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *BatchEmbedder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBatchEmbedder wraps provider with the default batching policy.
func NewBatchEmbedder(provider embedding.Embedding, opts ...Option) *BatchEmbedder {
	b := &BatchEmbedder{
		provider:   provider,
		dimension:  schema.EmbeddingDimension,
		timeout:    DefaultTimeout,
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dimension returns the vector length every result is checked against.
func (b *BatchEmbedder) Dimension() int {
	return b.dimension
}

// Embed produces the vector for a single text.
func (b *BatchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Wrap(errs.StageEmbed, errs.ErrEmptyInput, nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	vec, err := b.provider.Embed(callCtx, text)
	if err != nil {
		return nil, errs.Wrap(errs.StageEmbed, errs.ErrEmbedding, err)
	}
	if len(vec) != b.dimension {
		return nil, errs.Wrap(errs.StageEmbed, errs.ErrEmbedding,
			fmt.Errorf("expected %d dimensions, got %d", b.dimension, len(vec)))
	}
	return vec, nil
}

// EmbedBatch embeds texts in sub-batches. Items inside a sub-batch run in
// parallel, sub-batches run one after another with a short pause between them.
// The result is index-aligned with texts. Any failure aborts the whole batch.
func (b *BatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += b.batchSize {
		if start > 0 && b.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, errs.Wrap(errs.StageEmbed, errs.ErrEmbedding, ctx.Err())
			case <-time.After(b.batchDelay):
			}
		}

		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := b.Embed(gctx, texts[i])
				if err != nil {
					return err
				}
				out[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			b.log.WithError(models.ErrorInfo{Message: err.Error(), Stage: errs.StageEmbed}).
				WithPayload(map[string]interface{}{"batch_start": start, "batch_end": end, "total": len(texts)}).
				Error("embedding sub-batch failed")
			return nil, err
		}
	}

	return out, nil
}

// EmbedQuery embeds a search query in query mode, falling back to a plain
// embedding if the prefixed call fails.
func (b *BatchEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.Wrap(errs.StageEmbed, errs.ErrEmptyInput, nil)
	}

	vec, err := b.Embed(ctx, QueryPrefix+query)
	if err == nil {
		return vec, nil
	}
	b.log.WithError(models.ErrorInfo{Message: err.Error(), Stage: errs.StageEmbed}).
		Warn("query-mode embedding failed, retrying without prefix")
	return b.Embed(ctx, query)
}

var _ interfaces.EmbeddingModel = (*BatchEmbedder)(nil)
