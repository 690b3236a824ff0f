package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Outreach/backend/go/internal/database/milvus"
	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"
	"Outreach/backend/go/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Collection fields. Every VectorMetadata field has its own scalar column so
// that it can be filtered on and returned without a secondary lookup.
const (
	FieldID         = "id"
	FieldEmbedding  = "embedding"
	FieldDocumentID = "document_id"
	FieldFileName   = "file_name"
	FieldCategory   = "category"
	FieldChunkIndex = "chunk_index"
	FieldText       = "text"
	FieldUploadDate = "upload_date"
	FieldStartChar  = "start_char"
	FieldEndChar    = "end_char"
	FieldLength     = "length"
)

// VarChar limits, in bytes.
const (
	maxIDLen    = 256
	maxDocIDLen = 64
	maxDateLen  = 64
)

// DefaultUpsertBatchSize caps the number of records sent in one upsert call.
const DefaultUpsertBatchSize = 100

var outputFields = []string{
	FieldID, FieldDocumentID, FieldFileName, FieldCategory, FieldChunkIndex,
	FieldText, FieldUploadDate, FieldStartChar, FieldEndChar, FieldLength,
}

// MilvusStore implements VectorStore on a Milvus collection.
type MilvusStore struct {
	log        *logger.Logger
	milvus     *milvus.MilvusClient
	client     client.Client
	collection string
	dimension  int
	batchSize  int
	timeout    time.Duration
}

// MilvusOptions tunes a MilvusStore.
type MilvusOptions struct {
	Dimension       int
	UpsertBatchSize int
	Timeout         time.Duration
}

// NewMilvusStore creates a store over the collection named in the client's config.
func NewMilvusStore(milvusClient *milvus.MilvusClient, opts MilvusOptions, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if opts.Dimension <= 0 {
		opts.Dimension = schema.EmbeddingDimension
	}
	if opts.UpsertBatchSize <= 0 || opts.UpsertBatchSize > DefaultUpsertBatchSize {
		opts.UpsertBatchSize = DefaultUpsertBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &MilvusStore{
		log:        log,
		milvus:     milvusClient,
		client:     milvusClient.Client,
		collection: milvusClient.Config.CollectionName,
		dimension:  opts.Dimension,
		batchSize:  opts.UpsertBatchSize,
		timeout:    opts.Timeout,
	}, nil
}

// collectionSchema describes the collection layout for a given vector dimension.
func collectionSchema(name, description string, dim int) *entity.Schema {
	varchar := func(field string, maxLen int64) *entity.Field {
		return entity.NewField().WithName(field).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxLen)
	}
	int64Field := func(field string) *entity.Field {
		return entity.NewField().WithName(field).WithDataType(entity.FieldTypeInt64)
	}

	return entity.NewSchema().
		WithName(name).
		WithDescription(description).
		WithField(varchar(FieldID, maxIDLen).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim))).
		WithField(varchar(FieldDocumentID, maxDocIDLen)).
		WithField(varchar(FieldFileName, schema.MaxFileNameBytes)).
		WithField(varchar(FieldCategory, schema.MaxCategoryBytes)).
		WithField(int64Field(FieldChunkIndex)).
		WithField(varchar(FieldText, schema.MaxChunkTextBytes)).
		WithField(varchar(FieldUploadDate, maxDateLen)).
		WithField(int64Field(FieldStartChar)).
		WithField(int64Field(FieldEndChar)).
		WithField(int64Field(FieldLength))
}

// EnsureIndex creates and loads the collection if it does not exist yet.
// Calling it again is a no-op apart from re-loading.
func (s *MilvusStore) EnsureIndex(ctx context.Context) error {
	sch := collectionSchema(s.collection, s.milvus.Config.Description, s.dimension)
	created, err := s.milvus.EnsureCollection(ctx, sch, FieldEmbedding)
	if err != nil {
		return errs.Wrap(errs.StageIndex, errs.ErrVectorStore, err)
	}
	if created {
		s.log.WithPayload(map[string]interface{}{
			"collection": s.collection,
			"dimension":  s.dimension,
			"metric":     string(s.milvus.MetricType()),
		}).Info("created vector collection")
	}
	return nil
}

// Upsert writes records in sequential batches. The first failing batch aborts
// the call; batches already written stay written.
func (s *MilvusStore) Upsert(ctx context.Context, records []schema.VectorRecord) error {
	return forEachBatch(len(records), s.batchSize, func(lo, hi int) error {
		cols, err := recordsToColumns(records[lo:hi], s.dimension)
		if err != nil {
			return errs.Wrap(errs.StageUpsert, errs.ErrVectorStore, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if _, err := s.client.Upsert(callCtx, s.collection, "", cols...); err != nil {
			s.log.WithError(models.ErrorInfo{Message: err.Error(), Stage: errs.StageUpsert}).
				WithPayload(map[string]interface{}{"batch_start": lo, "batch_end": hi}).
				Error("milvus upsert failed")
			return errs.Wrap(errs.StageUpsert, errs.ErrVectorStore, fmt.Errorf("upsert records %d-%d: %w", lo, hi, err))
		}
		return nil
	})
}

// Query runs a cosine similarity search and returns matches with metadata only.
func (s *MilvusStore) Query(ctx context.Context, vector []float32, topK int, filter schema.Filter) ([]schema.Match, error) {
	if len(vector) != s.dimension {
		return nil, errs.Wrap(errs.StageQuery, errs.ErrVectorStore,
			fmt.Errorf("query vector has %d dimensions, index expects %d", len(vector), s.dimension))
	}
	sp, err := s.milvus.SearchParam(topK)
	if err != nil {
		return nil, errs.Wrap(errs.StageQuery, errs.ErrVectorStore, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	expr := buildFilterExpression(filter)
	results, err := s.client.Search(
		callCtx, s.collection, []string{}, expr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, s.milvus.MetricType(), topK, sp,
	)
	if err != nil {
		return nil, errs.Wrap(errs.StageQuery, errs.ErrVectorStore, fmt.Errorf("search with filter %q: %w", expr, err))
	}

	var matches []schema.Match
	for _, res := range results {
		matches = append(matches, matchesFromColumns(res.Fields, res.Scores, res.ResultCount)...)
	}
	return matches, nil
}

// DeleteByDocument removes every vector that belongs to documentID.
func (s *MilvusStore) DeleteByDocument(ctx context.Context, documentID string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	expr := buildFilterExpression(schema.Filter{DocumentID: documentID})
	if err := s.client.Delete(callCtx, s.collection, "", expr); err != nil {
		return errs.Wrap(errs.StageDelete, errs.ErrVectorStore, fmt.Errorf("delete %q: %w", expr, err))
	}
	return nil
}

// DeleteByIDs removes vectors by primary key.
func (s *MilvusStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.DeleteByPks(callCtx, s.collection, "", entity.NewColumnVarChar(FieldID, ids)); err != nil {
		return errs.Wrap(errs.StageDelete, errs.ErrVectorStore, err)
	}
	return nil
}

// Stats reports the collection's persisted row count. Rows still in growing
// segments are not counted until Milvus flushes them.
func (s *MilvusStore) Stats(ctx context.Context) (*schema.IndexStats, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.milvus.RowCount(callCtx, s.collection)
	if err != nil {
		return nil, errs.Wrap(errs.StageIndex, errs.ErrVectorStore, err)
	}
	return &schema.IndexStats{
		Name:        s.collection,
		Dimension:   s.dimension,
		Metric:      string(s.milvus.MetricType()),
		VectorCount: n,
	}, nil
}

// forEachBatch calls fn for consecutive [lo, hi) windows of at most size
// items and stops at the first error.
func forEachBatch(n, size int, fn func(lo, hi int) error) error {
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		if err := fn(lo, hi); err != nil {
			return err
		}
	}
	return nil
}

// recordsToColumns converts records to Milvus columns in schema order.
func recordsToColumns(records []schema.VectorRecord, dim int) ([]entity.Column, error) {
	n := len(records)
	ids := make([]string, n)
	vectors := make([][]float32, n)
	docIDs := make([]string, n)
	fileNames := make([]string, n)
	categories := make([]string, n)
	chunkIdx := make([]int64, n)
	texts := make([]string, n)
	dates := make([]string, n)
	starts := make([]int64, n)
	ends := make([]int64, n)
	lengths := make([]int64, n)

	for i, r := range records {
		if len(r.Values) != dim {
			return nil, fmt.Errorf("record %s has %d dimensions, index expects %d", r.ID, len(r.Values), dim)
		}
		m := r.Metadata
		if err := m.CheckLimits(); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		ids[i] = r.ID
		vectors[i] = r.Values
		docIDs[i] = m.DocumentID
		fileNames[i] = m.FileName
		categories[i] = m.Category
		chunkIdx[i] = int64(m.ChunkIndex)
		texts[i] = m.Text
		dates[i] = m.UploadDate
		starts[i] = int64(m.StartChar)
		ends[i] = int64(m.EndChar)
		lengths[i] = int64(m.Length)
	}

	return []entity.Column{
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnFloatVector(FieldEmbedding, dim, vectors),
		entity.NewColumnVarChar(FieldDocumentID, docIDs),
		entity.NewColumnVarChar(FieldFileName, fileNames),
		entity.NewColumnVarChar(FieldCategory, categories),
		entity.NewColumnInt64(FieldChunkIndex, chunkIdx),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnVarChar(FieldUploadDate, dates),
		entity.NewColumnInt64(FieldStartChar, starts),
		entity.NewColumnInt64(FieldEndChar, ends),
		entity.NewColumnInt64(FieldLength, lengths),
	}, nil
}

// matchesFromColumns rebuilds matches from a search result's output columns.
func matchesFromColumns(fields []entity.Column, scores []float32, count int) []schema.Match {
	strs := make(map[string][]string)
	ints := make(map[string][]int64)
	for _, col := range fields {
		switch c := col.(type) {
		case *entity.ColumnVarChar:
			strs[c.Name()] = c.Data()
		case *entity.ColumnInt64:
			ints[c.Name()] = c.Data()
		}
	}
	str := func(name string, i int) string {
		if v := strs[name]; i < len(v) {
			return v[i]
		}
		return ""
	}
	num := func(name string, i int) int {
		if v := ints[name]; i < len(v) {
			return int(v[i])
		}
		return 0
	}

	matches := make([]schema.Match, 0, count)
	for i := 0; i < count && i < len(scores); i++ {
		matches = append(matches, schema.Match{
			ID:    str(FieldID, i),
			Score: scores[i],
			Metadata: schema.VectorMetadata{
				DocumentID: str(FieldDocumentID, i),
				FileName:   str(FieldFileName, i),
				Category:   str(FieldCategory, i),
				ChunkIndex: num(FieldChunkIndex, i),
				Text:       str(FieldText, i),
				UploadDate: str(FieldUploadDate, i),
				StartChar:  num(FieldStartChar, i),
				EndChar:    num(FieldEndChar, i),
				Length:     num(FieldLength, i),
			},
		})
	}
	return matches
}

// buildFilterExpression creates a Milvus boolean expression from the filter.
func buildFilterExpression(f schema.Filter) string {
	var conditions []string
	if f.DocumentID != "" {
		conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, FieldDocumentID, escapeString(f.DocumentID)))
	}
	if f.Category != "" {
		conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, FieldCategory, escapeString(f.Category)))
	}
	return strings.Join(conditions, " and ")
}

func escapeString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
