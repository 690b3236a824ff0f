package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"
)

// MemoryStore is an exact cosine-similarity index kept in process memory.
// It is meant for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]schema.VectorRecord
}

// NewMemoryStore creates an empty store for vectors of the given dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	if dimension <= 0 {
		dimension = schema.EmbeddingDimension
	}
	return &MemoryStore{
		dimension: dimension,
		records:   make(map[string]schema.VectorRecord),
	}
}

func (s *MemoryStore) EnsureIndex(ctx context.Context) error {
	return nil
}

// Upsert stores copies of the records, replacing any with the same id.
func (s *MemoryStore) Upsert(ctx context.Context, records []schema.VectorRecord) error {
	for _, r := range records {
		if len(r.Values) != s.dimension {
			return errs.Wrap(errs.StageUpsert, errs.ErrVectorStore,
				fmt.Errorf("record %s has %d dimensions, index expects %d", r.ID, len(r.Values), s.dimension))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		values := make([]float32, len(r.Values))
		copy(values, r.Values)
		r.Values = values
		s.records[r.ID] = r
	}
	return nil
}

// Query returns up to topK matches ordered by descending cosine similarity.
func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int, filter schema.Filter) ([]schema.Match, error) {
	if len(vector) != s.dimension {
		return nil, errs.Wrap(errs.StageQuery, errs.ErrVectorStore,
			fmt.Errorf("query vector has %d dimensions, index expects %d", len(vector), s.dimension))
	}
	if topK <= 0 {
		return []schema.Match{}, nil
	}

	s.mu.RLock()
	matches := make([]schema.Match, 0, len(s.records))
	for _, r := range s.records {
		if !matchesFilter(r.Metadata, filter) {
			continue
		}
		matches = append(matches, schema.Match{
			ID:       r.ID,
			Score:    cosine(vector, r.Values),
			Metadata: r.Metadata,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.Metadata.DocumentID == documentID {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteByIDs(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*schema.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &schema.IndexStats{
		Name:        "memory",
		Dimension:   s.dimension,
		Metric:      "COSINE",
		VectorCount: int64(len(s.records)),
	}, nil
}

// IDs returns the stored record ids, sorted.
func (s *MemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func matchesFilter(m schema.VectorMetadata, f schema.Filter) bool {
	if f.DocumentID != "" && m.DocumentID != f.DocumentID {
		return false
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	return true
}

// cosine returns 0 when either vector has zero magnitude.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ interfaces.VectorStore = (*MemoryStore)(nil)
