package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
)

// InMemoryDocumentStore is a thread-safe, in-memory implementation of the
// DocumentStore interface. Callers always receive copies.
type InMemoryDocumentStore struct {
	mu     sync.RWMutex
	docs   map[string]*models.Document
	errors map[string][]models.IngestionError
	nextID uint
	now    func() time.Time
}

// NewInMemoryDocumentStore creates an empty store.
func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docs:   make(map[string]*models.Document),
		errors: make(map[string][]models.IngestionError),
		now:    time.Now,
	}
}

// Create stores a copy of doc, filling UploadDate if unset.
func (s *InMemoryDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if doc.UploadDate.IsZero() {
		doc.UploadDate = now
	}
	doc.UpdatedAt = now
	cp := *doc
	cp.IngestionErrors = nil
	s.docs[doc.ID] = &cp
	return nil
}

func (s *InMemoryDocumentStore) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return errs.ErrNotFound
	}
	doc.Status = status
	doc.ErrorMessage = errMsg
	doc.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

// List returns matching documents, newest first.
func (s *InMemoryDocumentStore) List(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error) {
	s.mu.RLock()
	out := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if filter.Category != "" && doc.Category != filter.Category {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		cp := *doc
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadDate.Equal(out[j].UploadDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadDate.After(out[j].UploadDate)
	})
	return out, nil
}

// Delete removes the document and its ingestion errors.
func (s *InMemoryDocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.docs, id)
	delete(s.errors, id)
	return nil
}

func (s *InMemoryDocumentStore) RecordError(ctx context.Context, rec *models.IngestionError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.errors[rec.DocumentID] = append(s.errors[rec.DocumentID], *rec)
	return nil
}

// ListErrors returns the ingestion errors recorded for a document, oldest first.
func (s *InMemoryDocumentStore) ListErrors(ctx context.Context, documentID string) ([]models.IngestionError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.IngestionError(nil), s.errors[documentID]...), nil
}

// CountByStatus returns the number of documents per status.
func (s *InMemoryDocumentStore) CountByStatus(ctx context.Context) (map[models.DocumentStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.DocumentStatus]int64)
	for _, doc := range s.docs {
		counts[doc.Status]++
	}
	return counts, nil
}

// compile-time check to ensure InMemoryDocumentStore implements the DocumentStore interface
var _ interfaces.DocumentStore = (*InMemoryDocumentStore)(nil)
