package dal

import (
	"context"
	"errors"
	"fmt"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"

	"gorm.io/gorm"
)

// DocumentDAL provides data access methods for knowledge documents.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a new DocumentDAL.
func NewDocumentDAL(db *gorm.DB) *DocumentDAL {
	return &DocumentDAL{db: db}
}

// AutoMigrate creates or updates the document tables.
func (dal *DocumentDAL) AutoMigrate() error {
	return dal.db.AutoMigrate(&models.Document{}, &models.IngestionError{})
}

// Create inserts a new document record.
func (dal *DocumentDAL) Create(ctx context.Context, doc *models.Document) error {
	if err := dal.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document %s: %w", doc.ID, err)
	}
	return nil
}

// UpdateStatus sets the status and error message of a document.
func (dal *DocumentDAL) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, errMsg string) error {
	result := dal.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errMsg,
		})
	if result.Error != nil {
		return fmt.Errorf("update status of document %s: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// MySQL 默认只统计值真正改变的行，写入相同的值也会得到 0
	var n int64
	if err := dal.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check document %s: %w", id, err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Get returns the document with the given id, or errs.ErrNotFound.
func (dal *DocumentDAL) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := dal.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &doc, nil
}

// List returns documents matching the filter, newest first.
func (dal *DocumentDAL) List(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error) {
	q := dal.db.WithContext(ctx).Model(&models.Document{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var docs []*models.Document
	if err := q.Order("upload_date DESC").Order("id").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document and its ingestion-error rows in one transaction.
func (dal *DocumentDAL) Delete(ctx context.Context, id string) error {
	return dal.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.IngestionError{}).Error; err != nil {
			return fmt.Errorf("delete ingestion errors of %s: %w", id, err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Document{})
		if result.Error != nil {
			return fmt.Errorf("delete document %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// RecordError stores an ingestion-error row.
func (dal *DocumentDAL) RecordError(ctx context.Context, rec *models.IngestionError) error {
	if err := dal.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("record ingestion error for %s: %w", rec.DocumentID, err)
	}
	return nil
}

// ListErrors returns the ingestion errors recorded for a document, oldest first.
func (dal *DocumentDAL) ListErrors(ctx context.Context, documentID string) ([]models.IngestionError, error) {
	var recs []models.IngestionError
	err := dal.db.WithContext(ctx).Where("document_id = ?", documentID).Order("id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list ingestion errors of %s: %w", documentID, err)
	}
	return recs, nil
}

// CountByStatus returns the number of documents per status.
func (dal *DocumentDAL) CountByStatus(ctx context.Context) (map[models.DocumentStatus]int64, error) {
	var rows []struct {
		Status models.DocumentStatus
		Count  int64
	}
	err := dal.db.WithContext(ctx).
		Model(&models.Document{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	counts := make(map[models.DocumentStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// compile-time check to ensure DocumentDAL implements the DocumentStore interface
var _ interfaces.DocumentStore = (*DocumentDAL)(nil)
