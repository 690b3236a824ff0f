package models

import "time"

// DocumentStatus 表示文档在摄取流程中的状态。
type DocumentStatus string

const (
	// DocumentStatusProcessing 文档已创建，向量尚未全部写入。
	DocumentStatusProcessing DocumentStatus = "processing"
	// DocumentStatusReady 所有分块均已嵌入并写入向量库。
	DocumentStatusReady DocumentStatus = "ready"
	// DocumentStatusFailed 摄取过程中发生不可恢复的错误。
	DocumentStatusFailed DocumentStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusReady || s == DocumentStatusFailed
}

// Document is the durable record of an uploaded knowledge document.
// ChunkCount is fixed at creation time.
type Document struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	FileName     string         `gorm:"size:512;not null" json:"fileName"`
	FileSize     int64          `gorm:"not null" json:"fileSize"`
	Category     string         `gorm:"size:64;index;not null" json:"category"`
	UploadedBy   string         `gorm:"size:255" json:"uploadedBy,omitempty"`
	Status       DocumentStatus `gorm:"size:16;index;not null;default:'processing'" json:"status"`
	ChunkCount   int            `gorm:"not null;default:0" json:"chunkCount"`
	PageCount    int            `gorm:"not null;default:0" json:"pageCount"`
	ErrorMessage string         `gorm:"type:text" json:"errorMessage,omitempty"`
	UploadDate   time.Time      `gorm:"autoCreateTime" json:"uploadDate"`
	UpdatedAt    time.Time      `json:"updatedAt"`

	IngestionErrors []IngestionError `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定文档表名。
func (Document) TableName() string {
	return "rag_documents"
}

// IngestionError records why a document ended up failed.
type IngestionError struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"size:36;index;not null" json:"documentId"`
	Stage      string    `gorm:"size:32;not null" json:"stage"`
	Message    string    `gorm:"type:text" json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName 指定摄取错误表名。
func (IngestionError) TableName() string {
	return "rag_ingestion_errors"
}

// DocumentFilter narrows document listings. Empty fields are ignored.
type DocumentFilter struct {
	Category string
	Status   DocumentStatus
}
