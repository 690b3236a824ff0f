package schema

import "fmt"

// Fixed category labels produced by the classifier. Callers may also supply
// any other string as a category.
const (
	CategoryAppInfo        = "app_info"
	CategoryCompanyInfo    = "company_info"
	CategoryProductDetails = "product_details"
	CategoryRecruiting     = "recruiting"
	CategoryTechnical      = "technical"
	CategoryGeneral        = "general"
)

// EmbeddingDimension is the length of every vector written to the index.
const EmbeddingDimension = 768

// Byte limits on metadata stored next to every vector. Values over a limit
// are rejected, never truncated.
const (
	MaxFileNameBytes  = 512
	MaxCategoryBytes  = 64
	MaxChunkTextBytes = 16384
)

// Extraction is the raw output of a loader.
type Extraction struct {
	// Text is the full extracted text, not yet normalised.
	Text string
	// PageCount is the number of pages (or sheets) in the source.
	PageCount int
	// Info holds document-level properties reported by the parser (title, author, ...).
	Info map[string]string
	// Metadata holds loader details such as the detected content type.
	Metadata map[string]string
}

// Chunk is a bounded substring of a document's normalised text.
// StartChar and EndChar are rune offsets into the normalised text.
type Chunk struct {
	Text      string
	Index     int
	StartChar int
	EndChar   int
	Length    int
}

// VectorMetadata is stored next to every vector. The chunk text is duplicated
// here so search results need no secondary lookup.
type VectorMetadata struct {
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	Category   string `json:"category"`
	ChunkIndex int    `json:"chunkIndex"`
	Text       string `json:"text"`
	UploadDate string `json:"uploadDate"`
	StartChar  int    `json:"startChar"`
	EndChar    int    `json:"endChar"`
	Length     int    `json:"length"`
}

// CheckLimits reports the first metadata field that exceeds its byte limit.
func (m VectorMetadata) CheckLimits() error {
	switch {
	case len(m.FileName) > MaxFileNameBytes:
		return fmt.Errorf("file name is %d bytes, limit is %d", len(m.FileName), MaxFileNameBytes)
	case len(m.Category) > MaxCategoryBytes:
		return fmt.Errorf("category is %d bytes, limit is %d", len(m.Category), MaxCategoryBytes)
	case len(m.Text) > MaxChunkTextBytes:
		return fmt.Errorf("chunk %d text is %d bytes, limit is %d", m.ChunkIndex, len(m.Text), MaxChunkTextBytes)
	}
	return nil
}

// VectorRecord is one embedded chunk as written to the vector index.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata VectorMetadata
}

// VectorID derives the deterministic record id for a document chunk, so that
// re-writing the same (document, chunk) pair overwrites instead of duplicating.
func VectorID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("doc_%s_chunk_%d", documentID, chunkIndex)
}

// Match is a single nearest-neighbour hit. Raw vector values are never returned.
type Match struct {
	ID       string
	Score    float32
	Metadata VectorMetadata
}

// Filter narrows a query by metadata equality. Empty fields are ignored.
type Filter struct {
	DocumentID string
	Category   string
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return f.DocumentID == "" && f.Category == ""
}

// IndexStats summarises the vector index.
type IndexStats struct {
	Name        string `json:"name"`
	Dimension   int    `json:"dimension"`
	Metric      string `json:"metric"`
	VectorCount int64  `json:"vectorCount"`
}

// SearchResult is what retrieval hands back to callers.
type SearchResult struct {
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
	DocumentID string  `json:"documentId"`
	FileName   string  `json:"fileName"`
	Category   string  `json:"category"`
	ChunkIndex int     `json:"chunkIndex"`
}
