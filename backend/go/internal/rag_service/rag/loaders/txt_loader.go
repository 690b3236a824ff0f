package loaders

import (
	"context"
	"fmt"
	"unicode/utf8"

	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"
)

// TxtLoader implements the Loader interface for plain text and Markdown.
type TxtLoader struct{}

// NewTxtLoader creates a new TxtLoader.
func NewTxtLoader() *TxtLoader {
	return &TxtLoader{}
}

// Load returns the buffer as text. Invalid UTF-8 is rejected.
func (l *TxtLoader) Load(ctx context.Context, buf []byte, fileName string) (*schema.Extraction, error) {
	if !utf8.Valid(buf) {
		return nil, errs.Wrap(errs.StageExtract, errs.ErrExtraction, fmt.Errorf("%s is not valid UTF-8 text", fileName))
	}
	return &schema.Extraction{
		Text:      string(buf),
		PageCount: 1,
		Info:      map[string]string{},
		Metadata:  map[string]string{"content_type": "text/plain"},
	}, nil
}

// compile-time check to ensure TxtLoader implements the Loader interface
var _ interfaces.Loader = (*TxtLoader)(nil)
