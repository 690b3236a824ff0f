package loaders

import (
	"context"
	"fmt"

	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// HTMLLoader implements the Loader interface for saved web pages. Markup is
// converted to Markdown so headings and lists keep their shape.
type HTMLLoader struct{}

// NewHTMLLoader creates a new HTMLLoader.
func NewHTMLLoader() *HTMLLoader {
	return &HTMLLoader{}
}

// Load converts the HTML to Markdown text.
func (l *HTMLLoader) Load(ctx context.Context, buf []byte, fileName string) (*schema.Extraction, error) {
	markdown, err := htmltomarkdown.ConvertString(string(buf))
	if err != nil {
		return nil, errs.Wrap(errs.StageExtract, errs.ErrExtraction, fmt.Errorf("convert %s: %w", fileName, err))
	}
	return &schema.Extraction{
		Text:      markdown,
		PageCount: 1,
		Info:      map[string]string{},
		Metadata:  map[string]string{"content_type": "text/html"},
	}, nil
}

// compile-time check to ensure HTMLLoader implements the Loader interface
var _ interfaces.Loader = (*HTMLLoader)(nil)
