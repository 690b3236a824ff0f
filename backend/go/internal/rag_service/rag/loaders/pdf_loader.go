package loaders

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"

	"github.com/ledongthuc/pdf"
)

// PdfLoader implements the Loader interface for PDF documents held in memory.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load parses the PDF and concatenates the plain text of every page, separated
// by blank lines. The document info dictionary is returned in Info.
func (l *PdfLoader) Load(ctx context.Context, buf []byte, fileName string) (ext *schema.Extraction, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			ext = nil
			err = errs.Wrap(errs.StageExtract, errs.ErrExtraction, fmt.Errorf("parse %s: %v", fileName, r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, errs.Wrap(errs.StageExtract, errs.ErrExtraction, fmt.Errorf("open %s: %w", fileName, err))
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, errs.Wrap(errs.StageExtract, errs.ErrExtraction, fmt.Errorf("read page %d of %s: %w", i, fileName, err))
		}
		pages = append(pages, text)
	}

	return &schema.Extraction{
		Text:      strings.Join(pages, "\n\n"),
		PageCount: numPages,
		Info:      pdfInfo(reader),
		Metadata:  map[string]string{"content_type": "application/pdf"},
	}, nil
}

// pdfInfo reads string entries of the trailer's Info dictionary.
func pdfInfo(reader *pdf.Reader) map[string]string {
	info := make(map[string]string)
	dict := reader.Trailer().Key("Info")
	if dict.IsNull() {
		return info
	}
	for _, key := range dict.Keys() {
		val := dict.Key(key)
		if val.Kind() == pdf.String {
			info[key] = val.Text()
		}
	}
	return info
}

// compile-time check to ensure PdfLoader implements the Loader interface
var _ interfaces.Loader = (*PdfLoader)(nil)
