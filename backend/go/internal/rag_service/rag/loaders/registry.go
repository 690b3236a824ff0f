package loaders

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"

	"github.com/gabriel-vasile/mimetype"
)

// Content types with a registered loader.
const (
	MimePDF  = "application/pdf"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeHTML = "text/html"
	MimeText = "text/plain"
)

var extensionTypes = map[string]string{
	".pdf":      MimePDF,
	".xlsx":     MimeXLSX,
	".html":     MimeHTML,
	".htm":      MimeHTML,
	".txt":      MimeText,
	".md":       MimeText,
	".markdown": MimeText,
}

// Registry picks a loader by sniffing the buffer's content type. When the
// bytes are inconclusive the file extension decides.
type Registry struct {
	loaders map[string]interfaces.Loader
}

// NewRegistry returns a registry with the PDF, XLSX, HTML and text loaders.
func NewRegistry() *Registry {
	return &Registry{
		loaders: map[string]interfaces.Loader{
			MimePDF:  NewPdfLoader(),
			MimeXLSX: NewXlsxLoader(),
			MimeHTML: NewHTMLLoader(),
			MimeText: NewTxtLoader(),
		},
	}
}

// Register adds or replaces the loader for a content type.
func (r *Registry) Register(contentType string, loader interfaces.Loader) {
	r.loaders[contentType] = loader
}

// DetectType returns the registered content type for buf, or "" if none fits.
func (r *Registry) DetectType(buf []byte, fileName string) string {
	detected := mimetype.Detect(buf)
	for m := detected; m != nil; m = m.Parent() {
		base := strings.TrimSpace(strings.SplitN(m.String(), ";", 2)[0])
		if _, ok := r.loaders[base]; ok {
			// Generic text defers to the extension so .html saved as text still parses.
			if base == MimeText {
				if byExt := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; byExt != "" {
					return byExt
				}
			}
			return base
		}
	}
	return ""
}

// Load detects the content type and extracts text with the matching loader.
func (r *Registry) Load(ctx context.Context, buf []byte, fileName string) (*schema.Extraction, error) {
	if len(buf) == 0 {
		return nil, errs.Wrap(errs.StageExtract, errs.ErrExtraction, fmt.Errorf("%s is empty", fileName))
	}
	contentType := r.DetectType(buf, fileName)
	loader, ok := r.loaders[contentType]
	if !ok {
		return nil, errs.Wrap(errs.StageExtract, errs.ErrExtraction,
			fmt.Errorf("unsupported content type %q for %s", mimetype.Detect(buf).String(), fileName))
	}
	ext, err := loader.Load(ctx, buf, fileName)
	if err != nil {
		return nil, err
	}
	if ext.Metadata == nil {
		ext.Metadata = map[string]string{}
	}
	ext.Metadata["file_name"] = fileName
	return ext, nil
}

// compile-time check to ensure Registry implements the Loader interface
var _ interfaces.Loader = (*Registry)(nil)
