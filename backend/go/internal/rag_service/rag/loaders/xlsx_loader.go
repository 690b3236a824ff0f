package loaders

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"Outreach/backend/go/internal/rag_service/rag/errs"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"

	"github.com/xuri/excelize/v2"
)

// XlsxLoader implements the Loader interface for Excel (.xlsx) workbooks.
type XlsxLoader struct{}

// NewXlsxLoader creates a new XlsxLoader.
func NewXlsxLoader() *XlsxLoader {
	return &XlsxLoader{}
}

// Load converts each sheet to a Markdown table. Sheets count as pages.
func (l *XlsxLoader) Load(ctx context.Context, buf []byte, fileName string) (*schema.Extraction, error) {
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return nil, errs.Wrap(errs.StageExtract, errs.ErrExtraction, fmt.Errorf("open %s: %w", fileName, err))
	}
	defer f.Close()

	sheetList := f.GetSheetList()
	sheets := make([]string, 0, len(sheetList))
	for _, sheetName := range sheetList {
		rows, err := f.GetRows(sheetName)
		if err != nil || len(rows) == 0 {
			// Skip sheet if rows can't be read
			continue
		}

		var mdBuilder strings.Builder
		mdBuilder.WriteString("## " + sheetName + "\n\n")
		mdBuilder.WriteString("| " + strings.Join(rows[0], " | ") + " |\n")
		mdBuilder.WriteString("|" + strings.Repeat("---|", len(rows[0])) + "\n")
		for _, row := range rows[1:] {
			mdBuilder.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		sheets = append(sheets, mdBuilder.String())
	}

	return &schema.Extraction{
		Text:      strings.Join(sheets, "\n\n"),
		PageCount: len(sheetList),
		Info:      map[string]string{},
		Metadata: map[string]string{
			"content_type": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"sheets":       strings.Join(sheetList, ","),
		},
	}, nil
}

// compile-time check to ensure XlsxLoader implements the Loader interface
var _ interfaces.Loader = (*XlsxLoader)(nil)
