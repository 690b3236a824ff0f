package loaders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"Outreach/backend/go/internal/rag_service/rag/errs"
)

func TestRegistry_PlainText(t *testing.T) {
	r := NewRegistry()
	ext, err := r.Load(context.Background(), []byte("Hello recruiters.\nSecond line."), "notes.txt")

	require.NoError(t, err)
	assert.Equal(t, "Hello recruiters.\nSecond line.", ext.Text)
	assert.Equal(t, 1, ext.PageCount)
	assert.Equal(t, "notes.txt", ext.Metadata["file_name"])
}

func TestRegistry_HTML(t *testing.T) {
	r := NewRegistry()
	page := []byte("<html><body><h1>Careers</h1><p>We are <strong>hiring</strong> interns.</p></body></html>")

	assert.Equal(t, MimeHTML, r.DetectType(page, "careers.html"))

	ext, err := r.Load(context.Background(), page, "careers.html")
	require.NoError(t, err)
	assert.Contains(t, ext.Text, "# Careers")
	assert.Contains(t, ext.Text, "**hiring**")
}

func TestRegistry_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Role"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Team"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Intern"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "Platform"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	r := NewRegistry()
	ext, err := r.Load(context.Background(), buf.Bytes(), "roles.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, ext.PageCount)
	assert.Contains(t, ext.Text, "| Role | Team |")
	assert.Contains(t, ext.Text, "| Intern | Platform |")
}

func TestRegistry_EmptyBuffer(t *testing.T) {
	_, err := NewRegistry().Load(context.Background(), nil, "empty.pdf")
	assert.ErrorIs(t, err, errs.ErrExtraction)
}

func TestRegistry_UnsupportedBinary(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0x00, 0x10, 0x80, 0x81}
	_, err := NewRegistry().Load(context.Background(), buf, "blob.bin")
	assert.ErrorIs(t, err, errs.ErrExtraction)
}

func TestRegistry_MalformedPDF(t *testing.T) {
	buf := []byte("%PDF-1.7\nthis is not really a pdf body\n%%EOF")
	_, err := NewRegistry().Load(context.Background(), buf, "broken.pdf")
	assert.ErrorIs(t, err, errs.ErrExtraction)
}

func TestTxtLoader_InvalidUTF8(t *testing.T) {
	_, err := NewTxtLoader().Load(context.Background(), []byte{0xff, 0xfe, 0xfd}, "bad.txt")
	assert.ErrorIs(t, err, errs.ErrExtraction)
}
