package dal

import (
	"context"
	"testing"
	"time"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/rag/errs"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDAL(t *testing.T) *DocumentDAL {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	d := NewDocumentDAL(db)
	require.NoError(t, d.AutoMigrate())
	return d
}

func newDoc(id, category string, status models.DocumentStatus) *models.Document {
	return &models.Document{
		ID:         id,
		FileName:   id + ".pdf",
		FileSize:   1024,
		Category:   category,
		Status:     status,
		ChunkCount: 3,
	}
}

func TestDocumentDAL_CreateGet(t *testing.T) {
	ctx := context.Background()
	d := newTestDAL(t)

	require.NoError(t, d.Create(ctx, newDoc("d1", "recruiting", models.DocumentStatusProcessing)))

	got, err := d.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1.pdf", got.FileName)
	assert.Equal(t, models.DocumentStatusProcessing, got.Status)
	assert.Equal(t, 3, got.ChunkCount)
	assert.False(t, got.UploadDate.IsZero())

	_, err = d.Get(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDocumentDAL_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	d := newTestDAL(t)
	require.NoError(t, d.Create(ctx, newDoc("d1", "general", models.DocumentStatusProcessing)))

	require.NoError(t, d.UpdateStatus(ctx, "d1", models.DocumentStatusFailed, "embed: boom"))
	got, err := d.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFailed, got.Status)
	assert.Equal(t, "embed: boom", got.ErrorMessage)

	assert.ErrorIs(t, d.UpdateStatus(ctx, "missing", models.DocumentStatusReady, ""), errs.ErrNotFound)
}

func TestDocumentDAL_UpdateStatusUnchangedRow(t *testing.T) {
	ctx := context.Background()
	d := newTestDAL(t)
	require.NoError(t, d.Create(ctx, newDoc("d1", "general", models.DocumentStatusFailed)))

	// Report zero affected rows the way MySQL does when no value changes.
	require.NoError(t, d.db.Callback().Update().After("gorm:update").
		Register("test:changed_rows_only", func(tx *gorm.DB) { tx.RowsAffected = 0 }))

	require.NoError(t, d.UpdateStatus(ctx, "d1", models.DocumentStatusFailed, ""))
	assert.ErrorIs(t, d.UpdateStatus(ctx, "missing", models.DocumentStatusFailed, ""), errs.ErrNotFound)
}

func TestDocumentDAL_ListFilter(t *testing.T) {
	ctx := context.Background()
	d := newTestDAL(t)
	require.NoError(t, d.Create(ctx, newDoc("a", "recruiting", models.DocumentStatusReady)))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, d.Create(ctx, newDoc("b", "technical", models.DocumentStatusReady)))
	require.NoError(t, d.Create(ctx, newDoc("c", "recruiting", models.DocumentStatusFailed)))

	all, err := d.List(ctx, models.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rec, err := d.List(ctx, models.DocumentFilter{Category: "recruiting"})
	require.NoError(t, err)
	assert.Len(t, rec, 2)

	readyRec, err := d.List(ctx, models.DocumentFilter{Category: "recruiting", Status: models.DocumentStatusReady})
	require.NoError(t, err)
	require.Len(t, readyRec, 1)
	assert.Equal(t, "a", readyRec[0].ID)

	counts, err := d.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[models.DocumentStatusReady])
	assert.EqualValues(t, 1, counts[models.DocumentStatusFailed])
}

func TestDocumentDAL_DeleteCascadesErrors(t *testing.T) {
	ctx := context.Background()
	d := newTestDAL(t)
	require.NoError(t, d.Create(ctx, newDoc("d1", "general", models.DocumentStatusFailed)))
	require.NoError(t, d.RecordError(ctx, &models.IngestionError{DocumentID: "d1", Stage: "embed", Message: "boom"}))

	recs, err := d.ListErrors(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "embed", recs[0].Stage)

	require.NoError(t, d.Delete(ctx, "d1"))
	_, err = d.Get(ctx, "d1")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	recs, err = d.ListErrors(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, recs)

	assert.ErrorIs(t, d.Delete(ctx, "d1"), errs.ErrNotFound)
}
