package dal

import (
	"context"
	"testing"

	"Aethena/backend/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileGetByID(t *testing.T) {
	db, rec := dryRunDB(t)
	_, err := NewFileDAL(db).GetFile(context.Background(), "f1")
	require.NoError(t, err)

	sql := rec.last()
	assert.Contains(t, sql, "FROM `documents_metadata`")
	assert.Contains(t, sql, "id = 'f1'")
	assert.Contains(t, sql, "LIMIT 1")
}

func TestFileCreateGeneratesID(t *testing.T) {
	db, rec := dryRunDB(t)
	doc := &models.DocumentMetadata{UserID: "t", FileName: "a.pdf", Path: "t/1-a.pdf"}
	require.NoError(t, NewFileDAL(db).CreateFile(context.Background(), doc))
	assert.NotEmpty(t, doc.ID)
	assert.Contains(t, rec.last(), "INSERT INTO `documents_metadata`")
}

func TestFileListByUser(t *testing.T) {
	db, rec := dryRunDB(t)
	_, err := NewFileDAL(db).ListFilesByUser(context.Background(), "t")
	require.NoError(t, err)
	assert.Contains(t, rec.last(), "user_id = 't' ORDER BY uploaded_at DESC")
}
