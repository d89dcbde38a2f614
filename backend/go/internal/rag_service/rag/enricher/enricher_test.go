package enricher

import (
	"testing"

	"Aethena/backend/go/internal/rag_service/rag/loaders"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileContext(ft schema.FileType, name string) schema.FileContext {
	return schema.FileContext{
		FileID:       "f1",
		TenantID:     "tenant-a",
		OriginalName: name,
		StoragePath:  "tenant-a/1700000000000-" + name,
		FileType:     ft,
	}
}

func TestEnrichPdfUsesPageMetadata(t *testing.T) {
	e := New(loaders.NewRegistry())
	units, err := e.Enrich([]schema.Fragment{
		{Text: "intro", Metadata: map[string]interface{}{"page": 1}},
		{Text: "body", Metadata: map[string]interface{}{"page": 2}},
	}, fileContext(schema.FileTypePDF, "security.pdf"))
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, 2, units[1].PositionOrZero())
	assert.Equal(t, "security.pdf", units[1].SourceLabel)
	assert.Equal(t, "security.pdf", units[1].SourceFile)
	assert.Equal(t, "tenant-a", units[1].TenantID)
	assert.Equal(t, schema.FileTypePDF, units[1].FileType)
	assert.NotEqual(t, units[0].ID, units[1].ID)
}

func TestEnrichCsvLabelsRows(t *testing.T) {
	e := New(loaders.NewRegistry())
	units, err := e.Enrich([]schema.Fragment{
		{Text: "a: 1", Metadata: map[string]interface{}{"row": 4}},
	}, fileContext(schema.FileTypeCSV, "data.csv"))
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "data.csv (Row 4)", units[0].SourceLabel)
	assert.Equal(t, 4, units[0].PositionOrZero())
}

func TestEnrichFallsBackToOrdinalAndSkipsBlanks(t *testing.T) {
	e := New(loaders.NewRegistry())
	units, err := e.Enrich([]schema.Fragment{
		{Text: "first"},
		{Text: "   "},
		{Text: "third"},
	}, fileContext(schema.FileTypeDOCX, "notes.docx"))
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, 1, units[0].PositionOrZero())
	assert.Equal(t, 3, units[1].PositionOrZero())
	assert.Equal(t, "notes.docx", units[1].SourceLabel)
}

func TestEnrichEmptyInput(t *testing.T) {
	units, err := New(loaders.NewRegistry()).Enrich(nil, fileContext(schema.FileTypePDF, "a.pdf"))
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestEnrichIsDeterministic(t *testing.T) {
	e := New(loaders.NewRegistry())
	frags := []schema.Fragment{{Text: "same", Metadata: map[string]interface{}{"page": 1}}}
	a, err := e.Enrich(frags, fileContext(schema.FileTypePDF, "a.pdf"))
	require.NoError(t, err)
	b, err := e.Enrich(frags, fileContext(schema.FileTypePDF, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, a[0].ID, b[0].ID)
}

func TestEnrichUnknownTypeFails(t *testing.T) {
	_, err := New(loaders.NewRegistry()).Enrich([]schema.Fragment{{Text: "x"}}, fileContext("pptx", "a.pptx"))
	assert.ErrorIs(t, err, schema.ErrUnsupportedFormat)
}
