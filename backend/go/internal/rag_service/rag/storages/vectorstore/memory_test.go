package vectorstore

import (
	"context"
	"fmt"
	"testing"

	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitWith(tenant, id, text string, vec ...float32) *schema.RetrievableUnit {
	return &schema.RetrievableUnit{
		ID:          id,
		Text:        text,
		TenantID:    tenant,
		SourceFile:  "doc.pdf",
		SourceLabel: "doc.pdf",
		FileType:    schema.FileTypePDF,
		Position:    schema.IntPtr(1),
		Embedding:   vec,
	}
}

func TestSearchNeverCrossesTenants(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex("aethena_")

	require.NoError(t, idx.Upsert(ctx, "tenant-a", []*schema.RetrievableUnit{
		unitWith("tenant-a", "a1", "alpha", 1, 0),
		unitWith("tenant-a", "a2", "alpha two", 0.9, 0.1),
	}))
	require.NoError(t, idx.Upsert(ctx, "tenant-b", []*schema.RetrievableUnit{
		unitWith("tenant-b", "b1", "beta", 1, 0),
	}))

	hits, err := idx.SimilaritySearch(ctx, "tenant-b", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b1", hits[0].Unit.ID)
	for _, h := range hits {
		assert.Equal(t, "tenant-b", h.Unit.TenantID)
	}

	hits, err = idx.SimilaritySearch(ctx, "tenant-c", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTenantsThatEscapeAlikeStayApart(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex("p_")
	require.NoError(t, idx.Upsert(ctx, "a_2d", []*schema.RetrievableUnit{unitWith("a_2d", "x", "one", 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, "a-", []*schema.RetrievableUnit{unitWith("a-", "y", "two", 1, 0)}))

	assert.Equal(t, 1, idx.Len("a_2d"))
	assert.Equal(t, 1, idx.Len("a-"))
}

func TestUpsertRejectsForeignUnits(t *testing.T) {
	idx := NewMemoryIndex("")
	err := idx.Upsert(context.Background(), "tenant-a", []*schema.RetrievableUnit{unitWith("tenant-b", "b1", "x", 1)})
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
	assert.Equal(t, 0, idx.Len("tenant-a"))
}

func TestSearchIsOrderedAndBoundedByK(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex("")
	var units []*schema.RetrievableUnit
	for i := 0; i < 8; i++ {
		units = append(units, unitWith("t", fmt.Sprintf("u%d", i), "text", float32(i), float32(8-i)))
	}
	require.NoError(t, idx.Upsert(ctx, "t", units))

	for _, k := range []int{1, 3, 5, 20} {
		hits, err := idx.SimilaritySearch(ctx, "t", []float32{1, 0.2}, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(hits), k)
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
	}

	hits, err := idx.SimilaritySearch(ctx, "t", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEqualScoresKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex("")
	require.NoError(t, idx.Upsert(ctx, "t", []*schema.RetrievableUnit{
		unitWith("t", "first", "a", 1, 1),
		unitWith("t", "second", "b", 2, 2),
		unitWith("t", "third", "c", 3, 3),
	}))

	for i := 0; i < 5; i++ {
		hits, err := idx.SimilaritySearch(ctx, "t", []float32{1, 1}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, []string{"first", "second", "third"},
			[]string{hits[0].Unit.ID, hits[1].Unit.ID, hits[2].Unit.ID})
	}
}

func TestUpsertReplacesUnitsWithSameID(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex("")
	require.NoError(t, idx.Upsert(ctx, "t", []*schema.RetrievableUnit{unitWith("t", "u1", "old", 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, "t", []*schema.RetrievableUnit{unitWith("t", "u1", "new", 1, 0)}))

	assert.Equal(t, 1, idx.Len("t"))
	hits, err := idx.SimilaritySearch(ctx, "t", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Unit.Text)
}

func TestSearchRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex("")
	require.NoError(t, idx.Upsert(ctx, "t", []*schema.RetrievableUnit{unitWith("t", "u1", "x", 1, 0)}))
	_, err := idx.SimilaritySearch(ctx, "t", []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
}

func TestStoredUnitsAreCopies(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex("")
	u := unitWith("t", "u1", "original", 1, 0)
	require.NoError(t, idx.Upsert(ctx, "t", []*schema.RetrievableUnit{u}))
	u.Text = "mutated"
	u.Embedding[0] = -1

	hits, err := idx.SimilaritySearch(ctx, "t", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "original", hits[0].Unit.Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}
