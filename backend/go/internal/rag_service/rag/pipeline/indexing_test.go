package pipeline

import (
	"context"
	"os"
	"testing"

	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/internal/rag_service/rag/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricesCSV = "item,price\nwidget,10\ngadget,25\ndoohickey,7\n"

func TestBatchContinuesPastUnsupportedFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ids := []string{
		h.upload(t, "tenant-a", "guide.pdf", testutil.BuildPDF([]string{"Install the agent", "Configure the agent"})),
		h.upload(t, "tenant-a", "diagram.png", []byte{0x89, 'P', 'N', 'G'}),
		h.upload(t, "tenant-a", "prices.csv", []byte(pricesCSV)),
	}

	report, err := h.indexing().IngestBatch(ctx, "tenant-a", ids)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalFiles)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 5, report.TotalUnitsIndexed)
	require.Len(t, report.Results, 3)
	assert.ErrorIs(t, report.Results[1].Err, schema.ErrUnsupportedFormat)
	assert.Equal(t, "unsupported_format", report.Results[1].ErrorCode)
	assert.Equal(t, schema.JobIndexed, report.Results[0].Status)
	assert.Equal(t, schema.JobIndexed, report.Results[2].Status)
	assert.Len(t, report.Errors, 1)

	assert.Equal(t, 5, h.index.Len("tenant-a"))
}

func TestIngestDocxLabelsSections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.upload(t, "tenant-a", "handbook.docx", testutil.BuildDocx([]testutil.DocxParagraph{
		{Style: "Title", Text: "Handbook"},
		{Text: "Welcome aboard"},
		{Style: "Heading1", Text: "Leave"},
		{Text: "Twenty days per year"},
	}, nil))

	result, err := h.indexing().IngestOne(ctx, "tenant-a", id)
	require.NoError(t, err)
	assert.Equal(t, schema.JobIndexed, result.Status)
	assert.Equal(t, 2, result.UnitsIndexed)

	vec, err := h.embedder.Embed(ctx, "Twenty days per year")
	require.NoError(t, err)
	hits, err := h.index.SimilaritySearch(ctx, "tenant-a", vec, 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Len(t, hits, 2)
	sections := map[int]string{}
	for _, hit := range hits {
		assert.Equal(t, "handbook.docx", hit.Unit.SourceLabel)
		sections[hit.Unit.PositionOrZero()] = hit.Unit.Text
	}
	assert.Contains(t, sections[1], "Welcome aboard")
	assert.Contains(t, sections[2], "Twenty days per year")
}

func TestBatchKeepsInputOrderWhenParallel(t *testing.T) {
	h := newHarness(t)
	var ids []string
	for _, name := range []string{"a.csv", "b.csv", "c.csv", "d.csv"} {
		ids = append(ids, h.upload(t, "tenant-a", name, []byte("k,v\n"+name+",1\n")))
	}

	report, err := h.indexing(WithConcurrency(3)).IngestBatch(context.Background(), "tenant-a", ids)
	require.NoError(t, err)
	for i, r := range report.Results {
		assert.Equal(t, ids[i], r.FileID)
	}
	assert.Equal(t, 4, report.Succeeded)
}

func TestBatchFailsWhenEveryFileFails(t *testing.T) {
	h := newHarness(t)
	ids := []string{
		h.upload(t, "tenant-a", "a.png", []byte("x")),
		h.upload(t, "tenant-a", "b.txt", []byte("x")),
	}

	report, err := h.indexing().IngestBatch(context.Background(), "tenant-a", ids)
	assert.ErrorIs(t, err, schema.ErrBatchFailed)
	assert.ErrorIs(t, err, schema.ErrUnsupportedFormat)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Failed)
}

func TestBatchRejectsEmptyInput(t *testing.T) {
	_, err := newHarness(t).indexing().IngestBatch(context.Background(), "tenant-a", nil)
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
}

func TestIngestOneTracksStatus(t *testing.T) {
	h := newHarness(t)
	id := h.upload(t, "tenant-a", "prices.csv", []byte(pricesCSV))

	res, err := h.indexing().IngestOne(context.Background(), "tenant-a", id)
	require.NoError(t, err)
	assert.Equal(t, 3, res.UnitsIndexed)
	assert.Equal(t, "prices.csv", res.FileName)

	job, err := h.jobs.Get(context.Background(), res.JobID)
	require.NoError(t, err)
	assert.Equal(t, schema.JobIndexed, job.Status)
	assert.Equal(t, 3, job.UnitCount)
	assert.Equal(t, "tenant-a/prices.csv", job.StoragePath)
}

func TestIngestOneRejectsAnotherTenantsFile(t *testing.T) {
	h := newHarness(t)
	id := h.upload(t, "tenant-a", "prices.csv", []byte(pricesCSV))

	res, err := h.indexing().IngestOne(context.Background(), "tenant-b", id)
	assert.ErrorIs(t, err, schema.ErrMetadataNotFound)
	assert.Equal(t, schema.JobFailed, res.Status)
	assert.Zero(t, h.index.Len("tenant-a"))
	assert.Zero(t, h.index.Len("tenant-b"))

	job, err := h.jobs.Get(context.Background(), res.JobID)
	require.NoError(t, err)
	assert.Equal(t, schema.JobFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}

func TestIngestOneMissingMetadata(t *testing.T) {
	_, err := newHarness(t).indexing().IngestOne(context.Background(), "tenant-a", "file-404")
	assert.ErrorIs(t, err, schema.ErrMetadataNotFound)
}

func TestReingestReplacesUnits(t *testing.T) {
	h := newHarness(t)
	id := h.upload(t, "tenant-a", "prices.csv", []byte(pricesCSV))
	p := h.indexing()

	_, err := p.IngestOne(context.Background(), "tenant-a", id)
	require.NoError(t, err)
	_, err = p.IngestOne(context.Background(), "tenant-a", id)
	require.NoError(t, err)
	assert.Equal(t, 3, h.index.Len("tenant-a"))
}

func TestIngestFailureKinds(t *testing.T) {
	t.Run("download", func(t *testing.T) {
		h := newHarness(t)
		id := h.upload(t, "tenant-a", "prices.csv", []byte(pricesCSV))
		h.blobs.Err = testutil.ErrBoom
		_, err := h.indexing().IngestOne(context.Background(), "tenant-a", id)
		assert.ErrorIs(t, err, schema.ErrDownload)
		assert.True(t, schema.IsTransient(err))
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		h := newHarness(t)
		id := h.upload(t, "tenant-a", "broken.pdf", []byte("%PDF-1.4 not really"))
		res, err := h.indexing().IngestOne(context.Background(), "tenant-a", id)
		assert.ErrorIs(t, err, schema.ErrLoad)
		assert.False(t, schema.IsTransient(err))
		assert.Equal(t, "load_error", res.ErrorCode)
	})

	t.Run("embedding", func(t *testing.T) {
		h := newHarness(t)
		id := h.upload(t, "tenant-a", "prices.csv", []byte(pricesCSV))
		h.embedder.Err = testutil.ErrBoom
		res, err := h.indexing().IngestOne(context.Background(), "tenant-a", id)
		assert.ErrorIs(t, err, schema.ErrEmbeddingService)
		assert.Zero(t, res.UnitsIndexed)

		job, jerr := h.jobs.Get(context.Background(), res.JobID)
		require.NoError(t, jerr)
		assert.Equal(t, schema.JobFailed, job.Status)
	})
}

func TestTempDirIsRemoved(t *testing.T) {
	h := newHarness(t)
	id := h.upload(t, "tenant-a", "prices.csv", []byte(pricesCSV))
	_, err := h.indexing().IngestOne(context.Background(), "tenant-a", id)
	require.NoError(t, err)

	entries, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
