package pipeline

import (
	"context"
	"testing"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/loaders"
	"Aethena/backend/go/internal/rag_service/rag/splitters"
	"Aethena/backend/go/internal/rag_service/rag/storages/jobstore"
	"Aethena/backend/go/internal/rag_service/rag/storages/vectorstore"
	"Aethena/backend/go/internal/rag_service/rag/testutil"
	"Aethena/backend/go/pkg/logger"
	"github.com/stretchr/testify/require"
)

// harness wires both pipelines over in-memory collaborators.
type harness struct {
	files    *testutil.MemoryFiles
	blobs    *testutil.MemoryBlobs
	index    *vectorstore.MemoryIndex
	embedder *testutil.HashEmbedder
	llm      *testutil.StubLLM
	history  *testutil.MemoryHistory
	jobs     *jobstore.MemoryTracker
	tempDir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		files:    testutil.NewMemoryFiles(),
		blobs:    testutil.NewMemoryBlobs(),
		index:    vectorstore.NewMemoryIndex("aethena_"),
		embedder: testutil.NewHashEmbedder(),
		llm:      &testutil.StubLLM{},
		history:  testutil.NewMemoryHistory(),
		jobs:     jobstore.NewMemoryTracker(),
		tempDir:  t.TempDir(),
	}
}

func (h *harness) indexing(opts ...IndexingOption) *IndexingPipeline {
	opts = append([]IndexingOption{WithJobTracker(h.jobs), WithTempDir(h.tempDir)}, opts...)
	return NewIndexingPipeline(h.files, h.blobs, loaders.NewRegistry(), splitters.NewRuneSplitter(1000, 100),
		h.embedder, h.index, logger.NewDiscard(), opts...)
}

func (h *harness) query(opts ...QueryOption) *QueryPipeline {
	log := logger.NewDiscard()
	return NewQueryPipeline(
		NewRetrievalPipeline(h.embedder, h.index, DefaultTopK, log),
		NewQAPipeline(h.llm, log),
		h.history, log, opts...)
}

// upload stores a file and its metadata row, returning the file ID.
func (h *harness) upload(t *testing.T, tenant, name string, data []byte) string {
	t.Helper()
	path := tenant + "/" + name
	h.blobs.Put(path, data)
	doc := &models.DocumentMetadata{UserID: tenant, FileName: name, Path: path}
	require.NoError(t, h.files.CreateFile(context.Background(), doc))
	return doc.ID
}
