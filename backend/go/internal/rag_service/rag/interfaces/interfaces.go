package interfaces

import (
	"context"
	"io"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/schema"
)

// Loader turns a local file into ordered text fragments with positional metadata.
type Loader interface {
	Load(ctx context.Context, path string) ([]schema.Fragment, error)
}

// Splitter breaks oversized units into smaller ones that keep their source tags.
type Splitter interface {
	Split(units []*schema.RetrievableUnit) []*schema.RetrievableUnit
}

// EmbeddingModel converts text into fixed-length vectors.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the per-tenant collection gateway over a vector store.
// Implementations must never return units that belong to another tenant.
type VectorIndex interface {
	Upsert(ctx context.Context, tenantID string, units []*schema.RetrievableUnit) error
	SimilaritySearch(ctx context.Context, tenantID string, vector []float32, k int) ([]schema.SearchHit, error)
}

// LLM generates text from a system instruction and a user message.
type LLM interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// FileMetadataStore resolves uploaded-file records.
type FileMetadataStore interface {
	CreateFile(ctx context.Context, doc *models.DocumentMetadata) error
	GetFile(ctx context.Context, fileID string) (*models.DocumentMetadata, error)
	ListFilesByUser(ctx context.Context, userID string) ([]*models.DocumentMetadata, error)
}

// BlobStore holds the raw uploaded files.
type BlobStore interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName, localPath string) error
}

// HistoryRecorder persists question/answer exchanges per tenant.
type HistoryRecorder interface {
	Record(ctx context.Context, h *models.QueryHistory) error
	List(ctx context.Context, tenantID string, limit int) ([]*models.QueryHistory, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// JobTracker stores ingestion job snapshots for status polling.
type JobTracker interface {
	Save(ctx context.Context, job *schema.IngestionJob) error
	Get(ctx context.Context, jobID string) (*schema.IngestionJob, error)
}
