package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/enricher"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/loaders"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// IndexingPipeline orchestrates loading, enriching, splitting, embedding and
// storing the units of uploaded files.
type IndexingPipeline struct {
	files       interfaces.FileMetadataStore
	blobs       interfaces.BlobStore
	registry    *loaders.Registry
	enricher    *enricher.Enricher
	splitter    interfaces.Splitter
	embedder    interfaces.EmbeddingModel
	index       interfaces.VectorIndex
	tracker     interfaces.JobTracker
	log         *logger.Logger
	concurrency int
	tempDir     string
}

// IndexingOption configures optional IndexingPipeline behavior.
type IndexingOption func(*IndexingPipeline)

// WithJobTracker reports every status transition to t.
func WithJobTracker(t interfaces.JobTracker) IndexingOption {
	return func(p *IndexingPipeline) { p.tracker = t }
}

// WithConcurrency sets how many files of a batch are processed at once.
func WithConcurrency(n int) IndexingOption {
	return func(p *IndexingPipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithTempDir sets the parent directory for per-job download directories.
func WithTempDir(dir string) IndexingOption {
	return func(p *IndexingPipeline) { p.tempDir = dir }
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	files interfaces.FileMetadataStore,
	blobs interfaces.BlobStore,
	registry *loaders.Registry,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	index interfaces.VectorIndex,
	log *logger.Logger,
	opts ...IndexingOption,
) *IndexingPipeline {
	p := &IndexingPipeline{
		files:       files,
		blobs:       blobs,
		registry:    registry,
		enricher:    enricher.New(registry),
		splitter:    splitter,
		embedder:    embedder,
		index:       index,
		log:         log,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestOne runs a new job for a single file.
func (p *IndexingPipeline) IngestOne(ctx context.Context, tenantID, fileID string) (*schema.FileResult, error) {
	job := schema.NewIngestionJob(uuid.NewString(), fileID, tenantID)
	p.save(ctx, job)
	return p.Process(ctx, job)
}

// Process drives an existing pending job to a terminal state. The returned
// result is never nil; its Err matches the returned error.
func (p *IndexingPipeline) Process(ctx context.Context, job *schema.IngestionJob) (*schema.FileResult, error) {
	log := p.log.WithTrace(job.ID, job.TenantID)
	err := p.process(ctx, log, job)

	res := &schema.FileResult{
		JobID:        job.ID,
		FileID:       job.FileID,
		FileName:     job.OriginalName,
		UnitsIndexed: job.UnitCount,
	}
	if err != nil {
		if ferr := job.Fail(err); ferr != nil {
			log.Warn(ferr.Error())
		}
		p.save(ctx, job)
		log.WithError(models.ErrorInfo{
			Message:   err.Error(),
			Type:      schema.Code(err),
			Transient: schema.IsTransient(err),
		}).Error(fmt.Sprintf("ingestion of file %s failed", job.FileID))

		res.Status = schema.JobFailed
		res.UnitsIndexed = 0
		res.Error = err.Error()
		res.ErrorCode = schema.Code(err)
		res.Err = err
		return res, err
	}

	res.Status = job.Status
	log.Info(fmt.Sprintf("indexed %d units from %s", job.UnitCount, job.OriginalName))
	return res, nil
}

func (p *IndexingPipeline) process(ctx context.Context, log *logger.Logger, job *schema.IngestionJob) error {
	if job.TenantID == "" || job.FileID == "" {
		return fmt.Errorf("%w: tenant and file id are required", schema.ErrInvalidInput)
	}

	// 1. Resolve the metadata row; it must belong to the requesting tenant.
	doc, err := p.files.GetFile(ctx, job.FileID)
	if err != nil {
		return err
	}
	if doc.UserID != job.TenantID {
		return fmt.Errorf("%w: %s", schema.ErrMetadataNotFound, job.FileID)
	}
	job.StoragePath = doc.Path
	job.OriginalName = doc.FileName

	capability, err := p.registry.ResolveName(doc.FileName)
	if err != nil {
		return err
	}

	// 2. Download into a directory owned by this job.
	dir, err := os.MkdirTemp(p.tempDir, "aethena-ingest-*")
	if err != nil {
		return fmt.Errorf("%w: create temp dir: %w", schema.ErrDownload, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn(fmt.Sprintf("failed to remove temp dir %s: %v", dir, err))
		}
	}()
	local := filepath.Join(dir, "source"+filepath.Ext(doc.FileName))
	if err := p.blobs.Download(ctx, doc.Path, local); err != nil {
		return ensureKind(schema.ErrDownload, err)
	}

	// 3. Load.
	fragments, err := capability.Loader.Load(ctx, local)
	if err != nil {
		return ensureKind(schema.ErrLoad, err)
	}
	if err := p.advance(ctx, job, schema.JobLoaded); err != nil {
		return err
	}

	// 4. Enrich, then split oversized units.
	units, err := p.enricher.Enrich(fragments, schema.FileContext{
		FileID:       doc.ID,
		TenantID:     job.TenantID,
		OriginalName: doc.FileName,
		StoragePath:  doc.Path,
		FileType:     capability.Type,
	})
	if err != nil {
		return err
	}
	if p.splitter != nil {
		units = p.splitter.Split(units)
	}
	log.Debug(fmt.Sprintf("loaded %d fragments into %d units", len(fragments), len(units)))

	// 5. Embed.
	if len(units) > 0 {
		texts := make([]string, len(units))
		for i, u := range units {
			texts[i] = u.Text
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return ensureKind(schema.ErrEmbeddingService, err)
		}
		if len(vectors) != len(units) {
			return fmt.Errorf("%w: got %d vectors for %d units", schema.ErrEmbeddingService, len(vectors), len(units))
		}
		for i, u := range units {
			u.Embedding = vectors[i]
		}
	}
	if err := p.advance(ctx, job, schema.JobEmbedded); err != nil {
		return err
	}

	// 6. Store.
	if len(units) > 0 {
		if err := p.index.Upsert(ctx, job.TenantID, units); err != nil {
			return ensureKind(schema.ErrIndexUnavailable, err)
		}
	}
	job.UnitCount = len(units)
	return p.advance(ctx, job, schema.JobIndexed)
}

// IngestBatch ingests every file independently. One file's failure never
// aborts its siblings; results keep the input order. When every file fails
// the report is still returned, together with ErrBatchFailed.
func (p *IndexingPipeline) IngestBatch(ctx context.Context, tenantID string, fileIDs []string) (*schema.BatchReport, error) {
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: no files to ingest", schema.ErrInvalidInput)
	}

	results := make([]schema.FileResult, len(fileIDs))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, fileID := range fileIDs {
		g.Go(func() error {
			res, _ := p.IngestOne(ctx, tenantID, fileID)
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	report := &schema.BatchReport{TotalFiles: len(fileIDs), Results: results}
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", r.FileID, r.Error))
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		report.Succeeded++
		report.TotalUnitsIndexed += r.UnitsIndexed
	}
	p.log.WithPayload(map[string]interface{}{
		"tenant_id": tenantID,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"units":     report.TotalUnitsIndexed,
	}).Info("batch ingestion finished")

	if report.Succeeded == 0 {
		return report, fmt.Errorf("%w: %w", schema.ErrBatchFailed, firstErr)
	}
	return report, nil
}

func (p *IndexingPipeline) advance(ctx context.Context, job *schema.IngestionJob, next schema.JobStatus) error {
	if err := job.Advance(next); err != nil {
		return err
	}
	p.save(ctx, job)
	return nil
}

// save reports the job snapshot. Tracker failures never fail the job.
func (p *IndexingPipeline) save(ctx context.Context, job *schema.IngestionJob) {
	if p.tracker == nil {
		return
	}
	if err := p.tracker.Save(ctx, job); err != nil {
		p.log.WithTrace(job.ID, job.TenantID).Warn(fmt.Sprintf("failed to save job status %s: %v", job.Status, err))
	}
}

// ensureKind wraps err in kind unless it already carries a known kind.
func ensureKind(kind, err error) error {
	if errors.Is(err, kind) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
