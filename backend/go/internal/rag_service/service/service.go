package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/events"
	"Aethena/backend/go/internal/rag_service/export"
	"Aethena/backend/go/internal/rag_service/rag/dal"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/pipeline"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrAsyncDisabled is returned by IngestAsync when no queue is configured.
var ErrAsyncDisabled = errors.New("async ingestion is not configured")

// Publisher enqueues ingest requests for the worker.
type Publisher interface {
	Publish(ctx context.Context, req events.IngestRequest) error
}

// HealthCheck checks one backend.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of a Server. Jobs, Publisher and Checks are optional.
type Deps struct {
	Files     interfaces.FileMetadataStore
	Blobs     interfaces.BlobStore
	History   interfaces.HistoryRecorder
	Indexing  *pipeline.IndexingPipeline
	Query     *pipeline.QueryPipeline
	Jobs      interfaces.JobTracker
	Publisher Publisher
	Checks    map[string]HealthCheck
}

// Server exposes the tenant-scoped document operations. Every method takes
// the tenant resolved by the transport layer; nothing here trusts a tenant
// ID taken from a request body.
type Server struct {
	deps         Deps
	log          *logger.Logger
	maxUpload    int64
	historyLimit int
	now          func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes rejects uploads larger than n bytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// WithHistoryLimit sets the default page size for history listings.
func WithHistoryLimit(n int) Option {
	return func(s *Server) { s.historyLimit = dal.ClampLimit(n) }
}

// NewServer creates a new Server.
func NewServer(deps Deps, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		log:          log,
		maxUpload:    50 << 20,
		historyLimit: dal.MaxHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestFile ingests one uploaded file.
func (s *Server) IngestFile(ctx context.Context, tenantID, fileID string) (*schema.FileResult, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, fmt.Errorf("%w: fileId is required", schema.ErrInvalidInput)
	}
	return s.deps.Indexing.IngestOne(ctx, tenantID, fileID)
}

// IngestBatch ingests several files independently.
func (s *Server) IngestBatch(ctx context.Context, tenantID string, fileIDs []string) (*schema.BatchReport, error) {
	return s.deps.Indexing.IngestBatch(ctx, tenantID, fileIDs)
}

// IngestAsync creates a pending job per file and hands them to the worker.
// Ownership is checked up front so a foreign file ID never reaches the queue.
// When a publish fails, the jobs handed over so far are returned together
// with the error, followed by the failed job; later files are not enqueued.
func (s *Server) IngestAsync(ctx context.Context, tenantID, traceID string, fileIDs []string) ([]*schema.IngestionJob, error) {
	if s.deps.Publisher == nil || s.deps.Jobs == nil {
		return nil, ErrAsyncDisabled
	}
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: no files to ingest", schema.ErrInvalidInput)
	}
	for _, id := range fileIDs {
		if _, err := s.ownedFile(ctx, tenantID, id); err != nil {
			return nil, err
		}
	}

	jobs := make([]*schema.IngestionJob, 0, len(fileIDs))
	for _, id := range fileIDs {
		job := schema.NewIngestionJob(uuid.NewString(), id, tenantID)
		if err := s.deps.Jobs.Save(ctx, job); err != nil {
			return nil, fmt.Errorf("save job: %w", err)
		}
		err := s.deps.Publisher.Publish(ctx, events.IngestRequest{
			JobID:    job.ID,
			FileID:   id,
			TenantID: tenantID,
			TraceID:  traceID,
		})
		if err != nil {
			_ = job.Fail(err)
			_ = s.deps.Jobs.Save(ctx, job)
			return append(jobs, job), fmt.Errorf("enqueue file %s: %w", id, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// JobStatus returns the tenant's job snapshot.
func (s *Server) JobStatus(ctx context.Context, tenantID, jobID string) (*schema.IngestionJob, error) {
	if s.deps.Jobs == nil {
		return nil, ErrAsyncDisabled
	}
	job, err := s.deps.Jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TenantID != tenantID {
		return nil, fmt.Errorf("%w: job %s", schema.ErrNotFound, jobID)
	}
	return job, nil
}

// Query answers a question from the tenant's documents.
func (s *Server) Query(ctx context.Context, tenantID, question string) (*schema.Answer, error) {
	return s.deps.Query.Run(ctx, tenantID, question)
}

// ListFiles returns the tenant's uploads.
func (s *Server) ListFiles(ctx context.Context, tenantID string) ([]*models.DocumentMetadata, error) {
	files, err := s.deps.Files.ListFilesByUser(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []*models.DocumentMetadata{}
	}
	return files, nil
}

// ListHistory returns the tenant's most recent exchanges first.
func (s *Server) ListHistory(ctx context.Context, tenantID string, limit int) ([]*models.QueryHistory, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	records, err := s.deps.History.List(ctx, tenantID, dal.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.QueryHistory{}
	}
	return records, nil
}

// DeleteHistory deletes one of the tenant's exchanges. Another tenant's
// record is reported as not found and left untouched.
func (s *Server) DeleteHistory(ctx context.Context, tenantID, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: history id is required", schema.ErrInvalidInput)
	}
	return s.deps.History.Delete(ctx, tenantID, id)
}

// ExportHistory writes the tenant's history to w and returns the suggested
// file name and content type.
func (s *Server) ExportHistory(ctx context.Context, tenantID string, format export.Format, w io.Writer) (string, string, error) {
	records, err := s.ListHistory(ctx, tenantID, dal.MaxHistoryLimit)
	if err != nil {
		return "", "", err
	}
	if err := export.Write(w, format, records); err != nil {
		return "", "", err
	}
	return export.Filename(format, s.now()), export.ContentType(format), nil
}

// Health runs every configured check concurrently and returns "ok" or the
// error text per backend. The error is non-nil if any check failed.
func (s *Server) Health(ctx context.Context) (map[string]string, error) {
	names := make([]string, 0, len(s.deps.Checks))
	for name := range s.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu     sync.Mutex
		report = make(map[string]string, len(names))
		failed []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		check := s.deps.Checks[name]
		g.Go(func() error {
			status := "ok"
			if err := check(gctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			report[name] = status
			if status != "ok" {
				failed = append(failed, name)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		sort.Strings(failed)
		return report, fmt.Errorf("unhealthy: %s", strings.Join(failed, ", "))
	}
	return report, nil
}

func (s *Server) ownedFile(ctx context.Context, tenantID, fileID string) (*models.DocumentMetadata, error) {
	doc, err := s.deps.Files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != tenantID {
		return nil, fmt.Errorf("%w: %s", schema.ErrMetadataNotFound, fileID)
	}
	return doc, nil
}
