package jobstore

import (
	"context"
	"fmt"
	"sync"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
)

// MemoryTracker is a thread-safe, in-process JobTracker. Snapshots are
// copied on the way in and out so callers can keep mutating their job.
type MemoryTracker struct {
	mu   sync.RWMutex
	jobs map[string]schema.IngestionJob
}

// NewMemoryTracker creates an empty MemoryTracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{jobs: make(map[string]schema.IngestionJob)}
}

func (t *MemoryTracker) Save(_ context.Context, job *schema.IngestionJob) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[job.ID] = *job
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, jobID string) (*schema.IngestionJob, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", schema.ErrNotFound, jobID)
	}
	return &job, nil
}

var _ interfaces.JobTracker = (*MemoryTracker)(nil)
