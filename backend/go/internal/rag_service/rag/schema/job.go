package schema

import (
	"fmt"
	"time"
)

// JobStatus is a step of the per-file ingestion state machine.
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobLoaded   JobStatus = "loaded"
	JobEmbedded JobStatus = "embedded"
	JobIndexed  JobStatus = "indexed"
	JobFailed   JobStatus = "failed"
)

func (s JobStatus) rank() int {
	switch s {
	case JobPending:
		return 0
	case JobLoaded:
		return 1
	case JobEmbedded:
		return 2
	case JobIndexed:
		return 3
	default:
		return -1
	}
}

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobIndexed || s == JobFailed
}

// IngestionJob tracks one file's path through the ingestion pipeline.
type IngestionJob struct {
	ID           string    `json:"jobId"`
	FileID       string    `json:"fileId"`
	TenantID     string    `json:"tenantId"`
	StoragePath  string    `json:"storagePath,omitempty"`
	OriginalName string    `json:"originalName,omitempty"`
	Status       JobStatus `json:"status"`
	Error        string    `json:"error,omitempty"`
	UnitCount    int       `json:"unitCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewIngestionJob creates a job in the pending state.
func NewIngestionJob(id, fileID, tenantID string) *IngestionJob {
	return &IngestionJob{
		ID:        id,
		FileID:    fileID,
		TenantID:  tenantID,
		Status:    JobPending,
		UpdatedAt: time.Now().UTC(),
	}
}

// Advance moves the job forward along pending → loaded → embedded → indexed.
func (j *IngestionJob) Advance(next JobStatus) error {
	if j.Status.Terminal() || next == JobFailed || next.rank() <= j.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail marks the job failed with the given cause.
func (j *IngestionJob) Fail(cause error) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobFailed)
	}
	j.Status = JobFailed
	if cause != nil {
		j.Error = cause.Error()
	}
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// FileResult is the outcome of ingesting one file.
type FileResult struct {
	JobID        string    `json:"jobId,omitempty"`
	FileID       string    `json:"fileId"`
	FileName     string    `json:"fileName,omitempty"`
	Status       JobStatus `json:"status"`
	UnitsIndexed int       `json:"unitsIndexed"`
	Error        string    `json:"error,omitempty"`
	ErrorCode    string    `json:"errorCode,omitempty"`
	Err          error     `json:"-"`
}

// BatchReport aggregates the per-file results of a batch ingestion.
type BatchReport struct {
	TotalFiles        int          `json:"totalFiles"`
	Succeeded         int          `json:"succeeded"`
	Failed            int          `json:"failed"`
	TotalUnitsIndexed int          `json:"totalUnitsIndexed"`
	Results           []FileResult `json:"perFileResults"`
	Errors            []string     `json:"errors,omitempty"`
}
