package events

import (
	"encoding/json"
	"fmt"
	"time"

	"Aethena/backend/go/internal/rag_service/rag/schema"
)

// IngestRequest asks the ingest worker to process one uploaded file.
type IngestRequest struct {
	JobID     string    `json:"jobId"`
	FileID    string    `json:"fileId"`
	TenantID  string    `json:"tenantId"`
	TraceID   string    `json:"traceId,omitempty"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeadLetter is written when a request cannot be processed.
type DeadLetter struct {
	Request   IngestRequest `json:"request"`
	Raw       string        `json:"raw,omitempty"`
	Error     string        `json:"error"`
	ErrorCode string        `json:"errorCode"`
	FailedAt  time.Time     `json:"failedAt"`
}

// Job returns a pending job for the request.
func (r IngestRequest) Job() *schema.IngestionJob {
	return schema.NewIngestionJob(r.JobID, r.FileID, r.TenantID)
}

func (r IngestRequest) validate() error {
	if r.JobID == "" || r.FileID == "" || r.TenantID == "" {
		return fmt.Errorf("%w: jobId, fileId and tenantId are required", schema.ErrInvalidInput)
	}
	return nil
}

func decodeRequest(data []byte) (IngestRequest, error) {
	var req IngestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("%w: decode ingest request: %w", schema.ErrInvalidInput, err)
	}
	return req, req.validate()
}
