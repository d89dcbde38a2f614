package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "aethena:ingest:job:"

// kv is the subset of the go-redis client the tracker uses.
type kv interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisTracker stores job snapshots as JSON strings that expire after ttl.
type RedisTracker struct {
	client kv
	ttl    time.Duration
}

// NewRedisTracker creates a tracker over a go-redis client.
func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return newRedisTracker(client, ttl)
}

func newRedisTracker(client kv, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl}
}

// Save overwrites the job snapshot and refreshes its expiry.
func (t *RedisTracker) Save(ctx context.Context, job *schema.IngestionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := t.client.Set(ctx, keyPrefix+job.ID, data, t.ttl).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// Get loads a job snapshot.
func (t *RedisTracker) Get(ctx context.Context, jobID string) (*schema.IngestionJob, error) {
	data, err := t.client.Get(ctx, keyPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: job %s", schema.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	var job schema.IngestionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &job, nil
}

var _ interfaces.JobTracker = (*RedisTracker)(nil)
