package jobstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapKV is an in-memory stand-in for the go-redis client.
type mapKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMapKV() *mapKV {
	return &mapKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mapKV) Set(ctx context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (m *mapKV) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestRedisTrackerRoundTrip(t *testing.T) {
	store := newMapKV()
	tracker := newRedisTracker(store, time.Hour)
	ctx := context.Background()

	job := schema.NewIngestionJob("j1", "f1", "tenant-a")
	require.NoError(t, job.Advance(schema.JobLoaded))
	require.NoError(t, tracker.Save(ctx, job))

	got, err := tracker.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, schema.JobLoaded, got.Status)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Equal(t, time.Hour, store.ttls[keyPrefix+"j1"])
}

func TestRedisTrackerMissingJob(t *testing.T) {
	_, err := newRedisTracker(newMapKV(), time.Hour).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestMemoryTrackerCopiesSnapshots(t *testing.T) {
	tracker := NewMemoryTracker()
	ctx := context.Background()

	job := schema.NewIngestionJob("j1", "f1", "tenant-a")
	require.NoError(t, tracker.Save(ctx, job))
	require.NoError(t, job.Advance(schema.JobLoaded))

	got, err := tracker.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, schema.JobPending, got.Status)

	_, err = tracker.Get(ctx, "j2")
	assert.ErrorIs(t, err, schema.ErrNotFound)
}
