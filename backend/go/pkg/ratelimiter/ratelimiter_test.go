package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstThenRefill(t *testing.T) {
	now := time.Unix(0, 0)
	tb := newTokenBucket(2, 3, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "request %d", i)
	}
	assert.False(t, tb.Allow())

	now = now.Add(500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketNeverExceedsCapacity(t *testing.T) {
	now := time.Unix(0, 0)
	tb := newTokenBucket(100, 2, func() time.Time { return now })
	now = now.Add(time.Hour)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestKeyedTokenBucketIsolatesKeys(t *testing.T) {
	k, err := NewKeyedTokenBucket(0, 1, 10)
	require.NoError(t, err)

	assert.True(t, k.Allow("tenant-a"))
	assert.False(t, k.Allow("tenant-a"))
	assert.True(t, k.Allow("tenant-b"))
}

func TestKeyedTokenBucketRejectsZeroKeys(t *testing.T) {
	_, err := NewKeyedTokenBucket(1, 1, 0)
	assert.Error(t, err)
}
