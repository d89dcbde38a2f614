package ratelimiter

import (
	"time"

	"Aethena/backend/go/pkg/util"
)

// KeyedTokenBucket keeps one TokenBucket per key. Buckets live in an LRU so
// memory stays bounded when many tenants show up; an evicted tenant simply
// starts again with a full bucket.
type KeyedTokenBucket struct {
	rate     float64
	capacity int
	buckets  *util.LRUCache[string, *TokenBucket]
	now      func() time.Time
}

// NewKeyedTokenBucket creates a per-key limiter holding at most maxKeys buckets.
func NewKeyedTokenBucket(rate float64, capacity, maxKeys int) (*KeyedTokenBucket, error) {
	buckets, err := util.NewWithConfig[string, *TokenBucket](util.CacheConfig{Capacity: maxKeys})
	if err != nil {
		return nil, err
	}
	return &KeyedTokenBucket{rate: rate, capacity: capacity, buckets: buckets, now: time.Now}, nil
}

// Allow consumes a token from key's bucket.
func (k *KeyedTokenBucket) Allow(key string) bool {
	bucket, _ := k.buckets.GetOrPut(key, func() *TokenBucket {
		return newTokenBucket(k.rate, k.capacity, k.now)
	}, 1)
	return bucket.Allow()
}

var _ KeyedRateLimiter = (*KeyedTokenBucket)(nil)
