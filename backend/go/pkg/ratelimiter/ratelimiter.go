package ratelimiter

// RateLimiter is the interface for rate limiting.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// KeyedRateLimiter limits requests independently per key, such as a tenant.
type KeyedRateLimiter interface {
	Allow(key string) bool
}
