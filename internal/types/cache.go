package types

import "time"

// CacheEntry wraps a cached value with an optional expiry instant. A zero
// Expiry means the entry never expires on its own (still subject to LRU
// eviction).
type CacheEntry struct {
	Value  interface{}
	Expiry time.Time
}

// Expired reports whether the entry's TTL has elapsed as of now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.Expiry.IsZero() && !now.Before(e.Expiry)
}

// CacheStats summarizes hit/miss behavior across all cache levels.
type CacheStats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	L1Hits     int64   `json:"l1_hits"`
	L1Misses   int64   `json:"l1_misses"`
	L2Hits     int64   `json:"l2_hits"`
	L2Misses   int64   `json:"l2_misses"`
	L3Hits     int64   `json:"l3_hits"`
	L3Misses   int64   `json:"l3_misses"`
	Evictions  int64   `json:"evictions"`
	Promotions int64   `json:"promotions"`
}
