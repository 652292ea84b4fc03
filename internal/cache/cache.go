// Package cache implements the Multi-Level Cache (C4): an in-process LRU
// L1 in front of pluggable L2/L3 levels, promoting on miss via
// singleflight so concurrent callers for the same key converge on one
// fetch.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/types"
)

// Level is the capability set a lower cache tier must satisfy. Get
// reports whether the key was present, mirroring the comma-ok idiom
// used across the rest of memoryd's storage layer.
type Level interface {
	Get(ctx context.Context, key string) (interface{}, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Size(ctx context.Context) (int, error)
}

// EvictionPolicy picks the L1 victim key given the current LRU order,
// oldest-access first. The default is plain LRU (pick entries[0]); a
// custom policy may inspect the full order to pick a different victim.
type EvictionPolicy func(entries []string) string

type l1Entry struct {
	key   string
	value interface{}
	entry types.CacheEntry
}

// Cache is the three-level read-through/write-through cache.
type Cache struct {
	cfg config.CacheConfig

	mu      sync.Mutex
	ll      *list.List
	items   map[string]*list.Element
	stats   types.CacheStats
	evictor EvictionPolicy

	l2, l3 Level

	sf singleflight.Group
}

// New constructs a Cache. l2 and l3 may be nil, meaning that level is
// absent; a nil evictor defaults to plain least-recently-used eviction.
func New(cfg config.CacheConfig, l2, l3 Level, evictor EvictionPolicy) *Cache {
	if evictor == nil {
		evictor = func(entries []string) string { return entries[0] }
	}
	return &Cache{
		cfg:     cfg,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
		l2:      l2,
		l3:      l3,
		evictor: evictor,
	}
}

// Get checks L1 (expiring stale entries on read), then promotes from L2
// then L3 on miss via a single-flight call keyed on k so concurrent
// callers for the same key share one promotion.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool, error) {
	if v, ok := c.getL1(key); ok {
		c.recordLevelHit(&c.stats.L1Hits)
		c.recordOverallHit()
		return v, true, nil
	}
	c.recordLevelMiss(&c.stats.L1Misses)

	res, err, _ := c.sf.Do(key, func() (interface{}, error) {
		return c.promote(ctx, key)
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(promotionResult)
	if !r.found {
		c.recordOverallMiss()
		return nil, false, nil
	}
	c.recordOverallHit()
	return r.value, true, nil
}

type promotionResult struct {
	value interface{}
	found bool
}

func (c *Cache) promote(ctx context.Context, key string) (promotionResult, error) {
	if c.cfg.PromotionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.PromotionTimeout)
		defer cancel()
	}
	if v, ok := c.getL1(key); ok {
		return promotionResult{value: v, found: true}, nil
	}

	if c.l2 != nil {
		v, ok, err := c.l2.Get(ctx, key)
		if err == nil && ok {
			c.recordLevelHit(&c.stats.L2Hits)
			c.setL1(key, v, c.cfg.DefaultTTL)
			c.recordPromotion()
			if c.l3 != nil {
				go func() { _ = c.l3.Set(context.Background(), key, v, c.cfg.DefaultTTL) }()
			}
			return promotionResult{value: v, found: true}, nil
		}
		c.recordLevelMiss(&c.stats.L2Misses)
	}

	if c.l3 != nil {
		v, ok, err := c.l3.Get(ctx, key)
		if err == nil && ok {
			c.recordLevelHit(&c.stats.L3Hits)
			c.setL1(key, v, c.cfg.DefaultTTL)
			c.recordPromotion()
			if c.l2 != nil {
				go func() { _ = c.l2.Set(context.Background(), key, v, c.cfg.DefaultTTL) }()
			}
			return promotionResult{value: v, found: true}, nil
		}
		c.recordLevelMiss(&c.stats.L3Misses)
	}

	return promotionResult{}, nil
}

// Set writes to L1 synchronously, evicting the LRU victim if at
// capacity, then fans out to L2 and L3 asynchronously, swallowing their
// errors.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.cfg.DefaultTTL
	}
	c.setL1(key, value, ttl)

	if c.l2 != nil {
		go func() { _ = c.l2.Set(context.Background(), key, value, ttl) }()
	}
	if c.l3 != nil {
		go func() { _ = c.l3.Set(context.Background(), key, value, ttl) }()
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
	c.mu.Unlock()

	if c.l2 != nil {
		go func() { _ = c.l2.Delete(context.Background(), key) }()
	}
	if c.l3 != nil {
		go func() { _ = c.l3.Delete(context.Background(), key) }()
	}
	return nil
}

// Invalidate is an alias for Delete matching the spec's vocabulary.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.Delete(ctx, key)
}

// InvalidatePattern deletes every L1 key matching pattern (a path.Match
// glob, or a regular expression as matchGlob decides), deletes those same
// keys from L2/L3, and also fans the pattern out to L2/L3 if they
// implement PatternInvalidator. Keys held only in an L2/L3 level that
// does not implement PatternInvalidator are not removed. The returned
// count covers L1 matches only.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	c.mu.Lock()
	var matched []string
	for key := range c.items {
		if ok, _ := matchGlob(pattern, key); ok {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		if el, ok := c.items[key]; ok {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
	c.mu.Unlock()

	for _, key := range matched {
		k := key
		if c.l2 != nil {
			go func() { _ = c.l2.Delete(context.Background(), k) }()
		}
		if c.l3 != nil {
			go func() { _ = c.l3.Delete(context.Background(), k) }()
		}
	}

	if pi, ok := c.l2.(PatternInvalidator); ok {
		go func() { _, _ = pi.DeletePattern(context.Background(), pattern) }()
	}
	if pi, ok := c.l3.(PatternInvalidator); ok {
		go func() { _, _ = pi.DeletePattern(context.Background(), pattern) }()
	}

	return len(matched), nil
}

// PatternInvalidator is an optional capability a Level may implement so
// that InvalidatePattern also removes matching keys not present in L1.
type PatternInvalidator interface {
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	if _, ok := c.getL1(key); ok {
		return true, nil
	}
	if c.l2 != nil {
		if ok, err := c.l2.Has(ctx, key); err == nil && ok {
			return true, nil
		}
	}
	if c.l3 != nil {
		if ok, err := c.l3.Has(ctx, key); err == nil && ok {
			return true, nil
		}
	}
	return false, nil
}

func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.mu.Unlock()

	if c.l2 != nil {
		_ = c.l2.Clear(ctx)
	}
	if c.l3 != nil {
		_ = c.l3.Clear(ctx)
	}
	return nil
}

// Stats returns a snapshot of the hit/miss counters.
func (c *Cache) Stats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	total := s.Hits + s.Misses
	if total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	} else {
		s.HitRate = 0
	}
	return s
}

// ResetStats zeros every counter.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = types.CacheStats{}
}

func (c *Cache) getL1(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*l1Entry)
	if e.entry.Expired(time.Now()) {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return e.value, true
}

func (c *Cache) setL1(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiry time.Time
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*l1Entry)
		e.value = value
		e.entry = types.CacheEntry{Value: value, Expiry: expiry}
		c.ll.MoveToFront(el)
		return
	}

	e := &l1Entry{key: key, value: value, entry: types.CacheEntry{Value: value, Expiry: expiry}}
	el := c.ll.PushFront(e)
	c.items[key] = el

	if len(c.items) > c.cfg.L1MaxEntries {
		c.evictOne()
	}
}

func (c *Cache) evictOne() {
	entries := make([]string, 0, len(c.items))
	for el := c.ll.Back(); el != nil; el = el.Prev() {
		entries = append(entries, el.Value.(*l1Entry).key)
	}
	if len(entries) == 0 {
		return
	}
	victim := c.evictor(entries)
	if el, ok := c.items[victim]; ok {
		c.ll.Remove(el)
		delete(c.items, victim)
		c.stats.Evictions++
	}
}

// recordLevelHit bumps a single level's hit counter. The overall Hits
// counter is recorded once per Get call via recordOverallHit, not here,
// so a promoted L2/L3 hit counts as one L1 miss, one level hit and one
// overall hit, never as an overall miss.
func (c *Cache) recordLevelHit(level *int64) {
	c.mu.Lock()
	*level++
	c.mu.Unlock()
}

func (c *Cache) recordOverallHit() {
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
}

func (c *Cache) recordOverallMiss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}

func (c *Cache) recordLevelMiss(level *int64) {
	c.mu.Lock()
	*level++
	c.mu.Unlock()
}

func (c *Cache) recordPromotion() {
	c.mu.Lock()
	c.stats.Promotions++
	c.mu.Unlock()
}
