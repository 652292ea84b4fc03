package cache

import (
	"context"
	"sync"
	"time"

	"github.com/memkit/memoryd/internal/types"
)

// MapLevel is an in-process, map-backed implementation of Level that can
// be passed to New as L2 or L3; New does not install it on its own (a nil
// level stays absent). It also satisfies PatternInvalidator.
type MapLevel struct {
	mu    sync.Mutex
	items map[string]types.CacheEntry
}

// NewMapLevel constructs an empty MapLevel.
func NewMapLevel() *MapLevel {
	return &MapLevel{items: make(map[string]types.CacheEntry)}
}

func (m *MapLevel) Get(ctx context.Context, key string) (interface{}, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if e.Expired(time.Now()) {
		delete(m.items, key)
		return nil, false, nil
	}
	return e.Value, true, nil
}

func (m *MapLevel) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var expiry time.Time
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = types.CacheEntry{Value: value, Expiry: expiry}
	m.mu.Unlock()
	return nil
}

func (m *MapLevel) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MapLevel) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *MapLevel) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.items = make(map[string]types.CacheEntry)
	m.mu.Unlock()
	return nil
}

func (m *MapLevel) Keys(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *MapLevel) Size(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

// DeletePattern implements PatternInvalidator.
func (m *MapLevel) DeletePattern(ctx context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []string
	for k := range m.items {
		if ok, _ := matchGlob(pattern, k); ok {
			matched = append(matched, k)
		}
	}
	for _, k := range matched {
		delete(m.items, k)
	}
	return len(matched), nil
}
