// Package ratelimit implements the Rate Limiter (C8): per-key sliding or
// fixed window admission control.
//
// The exact introspection contract (remaining count, reset_after_ms,
// retry_after_s only on deny) and fixed-window epoch alignment don't map
// onto golang.org/x/time/rate's token-bucket model, so this is a
// from-scratch counter implementation rather than a wrapper around it.
// x/time/rate is used elsewhere in this module (the embedding-call
// throttle in the Storage Engine) where its semantics do fit.
package ratelimit

import (
	"sync"
	"time"

	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/errs"
)

// Decision is the result of Check.
type Decision struct {
	Allowed      bool
	Remaining    int
	ResetAfterMS int64
	Limit        int
	RetryAfterS  *int
}

// Limiter admits or denies requests per key using either a sliding or a
// fixed window strategy, chosen at construction.
type Limiter struct {
	cfg config.RateLimiterConfig

	mu      sync.Mutex
	sliding map[string][]time.Time // key -> timestamps within the window
	fixed   map[string]*bucket     // key -> current epoch-aligned bucket
	access  map[string]time.Time   // key -> last_access, for cleanup()
}

type bucket struct {
	epochStart time.Time
	count      int
}

// New constructs a Limiter, rejecting a configuration with
// max_requests <= 0 or window_ms <= 0.
func New(cfg config.RateLimiterConfig) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.Validation, "ratelimit.new", "invalid rate limiter configuration", err)
	}
	return &Limiter{
		cfg:     cfg,
		sliding: make(map[string][]time.Time),
		fixed:   make(map[string]*bucket),
		access:  make(map[string]time.Time),
	}, nil
}

func (l *Limiter) namespaced(key string) string {
	return l.cfg.KeyPrefix + ":" + key
}

// Check records one admission attempt for key and returns the decision.
func (l *Limiter) Check(key string) Decision {
	return l.checkAt(key, time.Now())
}

func (l *Limiter) checkAt(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	nk := l.namespaced(key)
	l.access[nk] = now

	if l.cfg.Strategy == "fixed" {
		return l.checkFixedLocked(nk, now)
	}
	return l.checkSlidingLocked(nk, now)
}

func (l *Limiter) checkSlidingLocked(key string, now time.Time) Decision {
	window := time.Duration(l.cfg.WindowMS) * time.Millisecond
	cutoff := now.Add(-window)

	stamps := l.sliding[key]
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.cfg.MaxRequests {
		resetAfter := kept[0].Add(window).Sub(now)
		l.sliding[key] = kept
		retry := int(resetAfter.Seconds()) + 1
		return Decision{
			Allowed:      false,
			Remaining:    0,
			ResetAfterMS: resetAfter.Milliseconds(),
			Limit:        l.cfg.MaxRequests,
			RetryAfterS:  &retry,
		}
	}

	kept = append(kept, now)
	l.sliding[key] = kept
	remaining := l.cfg.MaxRequests - len(kept)
	resetAfter := window
	if len(kept) > 0 {
		resetAfter = kept[0].Add(window).Sub(now)
	}
	return Decision{
		Allowed:      true,
		Remaining:    remaining,
		ResetAfterMS: resetAfter.Milliseconds(),
		Limit:        l.cfg.MaxRequests,
	}
}

func (l *Limiter) checkFixedLocked(key string, now time.Time) Decision {
	window := time.Duration(l.cfg.WindowMS) * time.Millisecond
	epochStart := now.Truncate(window)

	b, ok := l.fixed[key]
	if !ok || !b.epochStart.Equal(epochStart) {
		b = &bucket{epochStart: epochStart}
		l.fixed[key] = b
	}

	resetAfter := b.epochStart.Add(window).Sub(now)

	if b.count >= l.cfg.MaxRequests {
		retry := int(resetAfter.Seconds()) + 1
		return Decision{
			Allowed:      false,
			Remaining:    0,
			ResetAfterMS: resetAfter.Milliseconds(),
			Limit:        l.cfg.MaxRequests,
			RetryAfterS:  &retry,
		}
	}

	b.count++
	return Decision{
		Allowed:      true,
		Remaining:    l.cfg.MaxRequests - b.count,
		ResetAfterMS: resetAfter.Milliseconds(),
		Limit:        l.cfg.MaxRequests,
	}
}

// GetState reports a key's current standing without mutating it.
func (l *Limiter) GetState(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	nk := l.namespaced(key)
	now := time.Now()
	window := time.Duration(l.cfg.WindowMS) * time.Millisecond

	if l.cfg.Strategy == "fixed" {
		b, ok := l.fixed[nk]
		if !ok {
			return Decision{Allowed: true, Remaining: l.cfg.MaxRequests, ResetAfterMS: window.Milliseconds(), Limit: l.cfg.MaxRequests}
		}
		resetAfter := b.epochStart.Add(window).Sub(now)
		remaining := l.cfg.MaxRequests - b.count
		if remaining < 0 {
			remaining = 0
		}
		return Decision{Allowed: remaining > 0, Remaining: remaining, ResetAfterMS: resetAfter.Milliseconds(), Limit: l.cfg.MaxRequests}
	}

	cutoff := now.Add(-window)
	var active int
	var oldest time.Time
	for _, t := range l.sliding[nk] {
		if t.After(cutoff) {
			active++
			if oldest.IsZero() || t.Before(oldest) {
				oldest = t
			}
		}
	}
	remaining := l.cfg.MaxRequests - active
	if remaining < 0 {
		remaining = 0
	}
	resetAfter := window
	if !oldest.IsZero() {
		resetAfter = oldest.Add(window).Sub(now)
	}
	return Decision{Allowed: remaining > 0, Remaining: remaining, ResetAfterMS: resetAfter.Milliseconds(), Limit: l.cfg.MaxRequests}
}

// Reset clears a single key's recorded state.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	nk := l.namespaced(key)
	delete(l.sliding, nk)
	delete(l.fixed, nk)
	delete(l.access, nk)
}

// Clear drops all tracked keys.
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sliding = make(map[string][]time.Time)
	l.fixed = make(map[string]*bucket)
	l.access = make(map[string]time.Time)
}

// Cleanup evicts keys whose last access is older than the configured
// TTL, returning the number evicted.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var evicted int
	for key, last := range l.access {
		if now.Sub(last) > l.cfg.TTL {
			delete(l.sliding, key)
			delete(l.fixed, key)
			delete(l.access, key)
			evicted++
		}
	}
	return evicted
}
