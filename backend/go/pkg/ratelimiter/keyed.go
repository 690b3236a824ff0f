package ratelimiter

import (
	"sync"
	"time"
)

// KeyedLimiter rate-limits independently per key, e.g. per client IP.
type KeyedLimiter interface {
	AllowKey(key string) bool
}

type keyedEntry struct {
	limiter  RateLimiter
	lastSeen time.Time
}

// PerKey keeps one limiter per key and forgets keys idle for longer than
// idleTTL. Eviction runs lazily during AllowKey.
type PerKey struct {
	factory   Factory
	idleTTL   time.Duration
	entries   map[string]*keyedEntry
	lastSweep time.Time
	now       func() time.Time
	mutex     sync.Mutex
}

// NewPerKey creates a PerKey limiter. idleTTL <= 0 disables eviction.
func NewPerKey(factory Factory, idleTTL time.Duration) *PerKey {
	return &PerKey{
		factory:   factory,
		idleTTL:   idleTTL,
		entries:   make(map[string]*keyedEntry),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (p *PerKey) AllowKey(key string) bool {
	p.mutex.Lock()
	now := p.now()
	p.sweep(now)
	e, ok := p.entries[key]
	if !ok {
		e = &keyedEntry{limiter: p.factory()}
		p.entries[key] = e
	}
	e.lastSeen = now
	p.mutex.Unlock()

	return e.limiter.Allow()
}

// Len returns the number of tracked keys.
func (p *PerKey) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.entries)
}

func (p *PerKey) sweep(now time.Time) {
	if p.idleTTL <= 0 || now.Sub(p.lastSweep) < p.idleTTL {
		return
	}
	for k, e := range p.entries {
		if now.Sub(e.lastSeen) > p.idleTTL {
			delete(p.entries, k)
		}
	}
	p.lastSweep = now
}

// Shared adapts a single RateLimiter to KeyedLimiter by ignoring the key.
type Shared struct {
	RateLimiter
}

func (s Shared) AllowKey(string) bool {
	return s.Allow()
}

var (
	_ KeyedLimiter = (*PerKey)(nil)
	_ KeyedLimiter = Shared{}
)
