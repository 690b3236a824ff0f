package embeddings

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"Outreach/backend/go/internal/rag_service/rag/interfaces"
)

// DefaultQueryCacheSize bounds how many query vectors are remembered.
const DefaultQueryCacheSize = 256

type cachedVector struct {
	query   string
	vector  []float32
	expires time.Time
}

// QueryCache remembers recent query embeddings. Document embeddings are
// passed through untouched since each chunk is embedded once per ingest.
type QueryCache struct {
	inner    interfaces.EmbeddingModel
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	ll      *list.List
	entries map[string]*list.Element
	hits    uint64
	misses  uint64
}

// NewQueryCache wraps inner with an LRU of at most capacity query vectors.
// A zero ttl keeps entries until they are evicted.
func NewQueryCache(inner interfaces.EmbeddingModel, capacity int, ttl time.Duration) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultQueryCacheSize
	}
	return &QueryCache{
		inner:    inner,
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		ll:       list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (c *QueryCache) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.inner.Embed(ctx, text)
}

func (c *QueryCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

// EmbedQuery serves repeated queries from memory. Errors are never cached.
func (c *QueryCache) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	key := strings.TrimSpace(query)
	if vec, ok := c.get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	c.put(key, vec)
	return vec, nil
}

// Len returns the number of cached queries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Counters returns cache hits and misses since creation.
func (c *QueryCache) Counters() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *QueryCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	ent := el.Value.(*cachedVector)
	if c.ttl > 0 && c.now().After(ent.expires) {
		c.remove(el)
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return ent.vector, true
}

func (c *QueryCache) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := time.Time{}
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*cachedVector)
		ent.vector = vec
		ent.expires = expires
		c.ll.MoveToFront(el)
		return
	}

	c.entries[key] = c.ll.PushFront(&cachedVector{query: key, vector: vec, expires: expires})
	for c.ll.Len() > c.capacity {
		c.remove(c.ll.Back())
	}
}

// remove assumes c.mu is held.
func (c *QueryCache) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.entries, el.Value.(*cachedVector).query)
}

var _ interfaces.EmbeddingModel = (*QueryCache)(nil)
