package rag

import (
	lru "github.com/hashicorp/golang-lru"
)

// QueryCacheSize is the number of distinct query embeddings kept.
const QueryCacheSize = 100

// queryCache holds query embeddings keyed by provider|model|query. Lookups
// do not refresh recency; inserting an existing key makes it newest. The
// oldest entry is evicted first.
type queryCache struct {
	c *lru.Cache
}

func newQueryCache(size int) *queryCache {
	c, err := lru.New(max(1, size))
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &queryCache{c: c}
}

func cacheKey(provider, model, query string) string {
	return provider + "|" + model + "|" + query
}

func (q *queryCache) get(key string) ([]float32, bool) {
	v, ok := q.c.Peek(key)
	if !ok {
		return nil, false
	}
	return v.([]float32), true
}

func (q *queryCache) put(key string, emb []float32) {
	q.c.Add(key, emb)
}

func (q *queryCache) len() int {
	return q.c.Len()
}
