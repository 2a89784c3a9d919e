package fitness

import (
	"context"
	"sync"

	"evochain/internal/genotype"
)

// Cache memoizes fitness values by genotype content. An entry is visible to
// every caller from the moment it is claimed; waiters block on done until
// the owner resolves it.
type Cache struct {
	mu       sync.Mutex
	buckets  map[uint64][]*entry
	resolved int
}

type entry struct {
	genotype *genotype.Genotype
	done     chan struct{}
	value    float64
	err      error
}

func NewCache() *Cache {
	return &Cache{buckets: make(map[uint64][]*entry)}
}

// claim returns the entry for g, creating a pending one if absent. owner is
// true when the caller created the entry and must resolve it.
func (c *Cache) claim(g *genotype.Genotype) (e *entry, owner bool) {
	h := g.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.buckets[h] {
		if e.genotype.Equal(g) {
			return e, false
		}
	}
	e = &entry{genotype: g.Clone(), done: make(chan struct{})}
	c.buckets[h] = append(c.buckets[h], e)
	return e, true
}

// resolve publishes the outcome of e. A failed entry is dropped so a later
// call retries the computation.
func (c *Cache) resolve(e *entry, value float64, err error) {
	c.mu.Lock()
	e.value, e.err = value, err
	if err != nil {
		c.removeLocked(e)
	} else {
		c.resolved++
	}
	c.mu.Unlock()
	close(e.done)
}

func (c *Cache) removeLocked(e *entry) {
	h := e.genotype.Hash()
	bucket := c.buckets[h]
	for i, candidate := range bucket {
		if candidate != e {
			continue
		}
		bucket = append(bucket[:i], bucket[i+1:]...)
		break
	}
	if len(bucket) == 0 {
		delete(c.buckets, h)
		return
	}
	c.buckets[h] = bucket
}

func (e *entry) wait(ctx context.Context) (float64, error) {
	select {
	case <-e.done:
		return e.value, e.err
	default:
	}
	select {
	case <-e.done:
		return e.value, e.err
	case <-ctx.Done():
		return Incalculable, ctx.Err()
	}
}

// Lookup returns a resolved value for g without computing it.
func (c *Cache) Lookup(g *genotype.Genotype) (float64, bool) {
	h := g.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.buckets[h] {
		if !e.genotype.Equal(g) {
			continue
		}
		select {
		case <-e.done:
			return e.value, e.err == nil
		default:
			return Incalculable, false
		}
	}
	return Incalculable, false
}

// Len counts successfully resolved entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}
