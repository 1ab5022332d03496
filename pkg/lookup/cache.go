package lookup

import (
	"context"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of lookups kept.
const DefaultCacheSize = 100

// ComputeFunc produces the result for a cache miss.
type ComputeFunc func(ctx context.Context) (*Result, error)

// Cache memoizes lookup results, misses included, keyed by text and the
// ordered dictionary set. It never invalidates on its own: callers that
// change dictionary contents must Purge it. A computation that started
// before a Purge still answers its own callers but is not stored.
type Cache struct {
	entries *lru.Cache[string, *Result]
	group   singleflight.Group

	mu         sync.Mutex
	generation uint64
}

// NewCache creates a cache holding up to size results.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

func cacheKey(text string, dictionaryIDs []string) string {
	return text + "\x1f" + strings.Join(dictionaryIDs, "\x1e")
}

// GetOrCompute returns the cached result for (text, dictionaryIDs) or runs
// compute once for all concurrent callers with the same key. Errors are
// returned but not cached. The returned Result is a deep copy.
func (c *Cache) GetOrCompute(ctx context.Context, text string, dictionaryIDs []string, compute ComputeFunc) (*Result, error) {
	key := cacheKey(text, dictionaryIDs)
	if res, ok := c.entries.Get(key); ok {
		return clone(res), nil
	}
	gen := c.currentGeneration()
	// Callers arriving after a Purge must not join a flight started before it.
	flight := strconv.FormatUint(gen, 10) + "\x1d" + key
	v, err, _ := c.group.Do(flight, func() (interface{}, error) {
		if res, ok := c.entries.Get(key); ok {
			return res, nil
		}
		res, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.entries.Add(key, res)
		}
		c.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(*Result)), nil
}

func (c *Cache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Purge drops every cached result and keeps in-flight computations from
// storing theirs.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.generation++
	c.entries.Purge()
	c.mu.Unlock()
}

// Len reports the number of cached results.
func (c *Cache) Len() int { return c.entries.Len() }

func clone(r *Result) *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Entry = r.Entry.Clone()
	out.RuleChain = append([]string{}, r.RuleChain...)
	return &out
}
