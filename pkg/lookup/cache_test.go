package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/japaniel/tapdict/pkg/dictionary"
)

func TestCacheSecondCallSkipsStore(t *testing.T) {
	store := newStore(t, japDict, taberu)
	c := newJapanese(store)
	cache, err := NewCache(DefaultCacheSize)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ids := []string{japDict}
	compute := func(ctx context.Context) (*Result, error) { return c.Lookup(ctx, "食べました", ids) }

	first, err := cache.GetOrCompute(ctx, "食べました", ids, compute)
	if err != nil || first == nil {
		t.Fatalf("expected hit, got %v", err)
	}
	queries := store.queries.Load()
	if queries == 0 {
		t.Fatal("first call should query the store")
	}

	second, err := cache.GetOrCompute(ctx, "食べました", ids, compute)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached result differs (-first +second):\n%s", diff)
	}
	if got := store.queries.Load(); got != queries {
		t.Errorf("second call queried the store: %d -> %d", queries, got)
	}
}

func TestCacheKeepsMisses(t *testing.T) {
	cache, _ := NewCache(10)
	var calls int32
	compute := func(ctx context.Context) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}
	for i := 0; i < 3; i++ {
		res, err := cache.GetOrCompute(context.Background(), "xyz", []string{"d"}, compute)
		if err != nil || res != nil {
			t.Fatalf("expected cached miss, got %+v, %v", res, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 compute, got %d", calls)
	}
}

func TestCacheDoesNotKeepErrors(t *testing.T) {
	cache, _ := NewCache(10)
	var calls int32
	compute := func(ctx context.Context) (*Result, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("transient")
		}
		return &Result{MatchedTerm: "x", MatchedLength: 1}, nil
	}
	if _, err := cache.GetOrCompute(context.Background(), "x", nil, compute); err == nil {
		t.Fatal("expected first compute error")
	}
	res, err := cache.GetOrCompute(context.Background(), "x", nil, compute)
	if err != nil || res == nil || res.MatchedTerm != "x" {
		t.Fatalf("expected recomputed result, got %+v, %v", res, err)
	}
}

func TestCacheKeyIncludesDictionaryOrder(t *testing.T) {
	cache, _ := NewCache(10)
	var calls int32
	compute := func(ctx context.Context) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}
	ctx := context.Background()
	_, _ = cache.GetOrCompute(ctx, "A", []string{"a", "b"}, compute)
	_, _ = cache.GetOrCompute(ctx, "A", []string{"b", "a"}, compute)
	_, _ = cache.GetOrCompute(ctx, "A", []string{"ab"}, compute)
	if calls != 3 {
		t.Fatalf("expected 3 distinct keys, got %d computes", calls)
	}
}

func TestCacheCollapsesConcurrentMisses(t *testing.T) {
	cache, _ := NewCache(10)
	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &Result{MatchedTerm: "x"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrCompute(context.Background(), "x", []string{"d"}, compute); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if calls != 1 {
		t.Fatalf("expected 1 compute for concurrent callers, got %d", calls)
	}
}

func TestCacheEvictsAndPurges(t *testing.T) {
	cache, _ := NewCache(2)
	ctx := context.Background()
	compute := func(term string) ComputeFunc {
		return func(ctx context.Context) (*Result, error) { return &Result{MatchedTerm: term}, nil }
	}
	for _, k := range []string{"a", "b", "c"} {
		if _, err := cache.GetOrCompute(ctx, k, nil, compute(k)); err != nil {
			t.Fatal(err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("expected capacity 2, got %d", cache.Len())
	}
	cache.Purge()
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d", cache.Len())
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	cache, _ := NewCache(10)
	compute := func(ctx context.Context) (*Result, error) {
		return &Result{
			MatchedTerm: "x",
			RuleChain:   []string{"past"},
			Entry: dictionary.Entry{
				Reading:         "x",
				ReadingElements: []dictionary.Element{{Text: "x", Priorities: []string{"news1"}}},
				Senses:          []dictionary.Sense{{Glosses: []string{"ex"}}},
			},
		}, nil
	}
	first, _ := cache.GetOrCompute(context.Background(), "x", nil, compute)
	first.RuleChain[0] = "changed"
	first.MatchedTerm = "changed"
	first.Entry.Senses[0].Glosses[0] = "changed"
	first.Entry.ReadingElements[0].Priorities[0] = "changed"
	second, _ := cache.GetOrCompute(context.Background(), "x", nil, compute)
	if second.MatchedTerm != "x" || second.RuleChain[0] != "past" {
		t.Fatalf("caller mutation leaked into the cache: %+v", second)
	}
	if second.Entry.Senses[0].Glosses[0] != "ex" || second.Entry.ReadingElements[0].Priorities[0] != "news1" {
		t.Fatalf("entry mutation leaked into the cache: %+v", second.Entry)
	}
}

func TestCachePurgeDiscardsInFlightResult(t *testing.T) {
	cache, _ := NewCache(10)
	started := make(chan struct{})
	release := make(chan struct{})
	stale := func(ctx context.Context) (*Result, error) {
		close(started)
		<-release
		return &Result{MatchedTerm: "stale"}, nil
	}

	done := make(chan *Result)
	go func() {
		res, _ := cache.GetOrCompute(context.Background(), "x", []string{"d"}, stale)
		done <- res
	}()
	<-started
	cache.Purge()

	// A caller arriving after the purge runs its own computation.
	fresh, err := cache.GetOrCompute(context.Background(), "x", []string{"d"}, func(ctx context.Context) (*Result, error) {
		return &Result{MatchedTerm: "fresh"}, nil
	})
	if err != nil || fresh.MatchedTerm != "fresh" {
		t.Fatalf("post-purge caller = %+v, %v; want fresh", fresh, err)
	}

	close(release)
	if res := <-done; res.MatchedTerm != "stale" {
		t.Fatalf("in-flight caller = %+v, want its own result", res)
	}
	var calls int32
	got, _ := cache.GetOrCompute(context.Background(), "x", []string{"d"}, func(ctx context.Context) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		return &Result{MatchedTerm: "recomputed"}, nil
	})
	if calls != 0 || got.MatchedTerm != "fresh" {
		t.Fatalf("cache holds %q after %d computes, want fresh from cache", got.MatchedTerm, calls)
	}
}
