// Package engine wires the store, deinflector, lookup coordinator, result
// cache and import pipeline behind one facade for the CLI and HTTP layers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/japaniel/tapdict/pkg/db"
	"github.com/japaniel/tapdict/pkg/deinflect"
	"github.com/japaniel/tapdict/pkg/dictionary"
	"github.com/japaniel/tapdict/pkg/ingest"
	"github.com/japaniel/tapdict/pkg/lookup"
	"github.com/japaniel/tapdict/pkg/reader"
	"github.com/japaniel/tapdict/pkg/termbank"
)

// ErrNoAnalyzer is returned by Scan when the engine was built without a
// morphological analyzer.
var ErrNoAnalyzer = errors.New("engine: no analyzer configured")

// ErrNoLookupCounts is returned when the store keeps no lookup counters.
var ErrNoLookupCounts = errors.New("engine: store does not keep lookup counts")

// LookupCounter is implemented by stores that persist per-entry lookup
// counts for the presentation layer.
type LookupCounter interface {
	RecordLookup(ctx context.Context, dictionaryID string, entryID int64) error
	LookupCount(ctx context.Context, dictionaryID string, entryID int64) (int, error)
}

// LookupRanker is implemented by stores that can list their most
// looked-up entries.
type LookupRanker interface {
	TopLookups(ctx context.Context, dictionaryIDs []string, limit int) ([]db.LookupStat, error)
}

// Options configures an Engine. Zero values select the package defaults.
type Options struct {
	CacheSize     int
	MaxDepth      int
	MaxInputRunes int
	// Rules replaces the built-in Japanese table when non-nil.
	Rules []deinflect.Rule
	// Analyzer enables Scan. With Morphology set it also feeds lemma
	// hints to the coordinator.
	Analyzer   *reader.Analyzer
	Morphology bool
	// Enabled is the initial dictionary priority list.
	Enabled []string

	Workers         int
	BatchSize       int
	StreamThreshold int64
}

// Engine is safe for concurrent use.
type Engine struct {
	store       dictionary.Store
	coordinator *lookup.Coordinator
	cache       *lookup.Cache
	ingester    *ingest.Ingester
	analyzer    *reader.Analyzer

	mu      sync.RWMutex
	enabled []string
}

// New builds an Engine over store.
func New(store dictionary.Store, opts Options) (*Engine, error) {
	rules := opts.Rules
	if rules == nil {
		rules = deinflect.Japanese()
	}
	d := deinflect.New(rules, deinflect.WithMaxDepth(opts.MaxDepth))

	coordOpts := []lookup.Option{lookup.WithMaxRunes(opts.MaxInputRunes)}
	if opts.Morphology && opts.Analyzer != nil {
		coordOpts = append(coordOpts, lookup.WithLemmatizer(opts.Analyzer))
	}
	cache, err := lookup.NewCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	ig := ingest.NewIngester(store)
	if opts.Workers > 0 {
		ig.Workers = opts.Workers
	}
	if opts.BatchSize > 0 {
		ig.BatchSize = opts.BatchSize
	}
	if opts.StreamThreshold > 0 {
		ig.StreamThreshold = opts.StreamThreshold
	}

	return &Engine{
		store:       store,
		coordinator: lookup.NewCoordinator(store, d, coordOpts...),
		cache:       cache,
		ingester:    ig,
		analyzer:    opts.Analyzer,
		enabled:     append([]string(nil), opts.Enabled...),
	}, nil
}

// Store returns the underlying store.
func (e *Engine) Store() dictionary.Store { return e.store }

// Close closes the store.
func (e *Engine) Close() error { return e.store.Close() }

// Enabled returns the current dictionary priority list.
func (e *Engine) Enabled() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.enabled...)
}

// SetEnabled replaces the dictionary priority list.
func (e *Engine) SetEnabled(ids []string) {
	e.mu.Lock()
	e.enabled = append([]string(nil), ids...)
	e.mu.Unlock()
}

func (e *Engine) resolveIDs(ids []string) []string {
	if len(ids) > 0 {
		return ids
	}
	return e.Enabled()
}

// Lookup resolves text through the cache. Empty ids use the enabled list.
// A miss is (nil, nil).
func (e *Engine) Lookup(ctx context.Context, text string, ids []string) (*lookup.Result, error) {
	ids = e.resolveIDs(ids)
	return e.cache.GetOrCompute(ctx, text, ids, func(ctx context.Context) (*lookup.Result, error) {
		return e.coordinator.Lookup(ctx, text, ids)
	})
}

// LookupMany resolves known word boundaries exactly, bypassing the cache.
func (e *Engine) LookupMany(ctx context.Context, terms, ids []string) (map[string]dictionary.Entry, error) {
	return e.coordinator.LookupMany(ctx, terms, e.resolveIDs(ids))
}

// Import loads the archive or term bank at path as dictionaryID (the
// source title when blank) and appends it to the enabled list.
func (e *Engine) Import(ctx context.Context, path, dictionaryID string) (*ingest.Report, error) {
	src, err := termbank.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return e.ImportSource(ctx, src, dictionaryID)
}

// ImportSource is Import for an already opened source.
func (e *Engine) ImportSource(ctx context.Context, src *termbank.Source, dictionaryID string) (*ingest.Report, error) {
	report, err := e.ingester.Import(ctx, src, dictionaryID)
	if err != nil {
		return report, err
	}
	// Cached results may predate the new contents.
	e.cache.Purge()
	e.mu.Lock()
	if !contains(e.enabled, report.DictionaryID) {
		e.enabled = append(e.enabled, report.DictionaryID)
	}
	e.mu.Unlock()
	return report, nil
}

// Delete removes a dictionary and drops it from the enabled list.
func (e *Engine) Delete(ctx context.Context, dictionaryID string) error {
	infos, err := e.store.Dictionaries(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, info := range infos {
		if info.ID == dictionaryID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", dictionary.ErrUnknownDictionary, dictionaryID)
	}
	if err := e.store.DeleteDictionary(ctx, dictionaryID); err != nil {
		return err
	}
	e.cache.Purge()
	e.mu.Lock()
	out := e.enabled[:0]
	for _, id := range e.enabled {
		if id != dictionaryID {
			out = append(out, id)
		}
	}
	e.enabled = out
	e.mu.Unlock()
	log.Info().Str("dictionary", dictionaryID).Msg("dictionary deleted")
	return nil
}

// Dictionaries lists the installed dictionaries.
func (e *Engine) Dictionaries(ctx context.Context) ([]dictionary.Info, error) {
	return e.store.Dictionaries(ctx)
}

// RecordLookup bumps the lookup counter of the entry behind res and
// returns the new count.
func (e *Engine) RecordLookup(ctx context.Context, res *lookup.Result) (int, error) {
	counter, ok := e.store.(LookupCounter)
	if !ok {
		return 0, ErrNoLookupCounts
	}
	if res == nil {
		return 0, fmt.Errorf("%w: nil lookup result", dictionary.ErrInvalidEntry)
	}
	if err := counter.RecordLookup(ctx, res.Entry.DictionaryID, res.Entry.ID); err != nil {
		return 0, err
	}
	return counter.LookupCount(ctx, res.Entry.DictionaryID, res.Entry.ID)
}

// TopLookups lists the most looked-up entries of the enabled dictionaries.
func (e *Engine) TopLookups(ctx context.Context, limit int) ([]db.LookupStat, error) {
	ranker, ok := e.store.(LookupRanker)
	if !ok {
		return nil, ErrNoLookupCounts
	}
	return ranker.TopLookups(ctx, e.Enabled(), limit)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
