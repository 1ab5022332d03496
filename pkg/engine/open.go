package engine

import (
	"context"
	"fmt"

	"github.com/japaniel/tapdict/internal/config"
	"github.com/japaniel/tapdict/pkg/db"
	"github.com/japaniel/tapdict/pkg/deinflect"
	"github.com/japaniel/tapdict/pkg/reader"
)

// Open builds an Engine over the SQLite database named by cfg. withAnalyzer
// loads the kagome dictionary, which Scan and lemma hints need.
func Open(ctx context.Context, cfg *config.Config, withAnalyzer bool) (*Engine, error) {
	conn, err := db.Open(ctx, cfg.Database.Path, cfg.Database.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := db.NewSQLiteStore(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	opts := Options{
		CacheSize:       cfg.Lookup.CacheSize,
		MaxDepth:        cfg.Lookup.MaxDepth,
		MaxInputRunes:   cfg.Lookup.MaxInputRunes,
		Morphology:      cfg.Lookup.Morphology,
		Enabled:         cfg.Lookup.Dictionaries,
		Workers:         cfg.Import.Workers,
		BatchSize:       cfg.Import.BatchSize,
		StreamThreshold: cfg.Import.StreamThreshold,
	}
	if cfg.Lookup.RulesPath != "" {
		rules, err := deinflect.LoadRulesFile(cfg.Lookup.RulesPath)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("load rules: %w", err)
		}
		opts.Rules = rules
	}
	if withAnalyzer || cfg.Lookup.Morphology {
		analyzer, err := reader.NewAnalyzer()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create analyzer: %w", err)
		}
		opts.Analyzer = analyzer
	}

	e, err := New(store, opts)
	if err != nil {
		store.Close()
		return nil, err
	}
	// With no configured priority list, every installed dictionary is
	// enabled in id order.
	if len(opts.Enabled) == 0 {
		infos, err := store.Dictionaries(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
		ids := make([]string, 0, len(infos))
		for _, info := range infos {
			ids = append(ids, info.ID)
		}
		e.SetEnabled(ids)
	}
	return e, nil
}
