// Package ingest imports term bank sources into a dictionary store. Records
// are converted concurrently by a worker pool, reassembled in source order
// and written into one import batch that becomes visible on commit.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/tapdict/pkg/dictionary"
	"github.com/japaniel/tapdict/pkg/termbank"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Ingester imports dictionaries into Store.
type Ingester struct {
	Store     dictionary.Writer
	BatchSize int
	// StreamThreshold is the bank size from which records are streamed
	// instead of decoded whole.
	StreamThreshold int64
	// OnProgress is called after every flushed batch with the number of
	// records processed so far.
	OnProgress func(processed int)

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates a new Ingester.
func NewIngester(store dictionary.Writer) *Ingester {
	return &Ingester{
		Store:           store,
		BatchSize:       500,
		StreamThreshold: termbank.DefaultStreamThreshold,
		Workers:         4, // Default worker count
	}
}

// Report summarizes one import run.
type Report struct {
	RunID          string          `json:"runId"`
	DictionaryID   string          `json:"dictionaryId"`
	Title          string          `json:"title,omitempty"`
	Records        int             `json:"records"`
	Imported       int             `json:"imported"`
	Skipped        int             `json:"skipped"`
	SkippedSamples []termbank.Skip `json:"skippedSamples,omitempty"`
	Duration       time.Duration   `json:"duration"`
}

// converted holds the result of converting one record before it is written.
type converted struct {
	Index int
	Entry dictionary.Entry
	Error error
}

// ImportFile opens the archive or term bank at path and imports it. A blank
// dictionaryID defaults to the source title.
func (ig *Ingester) ImportFile(ctx context.Context, path, dictionaryID string) (*Report, error) {
	src, err := termbank.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return ig.Import(ctx, src, dictionaryID)
}

// Import replaces dictionaryID with the contents of src. Malformed records
// are skipped and counted; a corrupt source, a write failure or a canceled
// ctx rolls the whole import back.
func (ig *Ingester) Import(ctx context.Context, src *termbank.Source, dictionaryID string) (*Report, error) {
	if dictionaryID == "" {
		dictionaryID = src.Index.Title
	}
	if dictionaryID == "" {
		return nil, fmt.Errorf("%w: blank dictionary id", dictionary.ErrInvalidEntry)
	}
	start := time.Now()
	report := &Report{
		RunID:        uuid.NewString(),
		DictionaryID: dictionaryID,
		Title:        src.Index.Title,
	}
	logger := log.With().Str("run", report.RunID).Str("dictionary", dictionaryID).Logger()
	logger.Info().Str("title", src.Index.Title).Int("banks", len(src.Banks)).Msg("import started")

	batch, err := ig.Store.BeginImport(ctx, dictionaryID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}

	stats, err := ig.run(ctx, src, dictionaryID, batch)
	report.Records = stats.Records
	report.Imported = stats.Imported
	report.Skipped = stats.Skipped
	report.SkippedSamples = stats.Samples
	if err != nil {
		if rbErr := batch.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("rollback failed")
		}
		report.Duration = time.Since(start)
		logger.Error().Err(err).Msg("import failed")
		return report, err
	}

	info := dictionary.Info{
		ID:           dictionaryID,
		Title:        src.Index.Title,
		Revision:     src.Index.Revision,
		Author:       src.Index.Author,
		Description:  src.Index.Description,
		SkippedCount: stats.Skipped,
	}
	if err := batch.Commit(ctx, info); err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("commit import: %w", err)
	}
	report.Duration = time.Since(start)
	logger.Info().
		Int("imported", report.Imported).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("import finished")
	return report, nil
}

// run converts every record of src and writes the entries into batch. The
// producer submits conversion jobs, workers push results, and the consumer
// restores source order before handing entries to the BatchWriter.
func (ig *Ingester) run(ctx context.Context, src *termbank.Source, dictionaryID string, batch dictionary.ImportBatch) (termbank.Stats, error) {
	workers := ig.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	resultCh := make(chan converted, workers*2)

	g, gctx := errgroup.WithContext(ctx)
	wp.Start(gctx)

	// Producer
	g.Go(func() error {
		// Workers finish before resultCh closes, so no send races the close.
		defer func() {
			wp.Close()
			close(resultCh)
		}()
		err := src.Each(ig.StreamThreshold, func(i int, raw json.RawMessage) error {
			job := func(ctx context.Context) error {
				e, err := termbank.ConvertRecord(dictionaryID, int64(i)+1, raw)
				select {
				case resultCh <- converted{Index: i, Entry: e, Error: err}:
				case <-ctx.Done():
				}
				return err
			}
			return wp.SubmitCtx(gctx, job)
		})
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		return nil
	})

	// Consumer
	var stats termbank.Stats
	g.Go(func() error {
		bw := NewBatchWriter(func(ctx context.Context, entries []dictionary.Entry) error {
			return batch.Add(ctx, entries...)
		}, ig.BatchSize, 0)

		buffer := make(map[int]converted)
		nextIdx := 0
		reported := 0
		progress := func() {
			if ig.OnProgress != nil && stats.Records != reported {
				reported = stats.Records
				ig.OnProgress(stats.Records)
			}
		}
		drain := func() error {
			for {
				res, ok := buffer[nextIdx]
				if !ok {
					return nil
				}
				delete(buffer, nextIdx)
				nextIdx++
				stats.Records++
				if res.Error != nil {
					log.Warn().Str("dictionary", dictionaryID).Int("index", res.Index).Err(res.Error).Msg("skipping term bank record")
					stats.AddSkip(res.Index, res.Error)
					continue
				}
				if err := bw.Submit(res.Entry); err != nil {
					return err
				}
				stats.Imported++
				if ig.BatchSize > 0 && stats.Records%ig.BatchSize == 0 {
					progress()
				}
			}
		}

		for res := range resultCh {
			buffer[res.Index] = res
			if err := drain(); err != nil {
				_ = bw.Close()
				return err
			}
			if err := bw.Err(); err != nil {
				_ = bw.Close()
				return err
			}
		}
		if err := bw.Close(); err != nil {
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		if len(buffer) > 0 {
			return fmt.Errorf("import: %d converted records never reached the writer", len(buffer))
		}
		progress()
		return nil
	})

	err := g.Wait()
	if err == nil {
		// A parent cancellation can race a clean producer exit.
		err = ctx.Err()
	}
	return stats, err
}
