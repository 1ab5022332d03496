package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/japaniel/tapdict/pkg/dictionary"
)

// FlushFunc persists one batch of converted entries, typically by adding
// them to an open dictionary.ImportBatch.
type FlushFunc func(ctx context.Context, entries []dictionary.Entry) error

// BatchWriter buffers converted entries and hands them to a single
// committer goroutine in batches, so batches are flushed in submit order.
type BatchWriter struct {
	mu          sync.Mutex
	buf         []dictionary.Entry
	cap         int
	flushTicker *time.Ticker
	closed      bool
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	commitCh chan []dictionary.Entry
	flush    FlushFunc
	OnError  func(error)

	// lastErr stores the first asynchronous error seen by the writer. Protected by errMu.
	errMu   sync.Mutex
	lastErr error
}

// NewBatchWriter creates a new BatchWriter.
// flush: persists one batch; nil discards batches.
// bufferSize: flush when buffer reaches this size.
// flushInterval: flush after this duration (0 to disable).
func NewBatchWriter(flush FlushFunc, bufferSize int, flushInterval time.Duration) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		buf:      make([]dictionary.Entry, 0, bufferSize),
		cap:      bufferSize,
		ctx:      ctx,
		cancel:   cancel,
		commitCh: make(chan []dictionary.Entry, 2), // Buffer a couple of batches
		flush:    flush,
	}

	bw.wg.Add(1)
	go bw.committer()

	if flushInterval > 0 {
		bw.flushTicker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.loop()
	}
	return bw
}

// Submit enqueues entries.
func (bw *BatchWriter) Submit(entries ...dictionary.Entry) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	for _, e := range entries {
		bw.buf = append(bw.buf, e)
		if len(bw.buf) >= bw.cap {
			bw.flushLocked()
		}
	}
	return nil
}

// Err returns the first asynchronous error, if any.
func (bw *BatchWriter) Err() error {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.lastErr
}

func (bw *BatchWriter) fail(err error) {
	bw.errMu.Lock()
	if bw.lastErr == nil {
		bw.lastErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

// flushLocked assumes bw.mu is held. A full commitCh blocks the caller,
// which is how backpressure reaches the consumer.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]dictionary.Entry, 0, bw.cap)

	select {
	case bw.commitCh <- batch:
	case <-bw.ctx.Done():
		bw.fail(fmt.Errorf("batch writer: dropping batch of %d entries due to context cancellation", len(batch)))
	}
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		// Once a batch failed the import is lost; drain without writing.
		if bw.Err() != nil {
			continue
		}
		if err := bw.executeBatch(batch); err != nil {
			bw.fail(err)
		}
	}
}

func (bw *BatchWriter) executeBatch(batch []dictionary.Entry) error {
	if bw.flush == nil {
		return nil
	}
	// Background context so a closing writer still flushes what it holds.
	if err := bw.flush(context.Background(), batch); err != nil {
		return fmt.Errorf("flush batch (%d entries): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) loop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.flushTicker.C:
			bw.mu.Lock()
			if len(bw.buf) > 0 {
				bw.flushLocked()
			}
			bw.mu.Unlock()
		}
	}
}

// Close stops accepting submissions and waits for pending batches to be
// flushed. It returns the first error seen.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.flushTicker != nil {
		bw.flushTicker.Stop()
	}
	if len(bw.buf) > 0 {
		bw.flushLocked()
	}
	bw.mu.Unlock()

	bw.cancel()        // Stop ticker loop
	close(bw.commitCh) // Stop committer loop
	bw.wg.Wait()

	return bw.Err()
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
