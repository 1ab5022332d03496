package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/japaniel/tapdict/pkg/dictionary"
)

func entries(n int) []dictionary.Entry {
	out := make([]dictionary.Entry, n)
	for i := range out {
		out[i] = dictionary.Entry{ID: int64(i + 1), DictionaryID: "d", Reading: "よみ"}
	}
	return out
}

type recorder struct {
	mu      sync.Mutex
	batches [][]dictionary.Entry
}

func (r *recorder) flush(ctx context.Context, batch []dictionary.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return nil
}

func (r *recorder) sizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, b := range r.batches {
		out = append(out, len(b))
	}
	return out
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	rec := &recorder{}
	bw := NewBatchWriter(rec.flush, 5, 0)
	for _, e := range entries(12) {
		if err := bw.Submit(e); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	// Close and wait for pending batches. Use a timeout to avoid hanging tests.
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- bw.Close()
	}()
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for batch flush/close")
	}

	got := rec.sizes()
	want := []int{5, 5, 2}
	if len(got) != len(want) {
		t.Fatalf("expected batches %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected batches %v, got %v", want, got)
		}
	}
}

func TestBatchWriterKeepsSubmitOrder(t *testing.T) {
	rec := &recorder{}
	bw := NewBatchWriter(rec.flush, 3, 0)
	if err := bw.Submit(entries(10)...); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	var next int64 = 1
	for _, b := range rec.batches {
		for _, e := range b {
			if e.ID != next {
				t.Fatalf("expected entry %d, got %d", next, e.ID)
			}
			next++
		}
	}
	if next != 11 {
		t.Fatalf("expected 10 entries flushed, got %d", next-1)
	}
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	rec := &recorder{}
	bw := NewBatchWriter(rec.flush, 10, 50*time.Millisecond)
	if err := bw.Submit(entries(1)...); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	// wait for flush interval
	time.Sleep(100 * time.Millisecond)
	if got := rec.sizes(); len(got) != 1 {
		t.Fatalf("expected the ticker to flush 1 batch, got %v", got)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestBatchWriterStopsAfterError(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	bw := NewBatchWriter(func(ctx context.Context, batch []dictionary.Entry) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("intentional error")
	}, 2, 0)
	errCh := make(chan error, 4)
	bw.OnError = func(e error) {
		errCh <- e
	}

	if err := bw.Submit(entries(6)...); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	err := bw.Close()
	if err == nil || !strings.Contains(err.Error(), "intentional error") {
		t.Fatalf("expected flush error from Close, got %v", err)
	}
	if bw.Err() == nil {
		t.Fatal("expected Err to report the flush error")
	}
	select {
	case e := <-errCh:
		if e == nil {
			t.Fatal("expected error, got nil")
		}
	default:
		t.Fatal("expected OnError to be called")
	}
	if calls != 1 {
		t.Fatalf("expected batches after the failure to be skipped, got %d flushes", calls)
	}
}

func TestBatchWriterSubmitAfterClose(t *testing.T) {
	bw := NewBatchWriter(nil, 2, 0)
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := bw.Submit(entries(1)...); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed, got %v", err)
	}
	if err := bw.Close(); err != ErrBatchWriterClosed {
		t.Fatalf("expected second Close to report ErrBatchWriterClosed, got %v", err)
	}
}

func TestBatchWriterDropsBatchOnCancel(t *testing.T) {
	// The committer must be busy and commitCh full when ctx is canceled.
	blocker := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	bw := NewBatchWriter(func(ctx context.Context, batch []dictionary.Entry) error {
		once.Do(func() { close(started) })
		<-blocker
		return nil
	}, 1, 0)
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		select {
		case errCh <- e:
		default:
		}
	}

	all := entries(4)
	// First batch: the committer picks it up and blocks.
	if err := bw.Submit(all[0]); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-started
	// Second and third batches fill commitCh.
	if err := bw.Submit(all[1], all[2]); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	bw.cancel()

	// Fourth batch finds commitCh full and ctx done, so it is dropped.
	if err := bw.Submit(all[3]); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	select {
	case e := <-errCh:
		if e == nil || !strings.Contains(e.Error(), "dropping batch") {
			t.Fatalf("unexpected OnError value: %v", e)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected OnError to be called when batch dropped")
	}

	close(blocker)
	if err := bw.Close(); err == nil || !strings.Contains(err.Error(), "dropping batch") {
		t.Fatalf("expected Close to report the dropped batch, got %v", err)
	}
}
