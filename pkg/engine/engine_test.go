package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/japaniel/tapdict/internal/config"
	"github.com/japaniel/tapdict/pkg/dictionary"
	"github.com/japaniel/tapdict/pkg/reader"
	"github.com/japaniel/tapdict/pkg/termbank"
)

func archive(t *testing.T, title, bank string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range [][2]string{
		{"index.json", `{"title":"` + title + `","format":3,"revision":"1"}`},
		{"term_bank_1.json", bank},
	} {
		w, err := zw.Create(f[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func source(t *testing.T, title, bank string) *termbank.Source {
	t.Helper()
	data := archive(t, title, bank)
	src, err := termbank.OpenArchive(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return src
}

const bank = `[["食べる","たべる","","v1",0,["to eat"],1,""],["猫","ねこ","","n",0,["cat"],2,""],["見る","みる","","v1",0,["to see"],3,""]]`

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(dictionary.NewMemoryStore(), opts)
	require.NoError(t, err)
	return e
}

func TestImportEnablesAndLooksUp(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})

	report, err := e.ImportSource(ctx, source(t, "JMdict", bank), "")
	require.NoError(t, err)
	require.Equal(t, "JMdict", report.DictionaryID)
	require.Equal(t, 3, report.Imported)
	require.Equal(t, []string{"JMdict"}, e.Enabled())

	res, err := e.Lookup(ctx, "食べました", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "食べる", res.MatchedTerm)
	require.Equal(t, []string{"to eat"}, res.Entry.Glosses())
}

func TestReimportPurgesCache(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	_, err := e.ImportSource(ctx, source(t, "d", bank), "d")
	require.NoError(t, err)

	res, err := e.Lookup(ctx, "猫", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"cat"}, res.Entry.Glosses())

	_, err = e.ImportSource(ctx, source(t, "d", `[["猫","ねこ","","n",0,["feline"],2,""]]`), "d")
	require.NoError(t, err)

	res, err = e.Lookup(ctx, "猫", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"feline"}, res.Entry.Glosses())
	require.Equal(t, []string{"d"}, e.Enabled(), "re-import must not enable twice")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	_, err := e.ImportSource(ctx, source(t, "d", bank), "d")
	require.NoError(t, err)
	res, err := e.Lookup(ctx, "猫", nil)
	require.NoError(t, err)
	require.NotNil(t, res)

	require.NoError(t, e.Delete(ctx, "d"))
	require.Empty(t, e.Enabled())

	res, err = e.Lookup(ctx, "猫", []string{"d"})
	require.NoError(t, err)
	require.Nil(t, res, "deleted dictionary must miss, not serve a cached hit")

	err = e.Delete(ctx, "d")
	require.True(t, errors.Is(err, dictionary.ErrUnknownDictionary), "got %v", err)
}

// stallingStore answers the first expression query, then holds the answer
// until released.
type stallingStore struct {
	*dictionary.MemoryStore
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *stallingStore) QueryByExpression(ctx context.Context, term string, ids []string) (*dictionary.Entry, error) {
	e, err := s.MemoryStore.QueryByExpression(ctx, term, ids)
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return e, err
}

func TestDeleteDuringLookupDoesNotCacheStaleEntry(t *testing.T) {
	ctx := context.Background()
	store := &stallingStore{
		MemoryStore: dictionary.NewMemoryStore(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	e, err := New(store, Options{})
	require.NoError(t, err)
	_, err = e.ImportSource(ctx, source(t, "jm", bank), "jm")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := e.Lookup(ctx, "猫", nil)
		done <- err
	}()
	<-store.started
	require.NoError(t, e.Delete(ctx, "jm"))
	close(store.release)
	require.NoError(t, <-done)

	res, err := e.Lookup(ctx, "猫", []string{"jm"})
	require.NoError(t, err)
	require.Nil(t, res, "deleted entry served from cache")
}

func TestLookupUsesExplicitPriority(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, Options{})
	_, err := e.ImportSource(ctx, source(t, "a", `[["A","えー","","n",0,["B"],1,""]]`), "a")
	require.NoError(t, err)
	_, err = e.ImportSource(ctx, source(t, "b", `[["A","えー","","n",0,["C"],1,""]]`), "b")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, e.Enabled())

	res, err := e.Lookup(ctx, "A", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, res.Entry.Glosses())

	res, err = e.Lookup(ctx, "A", []string{"b", "a"})
	require.NoError(t, err)
	require.Equal(t, []string{"C"}, res.Entry.Glosses())
}

func TestRecordLookupNeedsCounters(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.RecordLookup(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoLookupCounts)
}

func TestScanWithoutAnalyzer(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.Scan(context.Background(), "猫", nil)
	require.ErrorIs(t, err, ErrNoAnalyzer)
}

func TestScanCountsWords(t *testing.T) {
	analyzer, err := reader.NewAnalyzer()
	require.NoError(t, err)
	ctx := context.Background()
	e := newEngine(t, Options{Analyzer: analyzer})
	_, err = e.ImportSource(ctx, source(t, "d", bank), "d")
	require.NoError(t, err)

	res, err := e.Scan(ctx, "猫を見た。猫が食べた。", nil)
	require.NoError(t, err)

	byTerm := make(map[string]ScannedWord)
	for _, w := range res.Words {
		byTerm[w.Term] = w
	}
	require.Equal(t, 2, byTerm["猫"].Count)
	require.NotNil(t, byTerm["猫"].Entry)
	require.NotNil(t, byTerm["見る"].Entry)
	require.NotNil(t, byTerm["食べる"].Entry)
	require.Equal(t, len(res.Words), res.Found+res.Unknown)
	require.Equal(t, "猫", res.TopWords(1)[0].Term)
	require.Equal(t, 2, res.Sentences)
	require.Equal(t, "猫を見た。", byTerm["猫"].Context)
	require.Equal(t, "猫が食べた。", byTerm["食べる"].Context)
}

func TestOpenWithSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "dict.db"), BusyTimeout: time.Second},
		Lookup:   config.LookupConfig{CacheSize: 10, MaxDepth: 6, MaxInputRunes: 32},
		Import:   config.ImportConfig{StreamThreshold: 1 << 20, Workers: 2, BatchSize: 2},
		Log:      config.LogConfig{Level: "info"},
		Server:   config.ServerConfig{Port: 8080},
	}
	e, err := Open(ctx, cfg, false)
	require.NoError(t, err)

	path := filepath.Join(dir, "jmdict.zip")
	require.NoError(t, os.WriteFile(path, archive(t, "JMdict", bank), 0o644))
	_, err = e.Import(ctx, path, "jmdict")
	require.NoError(t, err)

	res, err := e.Lookup(ctx, "見ました", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "見る", res.MatchedTerm)

	n, err := e.RecordLookup(ctx, res)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = e.RecordLookup(ctx, res)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, e.Close())

	// Reopening enables every installed dictionary.
	e, err = Open(ctx, cfg, false)
	require.NoError(t, err)
	defer e.Close()
	require.Equal(t, []string{"jmdict"}, e.Enabled())
}
