package termbank

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildZip(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestOpenArchive_OrdersBanksNumerically(t *testing.T) {
	files := map[string]string{
		"index.json":        `{"title":"Test Dict","format":3,"revision":"r1","sequenced":true,"author":"me"}`,
		"term_bank_10.json": `[["十","じゅう","","num",0,["ten"],10,""]]`,
		"term_bank_2.json":  `[["二","に","","num",0,["two"],2,""],["三","さん","","num",0,["three"],3,""]]`,
		"tag_bank_1.json":   `[]`,
	}
	data := buildZip(t, files, []string{"term_bank_10.json", "index.json", "tag_bank_1.json", "term_bank_2.json"})
	src, err := OpenArchive(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if src.Index.Title != "Test Dict" || src.Index.Format != 3 || !src.Index.Sequenced {
		t.Fatalf("index = %+v", src.Index)
	}
	var names []string
	for _, b := range src.Banks {
		names = append(names, b.Name)
	}
	if diff := cmp.Diff([]string{"term_bank_2.json", "term_bank_10.json"}, names); diff != "" {
		t.Fatalf("bank order:\n%s", diff)
	}

	var idx []int
	var exprs []string
	err = src.Each(DefaultStreamThreshold, func(i int, raw json.RawMessage) error {
		e, err := ConvertRecord("d", int64(i)+1, raw)
		if err != nil {
			return err
		}
		idx = append(idx, i)
		exprs = append(exprs, e.Expression)
		return nil
	})
	if err != nil {
		t.Fatalf("each: %v", err)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, idx); diff != "" {
		t.Fatalf("indexes:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"二", "三", "十"}, exprs); diff != "" {
		t.Fatalf("expressions:\n%s", diff)
	}
}

func TestOpenArchive_Invalid(t *testing.T) {
	if _, err := OpenArchive(bytes.NewReader([]byte("not a zip")), 9); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
	noIndex := buildZip(t, map[string]string{"term_bank_1.json": `[]`}, []string{"term_bank_1.json"})
	if _, err := OpenArchive(bytes.NewReader(noIndex), int64(len(noIndex))); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("missing index: expected ErrCorruptFile, got %v", err)
	}
	noBanks := buildZip(t, map[string]string{"index.json": `{"title":"x"}`}, []string{"index.json"})
	if _, err := OpenArchive(bytes.NewReader(noBanks), int64(len(noBanks))); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("no banks: expected ErrCorruptFile, got %v", err)
	}
}

func TestOpen_LooseFileAndZip(t *testing.T) {
	dir := t.TempDir()
	loose := filepath.Join(dir, "mini.json")
	if err := os.WriteFile(loose, []byte(sampleBank), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := Open(loose)
	if err != nil {
		t.Fatalf("open loose: %v", err)
	}
	defer src.Close()
	if src.Index.Title != "mini" || len(src.Banks) != 1 {
		t.Fatalf("loose source = %+v", src)
	}

	zipPath := filepath.Join(dir, "dict.zip")
	data := buildZip(t, map[string]string{
		"index.json":       `{"title":"Z","version":1}`,
		"term_bank_1.json": sampleBank,
	}, []string{"index.json", "term_bank_1.json"})
	if err := os.WriteFile(zipPath, data, 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	zs, err := Open(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zs.Close()
	if zs.Index.Format != 1 {
		t.Fatalf("format should fall back to version: %+v", zs.Index)
	}
	count := 0
	if err := zs.Each(DefaultStreamThreshold, func(int, json.RawMessage) error { count++; return nil }); err != nil {
		t.Fatalf("each: %v", err)
	}
	if count != 5 {
		t.Fatalf("records = %d, want 5", count)
	}
}
