package main

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>猫の一日</title></head>
<body>
<article>
<h1>猫の一日</h1>
<p>私の<ruby>猫<rt>ねこ</rt></ruby>は毎朝ご飯を食べました。猫は窓から外を見ています。天気がいい日には、庭で遊びます。</p>
<p>昨日は雨が降りました。猫は一日中寝ていました。夜になると、猫はまたご飯を食べました。</p>
<p>来週は友達が猫を見に来る予定です。写真をたくさん撮りたいと思っています。</p>
</article>
</body></html>`

func writeArchive(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := [][2]string{
		{"index.json", `{"title":"CLI Dict","format":3,"revision":"r7"}`},
		{"term_bank_1.json", `[
			["食べる","たべる","v1","v1",10,["to eat"],1,""],
			["見る","みる","v1","v1",10,["to see"],2,""],
			["猫","ねこ","n","",20,["cat"],3,""]
		]`},
	}
	for _, f := range files {
		w, err := zw.Create(f[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// run executes the CLI in process against dbPath and returns its output.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	argv := append([]string{"tapdict", "--db", dbPath, "--log-level", "warn"}, args...)
	err := newApp(&out).Run(argv)
	return out.String(), err
}

func TestCLIImportLookupDelete(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "tapdict.db")
	archive := filepath.Join(tmp, "cli.zip")
	writeArchive(t, archive)

	out, err := run(t, dbPath, "import", "--id", "jmdict", archive)
	require.NoError(t, err)
	require.Contains(t, out, "jmdict")

	out, err = run(t, dbPath, "list")
	require.NoError(t, err)
	require.Contains(t, out, "CLI Dict")
	require.Contains(t, out, "r7")

	out, err = run(t, dbPath, "lookup", "--record", "食べました")
	require.NoError(t, err)
	require.Contains(t, out, "食べる 【たべる】")
	require.Contains(t, out, "to eat")
	require.Contains(t, out, "looked up 1 times")

	out, err = run(t, dbPath, "lookup", "--record", "食べました")
	require.NoError(t, err)
	require.Contains(t, out, "looked up 2 times")

	out, err = run(t, dbPath, "list", "--top", "5")
	require.NoError(t, err)
	require.Contains(t, out, "LOOKUPS")
	require.Contains(t, out, "たべる")

	out, err = run(t, dbPath, "delete", "jmdict")
	require.NoError(t, err)
	require.Contains(t, out, "deleted jmdict")

	out, err = run(t, dbPath, "lookup", "食べました")
	require.NoError(t, err)
	require.Contains(t, out, "no match")

	_, err = run(t, dbPath, "delete", "jmdict")
	require.Error(t, err)
}

func TestCLIRequiresArgument(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tapdict.db")
	_, err := run(t, dbPath, "lookup")
	require.Error(t, err)
	_, err = run(t, dbPath, "import")
	require.Error(t, err)
}

func TestCLIScanURL(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "tapdict.db")
	archive := filepath.Join(tmp, "cli.zip")
	writeArchive(t, archive)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	_, err := run(t, dbPath, "import", archive)
	require.NoError(t, err)

	out, err := run(t, dbPath, "scan", "--url", srv.URL, "--top", "3")
	require.NoError(t, err)
	require.Contains(t, out, "猫")
	require.Contains(t, out, "cat")
	require.NotContains(t, out, "ねこ</rt>")
}

func TestCLIScanFile(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "tapdict.db")
	archive := filepath.Join(tmp, "cli.zip")
	writeArchive(t, archive)
	page := filepath.Join(tmp, "page.html")
	require.NoError(t, os.WriteFile(page, []byte(articleHTML), 0o644))

	_, err := run(t, dbPath, "import", archive)
	require.NoError(t, err)

	out, err := run(t, dbPath, "scan", "--file", page)
	require.NoError(t, err)
	require.Contains(t, out, "食べる")
	require.Contains(t, out, "to eat")

	_, err = run(t, dbPath, "scan")
	require.Error(t, err)
}
