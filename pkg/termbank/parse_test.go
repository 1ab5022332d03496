package termbank

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleBank = `[
  ["食べる","たべる","ichi1","v1",0,["to eat"],1,""],
  ["大きい","おおきい","","adj-i",0,["big"],2,""],
  ["壊れた"],
  ["括弧","かっこ","","n",0,["bracket ] inside", "quote \" and [brace {"],3,""],
  ["pan","","","n",0,"bread"]
]`

func TestScanner_Elements(t *testing.T) {
	sc := NewScanner(strings.NewReader(` [1, "a,b", {"k":[1,2]} , [ "x\"]" ] ,null]`))
	var got []string
	for sc.Scan() {
		got = append(got, string(sc.Record()))
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{`1`, `"a,b"`, `{"k":[1,2]}`, `[ "x\"]" ]`, `null`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestScanner_EmptyArrayAndBOM(t *testing.T) {
	sc := NewScanner(strings.NewReader("\xEF\xBB\xBF [ ] "))
	if sc.Scan() {
		t.Fatalf("expected no elements")
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScanner_Corrupt(t *testing.T) {
	inputs := []string{
		``,
		`{"a":1}`,
		`[["a","b"],`,
		`[["a","b"`,
		`[1 2]`,
		`["unterminated]`,
	}
	for _, in := range inputs {
		sc := NewScanner(strings.NewReader(in))
		for sc.Scan() {
		}
		if !errors.Is(sc.Err(), ErrCorruptFile) {
			t.Errorf("%q: expected ErrCorruptFile, got %v", in, sc.Err())
		}
	}
}

func TestParse_WholeAndStreamAgree(t *testing.T) {
	whole, ws, err := Parse(strings.NewReader(sampleBank), "d")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	stream, ss, err := ParseStream(strings.NewReader(sampleBank), "d")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if diff := cmp.Diff(whole, stream); diff != "" {
		t.Fatalf("paths disagree (-whole +stream):\n%s", diff)
	}
	if diff := cmp.Diff(ws, ss); diff != "" {
		t.Fatalf("stats disagree:\n%s", diff)
	}
	if ws.Records != 5 || ws.Imported != 4 || ws.Skipped != 1 || ws.Samples[0].Index != 2 {
		t.Fatalf("unexpected stats: %+v", ws)
	}
	// Ids are record positions, so the skipped record leaves a gap.
	ids := []int64{}
	for _, e := range whole {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]int64{1, 2, 4, 5}, ids); diff != "" {
		t.Fatalf("ids mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bracket ] inside", `quote " and [brace {`}, whole[2].Glosses()); diff != "" {
		t.Fatalf("glosses mismatch:\n%s", diff)
	}
}

func TestParse_DamagedInputAgrees(t *testing.T) {
	// A broken record inside a well-framed array is skipped on both paths.
	damaged := `[["a","あ","","",0,["x"],1,""], ["b", ,], ["c","し","","",0,["y"],3,""]]`
	whole, ws, err := Parse(strings.NewReader(damaged), "d")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	stream, ss, err := ParseStream(strings.NewReader(damaged), "d")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if diff := cmp.Diff(whole, stream); diff != "" {
		t.Fatalf("paths disagree:\n%s", diff)
	}
	if ws.Skipped != 1 || ss.Skipped != 1 || len(whole) != 2 {
		t.Fatalf("unexpected stats whole=%+v stream=%+v", ws, ss)
	}
}

func TestParse_CorruptFile(t *testing.T) {
	for _, parse := range []func(string) error{
		func(s string) error { _, _, err := Parse(strings.NewReader(s), "d"); return err },
		func(s string) error { _, _, err := ParseStream(strings.NewReader(s), "d"); return err },
	} {
		if err := parse(`{"title":"not a bank"}`); !errors.Is(err, ErrCorruptFile) {
			t.Errorf("expected ErrCorruptFile, got %v", err)
		}
		if err := parse(`[["a","あ","","",0,["x"],1,""]`); !errors.Is(err, ErrCorruptFile) {
			t.Errorf("truncated: expected ErrCorruptFile, got %v", err)
		}
	}
}

func TestParseFile_Threshold(t *testing.T) {
	p := filepath.Join(t.TempDir(), "term_bank_1.json")
	if err := os.WriteFile(p, []byte(sampleBank), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	small, _, err := ParseFile(p, "d", DefaultStreamThreshold)
	if err != nil {
		t.Fatalf("whole: %v", err)
	}
	streamed, _, err := ParseFile(p, "d", 1)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if diff := cmp.Diff(small, streamed); diff != "" {
		t.Fatalf("threshold changed output:\n%s", diff)
	}
}

func TestRecords_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := Records(strings.NewReader(sampleBank), -1, 0, func(int, json.RawMessage) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}
