package deinflect

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func find(cands []Candidate, term string) (Candidate, bool) {
	for _, c := range cands {
		if c.Term == term {
			return c, true
		}
	}
	return Candidate{}, false
}

func TestDeinflect_IdentityFirst(t *testing.T) {
	d := New(Japanese())
	for _, tok := range []string{"食べました", "xyz", "", "あ"} {
		got := d.Deinflect(tok)
		if len(got) == 0 {
			t.Fatalf("%q: no candidates", tok)
		}
		want := Candidate{Term: tok, RuleChain: []string{}}
		if diff := cmp.Diff(want, got[0]); diff != "" {
			t.Errorf("%q: identity mismatch (-want +got):\n%s", tok, diff)
		}
	}
}

func TestDeinflect_Japanese(t *testing.T) {
	d := New(Japanese())
	tests := []struct {
		in    string
		want  string
		chain []string
		tag   string
	}{
		{"食べました", "食べる", []string{"polite past"}, "v1"},
		{"大きかった", "大きい", []string{"past"}, "adj-i"},
		{"食べなかった", "食べる", []string{"past", "negative"}, "v1"},
		{"書かせられた", "書く", []string{"past", "potential or passive", "causative"}, "v5"},
		{"飲んでいる", "飲む", []string{"progressive"}, "v5"},
		{"大きくなかった", "大きい", []string{"past", "negative"}, "adj-i"},
		{"勉強しました", "勉強する", []string{"polite past"}, "vs"},
		{"来ない", "来る", []string{"negative"}, "vk"},
		{"行った", "行く", []string{"past"}, "v5"},
		{"食べたかった", "食べる", []string{"past", "want"}, "v1"},
	}
	for _, tt := range tests {
		got, ok := find(d.Deinflect(tt.in), tt.want)
		if !ok {
			t.Errorf("Deinflect(%q) lacks %q", tt.in, tt.want)
			continue
		}
		if diff := cmp.Diff(tt.chain, got.RuleChain); diff != "" {
			t.Errorf("Deinflect(%q) chain mismatch (-want +got):\n%s", tt.in, diff)
		}
		if !contains(got.Tags, tt.tag) || got.Depth != len(tt.chain) {
			t.Errorf("Deinflect(%q) = %+v, want tag %s depth %d", tt.in, got, tt.tag, len(tt.chain))
		}
	}
}

// Conjugating a synthetic citation form with any rule must be reversible.
func TestDeinflect_EveryRuleReverses(t *testing.T) {
	rules := Japanese()
	d := New(rules)
	for _, r := range rules {
		base := "語" + r.Append
		surface := "語" + r.Strip
		if _, ok := find(d.Deinflect(surface), base); !ok && base != surface {
			t.Errorf("rule %q (%s→%s): %q does not yield %q", r.Name, r.Strip, r.Append, surface, base)
		}
	}
}

func TestDeinflect_UniqueTermsShortestChain(t *testing.T) {
	d := New(Japanese())
	got := d.Deinflect("食べさせられませんでした")
	seen := map[string]bool{}
	for _, c := range got {
		if seen[c.Term] {
			t.Fatalf("duplicate term %q", c.Term)
		}
		seen[c.Term] = true
		if c.Depth != len(c.RuleChain) {
			t.Fatalf("depth %d != chain length %d for %q", c.Depth, len(c.RuleChain), c.Term)
		}
	}
	c, ok := find(got, "食べる")
	if !ok {
		t.Fatalf("missing 食べる")
	}
	if c.Depth != 3 {
		t.Fatalf("食べる depth = %d, chain %v", c.Depth, c.RuleChain)
	}
}

func TestDeinflect_IncompatibleTagsDoNotChain(t *testing.T) {
	rules := []Rule{
		{Name: "past", Strip: "た", Append: "", To: "v1"},
		// Only applies to adjective-like forms; a v1 result must not feed it.
		{Name: "negative", Strip: "ない", Append: "る", From: []string{"adj-i"}, To: "v1"},
		{Name: "unknown-source", Strip: "い", Append: "x", From: []string{"nonsense"}, To: "v1"},
	}
	d := New(rules)
	got := d.Deinflect("食べないた")
	if _, ok := find(got, "食べない"); !ok {
		t.Fatalf("past should fire on raw input: %+v", got)
	}
	if _, ok := find(got, "食べる"); ok {
		t.Fatalf("negative fired on a v1 candidate: %+v", got)
	}
	if _, ok := find(got, "食べなx"); ok {
		t.Fatalf("rule with an unknown source tag must never fire on derived candidates")
	}
}

func TestDeinflect_MergesTagsAtSameDepth(t *testing.T) {
	got, ok := find(New(Japanese()).Deinflect("来た"), "来る")
	if !ok {
		t.Fatalf("missing 来る")
	}
	if !contains(got.Tags, "vk") || !contains(got.Tags, "v1") {
		t.Fatalf("tags = %v, want both v1 and vk", got.Tags)
	}
}

func TestDeinflect_MaxDepth(t *testing.T) {
	rules := []Rule{{Name: "strip-a", Strip: "a", Append: "", From: []string{"x"}, To: "x"}}
	d := New(rules, WithMaxDepth(3))
	got := d.Deinflect("baaaaa")
	deepest := 0
	for _, c := range got {
		if c.Depth > deepest {
			deepest = c.Depth
		}
	}
	if deepest != 3 {
		t.Fatalf("deepest = %d, want 3", deepest)
	}
	if _, ok := find(got, "baa"); !ok {
		t.Fatalf("expected baa at depth 3: %+v", got)
	}
}

func TestDeinflect_NoEmptyTerms(t *testing.T) {
	d := New([]Rule{{Name: "all", Strip: "た", Append: ""}})
	for _, c := range d.Deinflect("た") {
		if c.Term == "" {
			t.Fatalf("empty candidate produced")
		}
	}
}

func TestLoadRules(t *testing.T) {
	src := `
rules:
  - name: plural
    strip: es
    append: ""
    to: n
  - name: past
    strip: ed
    append: ""
    from: [v]
    to: v
`
	rules, err := LoadRules(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []Rule{
		{Name: "plural", Strip: "es", To: "n"},
		{Name: "past", Strip: "ed", From: []string{"v"}, To: "v"},
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}
	if _, ok := find(New(rules).Deinflect("boxes"), "box"); !ok {
		t.Fatalf("loaded rules do not apply")
	}
}

func TestLoadRules_Invalid(t *testing.T) {
	for _, src := range []string{
		"rules:\n  - name: x\n",
		"rules:\n  - strip: a\n",
		"rules:\n  - name: x\n    strip: a\n    bogus: 1\n",
		"rules: [",
	} {
		if _, err := LoadRules(strings.NewReader(src)); err == nil {
			t.Errorf("expected error for %q", src)
		}
	}
}
