// Package lookup resolves a text fragment to the dictionary entry that
// matches its longest resolvable prefix.
package lookup

import (
	"context"
	"sort"
	"strings"

	"github.com/japaniel/tapdict/pkg/deinflect"
	"github.com/japaniel/tapdict/pkg/dictionary"
)

// DefaultMaxRunes caps how much of the input is considered.
const DefaultMaxRunes = 32

// MorphologyRule is the rule chain reported for lemmatizer candidates.
const MorphologyRule = "morphology"

// Lemmatizer proposes citation forms for a prefix through morphological
// analysis. It complements the rule table for forms it does not cover.
type Lemmatizer interface {
	Lemmas(prefix string) []string
}

// Result is a successful lookup. MatchedLength counts runes of the
// normalized input.
type Result struct {
	MatchedLength int              `json:"matchedLength"`
	MatchedTerm   string           `json:"matchedTerm"`
	Entry         dictionary.Entry `json:"entry"`
	RuleChain     []string         `json:"ruleChain"`
}

// Coordinator runs progressive longest-match lookups. It holds no mutable
// state and is safe for concurrent use.
type Coordinator struct {
	store       dictionary.Reader
	deinflector *deinflect.Deinflector
	lemmatizer  Lemmatizer
	maxRunes    int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLemmatizer adds morphology candidates after the rule candidates.
func WithLemmatizer(l Lemmatizer) Option {
	return func(c *Coordinator) { c.lemmatizer = l }
}

// WithMaxRunes overrides DefaultMaxRunes.
func WithMaxRunes(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxRunes = n
		}
	}
}

// NewCoordinator creates a Coordinator. A nil deinflector only tries the
// input as written.
func NewCoordinator(store dictionary.Reader, d *deinflect.Deinflector, opts ...Option) *Coordinator {
	if d == nil {
		d = deinflect.New(nil)
	}
	c := &Coordinator{store: store, deinflector: d, maxRunes: DefaultMaxRunes}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup tries prefixes of text from longest to shortest and returns the
// first hit. dictionaryIDs is the enabled set in priority order. A miss is
// (nil, nil); blank input misses without touching the store.
func (c *Coordinator) Lookup(ctx context.Context, text string, dictionaryIDs []string) (*Result, error) {
	text = dictionary.Normalize(text)
	if text == "" || len(dictionaryIDs) == 0 {
		return nil, nil
	}
	runes := []rune(text)
	if len(runes) > c.maxRunes {
		runes = runes[:c.maxRunes]
	}
	for length := len(runes); length > 0; length-- {
		prefix := string(runes[:length])
		if strings.TrimSpace(prefix) == "" {
			continue
		}
		for _, cand := range c.candidates(prefix) {
			entry, err := c.resolve(ctx, cand, dictionaryIDs)
			if err != nil {
				return nil, err
			}
			if entry == nil {
				continue
			}
			chain := cand.RuleChain
			if chain == nil {
				chain = []string{}
			}
			return &Result{
				MatchedLength: length,
				MatchedTerm:   cand.Term,
				Entry:         *entry,
				RuleChain:     chain,
			}, nil
		}
	}
	return nil, nil
}

// candidates orders the identity first, then rule candidates by depth in
// rule table order, then lemma hints not already present.
func (c *Coordinator) candidates(prefix string) []deinflect.Candidate {
	cands := c.deinflector.Deinflect(prefix)
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Depth < cands[j].Depth })
	if c.lemmatizer == nil {
		return cands
	}
	seen := make(map[string]bool, len(cands))
	for _, cand := range cands {
		seen[cand.Term] = true
	}
	for _, lemma := range c.lemmatizer.Lemmas(prefix) {
		lemma = dictionary.Normalize(lemma)
		if lemma == "" || seen[lemma] {
			continue
		}
		seen[lemma] = true
		cands = append(cands, deinflect.Candidate{
			Term:      lemma,
			RuleChain: []string{MorphologyRule},
			Depth:     1,
		})
	}
	return cands
}

// resolve queries by expression, then reading, then the hiragana form of
// the reading. Rule candidates only resolve to entries whose parts of
// speech fit the tags they were reached with; when the best entry does not
// fit, the remaining homographs are tried in rank order.
func (c *Coordinator) resolve(ctx context.Context, cand deinflect.Candidate, dictionaryIDs []string) (*dictionary.Entry, error) {
	type query struct {
		field dictionary.Field
		term  string
		run   func(context.Context, string, []string) (*dictionary.Entry, error)
	}
	queries := []query{
		{dictionary.FieldExpression, cand.Term, c.store.QueryByExpression},
		{dictionary.FieldReading, cand.Term, c.store.QueryByReading},
	}
	if hira := dictionary.ToHiragana(cand.Term); hira != cand.Term {
		queries = append(queries, query{dictionary.FieldReading, hira, c.store.QueryByReading})
	}
	for _, q := range queries {
		entry, err := q.run(ctx, q.term, dictionaryIDs)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		if cand.Depth == 0 || entry.Accepts(cand.Tags) {
			return entry, nil
		}
		homographs, err := c.store.Homographs(ctx, q.field, q.term, dictionaryIDs)
		if err != nil {
			return nil, err
		}
		for i := range homographs {
			if homographs[i].Accepts(cand.Tags) {
				return &homographs[i], nil
			}
		}
	}
	return nil, nil
}

// LookupMany queries each term exactly, by expression then reading, and
// returns the hits keyed by the term as given. Blank terms are ignored.
func (c *Coordinator) LookupMany(ctx context.Context, terms []string, dictionaryIDs []string) (map[string]dictionary.Entry, error) {
	out := make(map[string]dictionary.Entry)
	if len(dictionaryIDs) == 0 {
		return out, nil
	}
	for _, term := range terms {
		if _, done := out[term]; done {
			continue
		}
		if strings.TrimSpace(term) == "" {
			continue
		}
		entry, err := c.resolve(ctx, deinflect.Candidate{Term: dictionary.Normalize(term)}, dictionaryIDs)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			out[term] = *entry
		}
	}
	return out, nil
}
