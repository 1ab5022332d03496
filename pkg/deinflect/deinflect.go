// Package deinflect reverses suffix-based conjugation to recover citation
// forms.
package deinflect

import (
	"strings"
)

// DefaultMaxDepth bounds how many rules may be chained, enough for
// causative-passive-negative-past style stacks.
const DefaultMaxDepth = 6

// Rule rewrites a trailing Strip into Append. From lists the grammatical
// tags the inflected form may carry for the rule to apply; an empty From
// means the rule only applies to raw input. To is the tag of the result.
type Rule struct {
	Name   string   `yaml:"name" json:"name"`
	Strip  string   `yaml:"strip" json:"strip"`
	Append string   `yaml:"append" json:"append"`
	From   []string `yaml:"from" json:"from,omitempty"`
	To     string   `yaml:"to" json:"to"`
}

// Candidate is a possible citation form of the input.
type Candidate struct {
	Term      string   `json:"term"`
	RuleChain []string `json:"ruleChain"`
	Depth     int      `json:"depth"`
	// Tags are the grammatical categories the term was reached with at
	// Depth. Empty for the identity candidate, which is unconstrained.
	Tags []string `json:"tags,omitempty"`
}

// Deinflector holds an immutable rule table and is safe for concurrent use.
type Deinflector struct {
	rules    []Rule
	maxDepth int
}

// Option configures a Deinflector.
type Option func(*Deinflector)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(d *Deinflector) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// New builds a Deinflector over rules. Rules with an empty Strip are
// ignored since they would match every token.
func New(rules []Rule, opts ...Option) *Deinflector {
	d := &Deinflector{maxDepth: DefaultMaxDepth}
	for _, r := range rules {
		if r.Strip == "" {
			continue
		}
		d.rules = append(d.rules, r)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (r Rule) accepts(tag string) bool {
	return tag == "" || contains(r.From, tag)
}

// Deinflect returns every candidate reachable from token, identity first.
// Each term appears once, with the shortest chain that reaches it; when
// several rules reach a term at that depth their tags are merged. Beyond
// the identity candidate the order carries no meaning.
func (d *Deinflector) Deinflect(token string) []Candidate {
	identity := Candidate{Term: token, RuleChain: []string{}}
	out := []Candidate{identity}
	if token == "" {
		return out
	}

	// Key: term, Value: position in out
	index := map[string]int{token: 0}
	type state struct{ term, tag string }
	expanded := map[state]bool{{token, ""}: true}

	type node struct {
		term  string
		tag   string
		chain []string
	}
	frontier := []node{{term: token, chain: identity.RuleChain}}
	for depth := 1; depth <= d.maxDepth && len(frontier) > 0; depth++ {
		var next []node
		for _, c := range frontier {
			for _, r := range d.rules {
				if !strings.HasSuffix(c.term, r.Strip) || !r.accepts(c.tag) {
					continue
				}
				term := c.term[:len(c.term)-len(r.Strip)] + r.Append
				if term == "" {
					continue
				}
				st := state{term, r.To}
				if expanded[st] {
					continue
				}
				expanded[st] = true
				chain := make([]string, len(c.chain), len(c.chain)+1)
				copy(chain, c.chain)
				chain = append(chain, r.Name)
				next = append(next, node{term: term, tag: r.To, chain: chain})

				i, ok := index[term]
				if !ok {
					index[term] = len(out)
					out = append(out, Candidate{Term: term, RuleChain: chain, Depth: depth, Tags: tagList(r.To)})
					continue
				}
				if out[i].Depth == depth && r.To != "" && !contains(out[i].Tags, r.To) {
					out[i].Tags = append(out[i].Tags, r.To)
				}
			}
		}
		frontier = next
	}
	return out
}

func tagList(tag string) []string {
	if tag == "" {
		return nil
	}
	return []string{tag}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
