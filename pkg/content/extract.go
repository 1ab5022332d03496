// Package content extracts typed sense data from structured-content trees.
package content

import (
	"strings"
	"unicode/utf8"

	"github.com/japaniel/tapdict/pkg/dictionary"
	"github.com/rs/zerolog/log"
)

// MaxGlossRunes is the longest text kept as a definition. Anything longer
// is a full sentence, not a gloss.
const MaxGlossRunes = 100

// Kind classifies a list inside a tree.
type Kind int

const (
	KindNone Kind = iota
	KindDefinitions
	KindExamples
	KindNotes
	KindReferences
	KindAntonyms
	KindInfoGlossary
	KindSourceLanguages
)

var kindNames = map[string]Kind{
	"glossary":         KindDefinitions,
	"definitions":      KindDefinitions,
	"examples":         KindExamples,
	"example-sentence": KindExamples,
	"notes":            KindNotes,
	"references":       KindReferences,
	"xref":             KindReferences,
	"antonyms":         KindAntonyms,
	"infoGlossary":     KindInfoGlossary,
	"info-glossary":    KindInfoGlossary,
	"sourceLanguages":  KindSourceLanguages,
	"source-languages": KindSourceLanguages,
}

// ParseKind maps a data-content marker onto a Kind.
func ParseKind(s string) Kind {
	return kindNames[s]
}

func (k Kind) String() string {
	switch k {
	case KindDefinitions:
		return "definitions"
	case KindExamples:
		return "examples"
	case KindNotes:
		return "notes"
	case KindReferences:
		return "references"
	case KindAntonyms:
		return "antonyms"
	case KindInfoGlossary:
		return "infoGlossary"
	case KindSourceLanguages:
		return "sourceLanguages"
	}
	return "none"
}

// Aggregate is the flattened, display-ready content of one tree.
type Aggregate struct {
	Definitions     []string
	Examples        []dictionary.Example
	Notes           []string
	References      []dictionary.WordReference
	Antonyms        []dictionary.WordReference
	InfoGlossary    []string
	SourceLanguages []string
}

// Sense copies the aggregate into a sense without parts of speech.
func (a Aggregate) Sense() dictionary.Sense {
	return dictionary.Sense{
		Glosses:         a.Definitions,
		Examples:        a.Examples,
		Notes:           a.Notes,
		References:      a.References,
		Antonyms:        a.Antonyms,
		InfoGlossary:    a.InfoGlossary,
		SourceLanguages: a.SourceLanguages,
	}
}

// Extract walks root depth first. Lists tagged with a kind are handed to
// that kind's collector and not descended into further; untagged nodes
// are only recursed into. Extract never fails: missing kinds leave empty
// fields. When no definitions list exists, each untagged top-level block
// becomes one gloss.
func Extract(root Node) Aggregate {
	var agg Aggregate
	walk(root, 0, &agg)
	if len(agg.Definitions) == 0 {
		agg.Definitions = fallbackGlosses(root)
	}
	return agg
}

func walk(n Node, depth int, agg *Aggregate) {
	if depth > MaxDepth {
		log.Warn().Int("depth", depth).Msg("structured content exceeds depth limit, subtree skipped")
		return
	}
	switch n.Kind() {
	case KindDefinitions:
		agg.Definitions = append(agg.Definitions, collectDefinitions(n)...)
	case KindExamples:
		agg.Examples = append(agg.Examples, collectExamples(n)...)
	case KindNotes:
		agg.Notes = append(agg.Notes, collectText(n)...)
	case KindInfoGlossary:
		agg.InfoGlossary = append(agg.InfoGlossary, collectText(n)...)
	case KindSourceLanguages:
		agg.SourceLanguages = append(agg.SourceLanguages, collectText(n)...)
	case KindReferences:
		agg.References = append(agg.References, collectReferences(n)...)
	case KindAntonyms:
		agg.Antonyms = append(agg.Antonyms, collectReferences(n)...)
	default:
		for _, c := range n.Children {
			walk(c, depth+1, agg)
		}
	}
}

// leaves returns the list items of a tagged node. A single ul/ol wrapper is
// looked through.
func leaves(n Node) []Node {
	items := n.Children
	if len(items) == 1 && (items[0].Tag == "ul" || items[0].Tag == "ol") && items[0].Kind() == KindNone {
		items = items[0].Children
	}
	return items
}

func ownText(n Node) string {
	if n.IsText() {
		return strings.TrimSpace(n.Text)
	}
	allText := len(n.Children) > 0
	for _, c := range n.Children {
		if !c.IsText() {
			allText = false
			break
		}
	}
	if allText {
		return n.Flatten()
	}
	return n.firstText(0)
}

func collectDefinitions(n Node) []string {
	var out []string
	for _, leaf := range leaves(n) {
		text := ownText(leaf)
		if text == "" || utf8.RuneCountInString(text) > MaxGlossRunes {
			continue
		}
		out = append(out, text)
	}
	return out
}

func collectText(n Node) []string {
	var out []string
	for _, leaf := range leaves(n) {
		if text := leaf.Flatten(); text != "" {
			out = append(out, text)
		}
	}
	return out
}

type segment struct {
	text string
	lang string
}

// segments splits n into sentences: every node without block descendants
// is one sentence, tagged with the nearest language marker at or above it.
func segments(n Node, lang string, depth int, out *[]segment) {
	if depth > MaxDepth {
		return
	}
	if n.Lang != "" {
		lang = n.Lang
	}
	if n.IsText() || !n.hasBlockDescendant() {
		if t := n.Flatten(); t != "" {
			*out = append(*out, segment{text: t, lang: lang})
		}
		return
	}
	for _, c := range n.Children {
		segments(c, lang, depth+1, out)
	}
}

// collectExamples pairs each sentence with the language-tagged sentence
// that follows it. A sentence left without a translation is dropped.
func collectExamples(n Node) []dictionary.Example {
	var segs []segment
	for _, c := range n.Children {
		segments(c, "", 0, &segs)
	}
	var out []dictionary.Example
	pending := ""
	for _, s := range segs {
		if s.lang != "" && pending != "" {
			out = append(out, dictionary.Example{Source: pending, Translation: s.text})
			pending = ""
			continue
		}
		pending = s.text
	}
	return out
}

func anchors(n Node, depth int, out *[]dictionary.WordReference) {
	if depth > MaxDepth {
		return
	}
	if n.Tag == "a" {
		if t := n.Flatten(); t != "" {
			*out = append(*out, dictionary.WordReference{Text: t, Href: n.Href})
		}
		return
	}
	for _, c := range n.Children {
		anchors(c, depth+1, out)
	}
}

// collectReferences keeps linked words only. Plain text counts as a
// display-only reference when the list contains no links at all;
// otherwise it is lead-in text and dropped.
func collectReferences(n Node) []dictionary.WordReference {
	items := leaves(n)
	var linked []dictionary.WordReference
	for _, leaf := range items {
		anchors(leaf, 0, &linked)
	}
	if len(linked) > 0 {
		return linked
	}
	var plain []dictionary.WordReference
	for _, leaf := range items {
		if t := leaf.Flatten(); t != "" {
			plain = append(plain, dictionary.WordReference{Text: t})
		}
	}
	return plain
}

// fallbackGlosses turns each untagged top-level block into a gloss,
// ignoring any kind-tagged subtrees inside it.
func fallbackGlosses(root Node) []string {
	blocks := root.Children
	if root.IsText() || root.Type == "structured-content" {
		blocks = []Node{root}
	}
	var top []Node
	for _, c := range blocks {
		if c.Type == "structured-content" {
			top = append(top, c.Children...)
			continue
		}
		top = append(top, c)
	}
	var out []string
	for _, c := range top {
		if c.Kind() != KindNone {
			continue
		}
		text := strings.Join(strings.Fields(untaggedText(c, 0)), " ")
		if text == "" || utf8.RuneCountInString(text) > MaxGlossRunes {
			continue
		}
		out = append(out, text)
	}
	return out
}

func untaggedText(n Node, depth int) string {
	if depth > MaxDepth || n.Kind() != KindNone || n.Tag == "rt" || n.Tag == "rp" {
		return ""
	}
	var b strings.Builder
	b.WriteString(n.Text)
	for _, c := range n.Children {
		if c.isBlock() {
			b.WriteByte(' ')
		}
		b.WriteString(untaggedText(c, depth+1))
	}
	return b.String()
}
