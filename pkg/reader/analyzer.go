// Package reader turns running text into words the lookup coordinator can
// resolve: kagome segmentation for scans and lemma hints, plus article
// extraction for web pages.
package reader

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // The pronunciation (katakana, e.g. "イッ")
	PartsOfSpeech []string // e.g. ["動詞", "自立", "*", "*"] (Kagome POS labels)
	// PrimaryPOS stores the first (primary) part of speech if available.
	PrimaryPOS string
}

// Sentence represents a sentence containing tokens. Text keeps the
// delimiter that ended it.
type Sentence struct {
	Text   string
	Tokens []Token
}

// IPA primary parts of speech.
const (
	posVerb      = "動詞"
	posAdjective = "形容詞"
	posAuxiliary = "助動詞"
	posParticle  = "助詞"
	posSymbol    = "記号"
)

// Analyzer handles text segmentation. It is safe for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens with readings and base forms.
func (a *Analyzer) Analyze(text string) ([]Token, error) {
	var result []Token
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: 0-3 part of speech, 4 conjugation type,
		// 5 conjugation form, 6 base form, 7 reading, 8 pronunciation.
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
		})
	}
	return result, nil
}

// AnalyzeDocument splits the text into sentences and tokenizes each sentence.
func (a *Analyzer) AnalyzeDocument(text string) ([]Sentence, error) {
	var result []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		tokens, err := a.Analyze(s)
		if err != nil {
			return nil, err
		}
		result = append(result, Sentence{Text: s, Tokens: tokens})
	}
	return result, nil
}

// Words returns the base form of every word token in the sentence, in
// order and with repeats, skipping punctuation.
func (s Sentence) Words() []string {
	words := make([]string, 0, len(s.Tokens))
	for _, tok := range s.Tokens {
		if tok.PrimaryPOS == posSymbol {
			continue
		}
		words = append(words, tok.BaseForm)
	}
	return words
}

// Lemmas proposes the citation form of a prefix that is one inflected
// verb or adjective followed only by auxiliaries, such as 食べちゃった.
// It returns nil for anything else.
func (a *Analyzer) Lemmas(prefix string) []string {
	tokens, err := a.Analyze(prefix)
	if err != nil || len(tokens) == 0 {
		return nil
	}
	head := tokens[0]
	if head.PrimaryPOS != posVerb && head.PrimaryPOS != posAdjective {
		return nil
	}
	for _, tok := range tokens[1:] {
		if !isInflectionTail(tok) {
			return nil
		}
	}
	if head.BaseForm == prefix {
		return nil
	}
	return []string{head.BaseForm}
}

// isInflectionTail reports whether tok only continues the conjugation of
// the word before it.
func isInflectionTail(tok Token) bool {
	switch tok.PrimaryPOS {
	case posAuxiliary:
		return true
	case posVerb, posAdjective:
		// ちゃう, いる, ない and friends are tagged 非自立 or 接尾.
		return len(tok.PartsOfSpeech) > 1 && (tok.PartsOfSpeech[1] == "非自立" || tok.PartsOfSpeech[1] == "接尾")
	case posParticle:
		// て/で joining a verb to its auxiliary.
		return len(tok.PartsOfSpeech) > 1 && tok.PartsOfSpeech[1] == "接続助詞"
	}
	return false
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		// Split on common Japanese sentence delimiters and newlines.
		// 。(3002), ！(FF01), ？(FF1F)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
