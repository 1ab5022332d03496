package dictionary

import "strings"

// PartOfSpeech is a grammatical tag from the fixed vocabulary below.
type PartOfSpeech string

const (
	Ichidan      PartOfSpeech = "v1"
	Godan        PartOfSpeech = "v5"
	KuruVerb     PartOfSpeech = "vk"
	SuruVerb     PartOfSpeech = "vs"
	ZuruVerb     PartOfSpeech = "vz"
	IAdjective   PartOfSpeech = "adj-i"
	NaAdjective  PartOfSpeech = "adj-na"
	Noun         PartOfSpeech = "n"
	Verb         PartOfSpeech = "v"
	Adjective    PartOfSpeech = "adj"
	Adverb       PartOfSpeech = "adv"
	Expression   PartOfSpeech = "exp"
	Particle     PartOfSpeech = "prt"
	Numeric      PartOfSpeech = "num"
	Interjection PartOfSpeech = "int"
)

// posAliases maps source rule tokens (Yomitan rule identifiers and JMdict
// part-of-speech codes) onto the vocabulary.
var posAliases = map[string]PartOfSpeech{
	"v1":      Ichidan,
	"v1-s":    Ichidan,
	"v5":      Godan,
	"v5aru":   Godan,
	"v5b":     Godan,
	"v5g":     Godan,
	"v5k":     Godan,
	"v5k-s":   Godan,
	"v5m":     Godan,
	"v5n":     Godan,
	"v5r":     Godan,
	"v5r-i":   Godan,
	"v5s":     Godan,
	"v5t":     Godan,
	"v5u":     Godan,
	"v5u-s":   Godan,
	"vk":      KuruVerb,
	"vs":      SuruVerb,
	"vs-i":    SuruVerb,
	"vs-s":    SuruVerb,
	"vz":      ZuruVerb,
	"adj-i":   IAdjective,
	"adj-ix":  IAdjective,
	"adj-na":  NaAdjective,
	"n":       Noun,
	"noun":    Noun,
	"v":       Verb,
	"verb":    Verb,
	"adj":     Adjective,
	"adv":     Adverb,
	"exp":     Expression,
	"prt":     Particle,
	"num":     Numeric,
	"int":     Interjection,
	"intj":    Interjection,
	"adv-to":  Adverb,
	"n-adv":   Noun,
	"n-suf":   Noun,
	"n-pref":  Noun,
	"pn":      Noun,
	"adj-no":  NaAdjective,
	"adj-pn":  Adjective,
	"adj-t":   Adjective,
	"adj-f":   Adjective,
	"aux-adj": IAdjective,
}

// ParsePartOfSpeech maps a single source token onto the vocabulary.
func ParsePartOfSpeech(token string) (PartOfSpeech, bool) {
	p, ok := posAliases[strings.ToLower(strings.TrimSpace(token))]
	return p, ok
}

// ParseRules maps a space separated rules field onto the vocabulary,
// dropping unknown tokens and duplicates.
func ParseRules(rules string) []PartOfSpeech {
	var out []PartOfSpeech
	seen := make(map[PartOfSpeech]bool)
	for _, tok := range strings.Fields(rules) {
		p, ok := ParsePartOfSpeech(tok)
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
