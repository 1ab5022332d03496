package dictionary

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MinFrequency and MaxFrequency bound Entry.Frequency.
	MinFrequency = 0
	MaxFrequency = 100
)

var (
	// ErrInvalidEntry is returned when an entry violates the data model.
	ErrInvalidEntry = errors.New("invalid dictionary entry")
	// ErrUnknownDictionary is returned for operations on a dictionary id with no rows.
	ErrUnknownDictionary = errors.New("unknown dictionary")
)

// Element is an alternate written or spoken form of an entry.
type Element struct {
	Text       string   `json:"text"`
	Priorities []string `json:"priorities,omitempty"`
}

// Example is a sentence in the entry's language paired with its translation.
type Example struct {
	Source      string `json:"source"`
	Translation string `json:"translation"`
}

// WordReference points at a related word. An empty Href means the
// reference is display only.
type WordReference struct {
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// Navigable reports whether the reference can be followed with a lookup.
func (r WordReference) Navigable() bool { return strings.TrimSpace(r.Href) != "" }

// Sense is one meaning of an entry.
type Sense struct {
	Glosses         []string        `json:"glosses"`
	PartsOfSpeech   []PartOfSpeech  `json:"partsOfSpeech,omitempty"`
	Misc            []string        `json:"misc,omitempty"`
	Examples        []Example       `json:"examples,omitempty"`
	Notes           []string        `json:"notes,omitempty"`
	References      []WordReference `json:"references,omitempty"`
	Antonyms        []WordReference `json:"antonyms,omitempty"`
	InfoGlossary    []string        `json:"infoGlossary,omitempty"`
	SourceLanguages []string        `json:"sourceLanguages,omitempty"`
}

// Entry is the canonical dictionary record. Entries are immutable once
// imported; they disappear only when their whole dictionary is deleted.
type Entry struct {
	ID           int64  `json:"id"`
	DictionaryID string `json:"dictionaryId"`
	// Expression is the written form. Empty when the entry has no written
	// form distinct from its reading.
	Expression      string    `json:"expression,omitempty"`
	Reading         string    `json:"reading"`
	KanjiElements   []Element `json:"kanjiElements,omitempty"`
	ReadingElements []Element `json:"readingElements"`
	Senses          []Sense   `json:"senses"`
	Frequency       int       `json:"frequency"`
	JLPTLevel       string    `json:"jlptLevel,omitempty"`
	IsCommon        bool      `json:"isCommon"`
	Sequence        int64     `json:"sequence,omitempty"`
}

// HasExpression reports whether the entry carries a distinct written form.
func (e *Entry) HasExpression() bool { return e.Expression != "" }

// Headword returns the written form if present, otherwise the reading.
func (e *Entry) Headword() string {
	if e.HasExpression() {
		return e.Expression
	}
	return e.Reading
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() Entry {
	out := *e
	out.KanjiElements = cloneElements(e.KanjiElements)
	out.ReadingElements = cloneElements(e.ReadingElements)
	if e.Senses != nil {
		out.Senses = make([]Sense, len(e.Senses))
		for i, s := range e.Senses {
			out.Senses[i] = Sense{
				Glosses:         cloneSlice(s.Glosses),
				PartsOfSpeech:   cloneSlice(s.PartsOfSpeech),
				Misc:            cloneSlice(s.Misc),
				Examples:        cloneSlice(s.Examples),
				Notes:           cloneSlice(s.Notes),
				References:      cloneSlice(s.References),
				Antonyms:        cloneSlice(s.Antonyms),
				InfoGlossary:    cloneSlice(s.InfoGlossary),
				SourceLanguages: cloneSlice(s.SourceLanguages),
			}
		}
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T{}, s...)
}

func cloneElements(els []Element) []Element {
	if els == nil {
		return nil
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = Element{Text: el.Text, Priorities: cloneSlice(el.Priorities)}
	}
	return out
}

// Glosses flattens the glosses of all senses in order.
func (e *Entry) Glosses() []string {
	var out []string
	for _, s := range e.Senses {
		out = append(out, s.Glosses...)
	}
	return out
}

// PartsOfSpeech returns the distinct parts of speech across all senses.
func (e *Entry) PartsOfSpeech() []PartOfSpeech {
	seen := make(map[PartOfSpeech]bool)
	var out []PartOfSpeech
	for _, s := range e.Senses {
		for _, p := range s.PartsOfSpeech {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Accepts reports whether a term derived with any of the grammatical tags
// can resolve to this entry. No tags means unconstrained, and entries
// without part-of-speech data accept everything.
func (e *Entry) Accepts(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	pos := e.PartsOfSpeech()
	if len(pos) == 0 {
		return true
	}
	for _, p := range pos {
		for _, t := range tags {
			if string(p) == t {
				return true
			}
		}
	}
	return false
}

// Validate checks the entry invariants and clamps Frequency into range.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Reading) == "" {
		return fmt.Errorf("%w: blank reading", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.DictionaryID) == "" {
		return fmt.Errorf("%w: blank dictionary id", ErrInvalidEntry)
	}
	for _, s := range e.Senses {
		for _, ex := range s.Examples {
			if strings.TrimSpace(ex.Source) == "" || strings.TrimSpace(ex.Translation) == "" {
				return fmt.Errorf("%w: incomplete example pair", ErrInvalidEntry)
			}
		}
	}
	e.Frequency = ClampFrequency(e.Frequency)
	return nil
}

// ClampFrequency forces v into [MinFrequency, MaxFrequency].
func ClampFrequency(v int) int {
	if v < MinFrequency {
		return MinFrequency
	}
	if v > MaxFrequency {
		return MaxFrequency
	}
	return v
}
