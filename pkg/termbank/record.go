// Package termbank reads Yomitan-style term banks: JSON arrays of
// [expression, reading, tags, rules, score, glossary, sequence, termTags]
// tuples, either as loose files or packed in a zip archive.
package termbank

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/japaniel/tapdict/pkg/content"
	"github.com/japaniel/tapdict/pkg/dictionary"
)

var (
	// ErrMalformedRecord marks a single record that cannot be converted.
	// Callers skip it and carry on.
	ErrMalformedRecord = errors.New("malformed term bank record")
	// ErrCorruptFile marks a file whose top-level structure is unreadable.
	ErrCorruptFile = errors.New("corrupt term bank file")
)

// minFields is the shortest accepted tuple; sequence and term tags are
// optional.
const minFields = 6

// tagWeights are added to an entry's frequency when the tag appears in
// either tag field.
var tagWeights = map[string]int{
	"popular": 40,
	"ichi1":   30,
	"news1":   25,
	"spec1":   20,
	"spec2":   20,
	"gai1":    15,
	"gai2":    15,
}

// maxExactFloat is the largest integer a float64 holds exactly.
const maxExactFloat = 1 << 53

var jlptPattern = regexp.MustCompile(`(?i)jlpt[-_ ]?n?([1-5])`)

// ConvertRecord turns one raw tuple into an entry of dictionaryID with the
// given id. Errors wrap ErrMalformedRecord.
func ConvertRecord(dictionaryID string, id int64, raw json.RawMessage) (dictionary.Entry, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return dictionary.Entry{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if len(fields) < minFields {
		return dictionary.Entry{}, fmt.Errorf("%w: %d fields, want at least %d", ErrMalformedRecord, len(fields), minFields)
	}

	expression, err := stringField(fields, 0, "expression")
	if err != nil {
		return dictionary.Entry{}, err
	}
	reading, err := stringField(fields, 1, "reading")
	if err != nil {
		return dictionary.Entry{}, err
	}
	tags, err := stringField(fields, 2, "tags")
	if err != nil {
		return dictionary.Entry{}, err
	}
	rules, err := stringField(fields, 3, "rules")
	if err != nil {
		return dictionary.Entry{}, err
	}
	score, err := numberField(fields, 4, "score")
	if err != nil {
		return dictionary.Entry{}, err
	}
	glossary, err := ParseGlossary(fields[5])
	if err != nil {
		return dictionary.Entry{}, err
	}
	var sequence float64
	if len(fields) > 6 {
		if sequence, err = numberField(fields, 6, "sequence"); err != nil {
			return dictionary.Entry{}, err
		}
	}
	var termTags string
	if len(fields) > 7 {
		if termTags, err = stringField(fields, 7, "termTags"); err != nil {
			return dictionary.Entry{}, err
		}
	}

	expression = dictionary.Normalize(expression)
	reading = dictionary.Normalize(reading)
	if reading == "" {
		reading = expression
	}
	if reading == "" {
		return dictionary.Entry{}, fmt.Errorf("%w: blank expression and reading", ErrMalformedRecord)
	}
	if expression == reading {
		expression = ""
	}

	allTags := append(strings.Fields(tags), strings.Fields(termTags)...)
	priorities, misc := splitTags(allTags)

	e := dictionary.Entry{
		ID:              id,
		DictionaryID:    dictionaryID,
		Expression:      expression,
		Reading:         reading,
		ReadingElements: []dictionary.Element{{Text: reading, Priorities: priorities}},
		Frequency:       Frequency(allTags, score),
		JLPTLevel:       JLPTLevel(allTags),
		IsCommon:        isCommon(allTags),
		Sequence:        int64(clampFloat(sequence, -maxExactFloat, maxExactFloat)),
	}
	if expression != "" {
		e.KanjiElements = []dictionary.Element{{Text: expression, Priorities: priorities}}
	}

	var sense dictionary.Sense
	if glossary.Kind == AnnotationTree {
		sense = content.Extract(glossary.Tree).Sense()
		sense.Glosses = mergeGlosses(glossary.Plain, sense.Glosses)
	} else {
		sense.Glosses = glossary.Plain
	}
	sense.PartsOfSpeech = dictionary.ParseRules(rules)
	sense.Misc = misc
	e.Senses = []dictionary.Sense{sense}

	if err := e.Validate(); err != nil {
		return dictionary.Entry{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return e, nil
}

// Frequency scores an entry from its tags and source score, clamped to
// [dictionary.MinFrequency, dictionary.MaxFrequency]. A lower score means
// a more common word and earns up to 20 points.
func Frequency(tags []string, score float64) int {
	total := 0
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.ToLower(t)
		if w, ok := tagWeights[t]; ok && !seen[t] {
			seen[t] = true
			total += w
		}
	}
	bonus := 20 - int(clampFloat(score, -1000, 1000))/5
	if bonus < 0 {
		bonus = 0
	}
	if bonus > 20 {
		bonus = 20
	}
	return dictionary.ClampFrequency(total + bonus)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// JLPTLevel returns "N1".."N5" from the first tag naming a level.
func JLPTLevel(tags []string) string {
	for _, t := range tags {
		if m := jlptPattern.FindStringSubmatch(t); m != nil {
			return "N" + m[1]
		}
	}
	return ""
}

func isCommon(tags []string) bool {
	for _, t := range tags {
		if _, ok := tagWeights[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

// splitTags separates priority tags from free-form ones.
func splitTags(tags []string) (priorities, misc []string) {
	seen := make(map[string]bool)
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		lower := strings.ToLower(t)
		switch {
		case lower == "popular":
		case tagWeights[lower] > 0:
			priorities = append(priorities, t)
		case jlptPattern.MatchString(t):
		default:
			misc = append(misc, t)
		}
	}
	return priorities, misc
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(fields []json.RawMessage, i int, name string) (string, error) {
	if isNull(fields[i]) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(fields[i], &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedRecord, name)
	}
	return s, nil
}

func numberField(fields []json.RawMessage, i int, name string) (float64, error) {
	if isNull(fields[i]) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(fields[i], &f); err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", ErrMalformedRecord, name)
	}
	return f, nil
}
