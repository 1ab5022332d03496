package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/japaniel/tapdict/pkg/dictionary"
)

// ScannedWord is one distinct word of a scanned text. Context is the
// sentence it first appeared in.
type ScannedWord struct {
	Term    string            `json:"term"`
	Count   int               `json:"count"`
	Context string            `json:"context"`
	Entry   *dictionary.Entry `json:"entry,omitempty"`
}

// ScanResult lists the words of a text in order of first appearance.
type ScanResult struct {
	Words     []ScannedWord `json:"words"`
	Sentences int           `json:"sentences"`
	Found     int           `json:"found"`
	Unknown   int           `json:"unknown"`
}

// Scan splits text into sentences, segments them and resolves every
// distinct base form exactly.
func (e *Engine) Scan(ctx context.Context, text string, ids []string) (*ScanResult, error) {
	if e.analyzer == nil {
		return nil, ErrNoAnalyzer
	}
	sentences, err := e.analyzer.AnalyzeDocument(text)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	contexts := make(map[string]string)
	var order []string
	for _, s := range sentences {
		for _, w := range s.Words() {
			if counts[w] == 0 {
				order = append(order, w)
				contexts[w] = strings.TrimSpace(s.Text)
			}
			counts[w]++
		}
	}

	hits, err := e.LookupMany(ctx, order, ids)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{Words: make([]ScannedWord, 0, len(order)), Sentences: len(sentences)}
	for _, w := range order {
		sw := ScannedWord{Term: w, Count: counts[w], Context: contexts[w]}
		if entry, ok := hits[w]; ok {
			entry := entry
			sw.Entry = &entry
			res.Found++
		} else {
			res.Unknown++
		}
		res.Words = append(res.Words, sw)
	}
	return res, nil
}

// TopWords returns the words of res ordered by count, most frequent first.
func (r *ScanResult) TopWords(n int) []ScannedWord {
	words := append([]ScannedWord(nil), r.Words...)
	sort.SliceStable(words, func(i, j int) bool { return words[i].Count > words[j].Count })
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return words
}
