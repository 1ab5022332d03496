package dictionary

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// Normalize folds width variants (fullwidth ASCII, halfwidth katakana),
// composes to NFC and trims surrounding whitespace. Lookup keys and stored
// expressions/readings both go through it so they compare byte for byte.
func Normalize(s string) string {
	t := transform.Chain(width.Fold, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}
