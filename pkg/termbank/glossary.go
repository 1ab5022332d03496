package termbank

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/japaniel/tapdict/pkg/content"
)

// GlossaryKind tells which shape a record's glossary field had.
type GlossaryKind int

const (
	PlainList GlossaryKind = iota
	SingleString
	AnnotationTree
)

// Glossary is the decoded sixth field of a record. Tree is only set for
// AnnotationTree, where Plain holds the plain strings listed beside it.
type Glossary struct {
	Kind  GlossaryKind
	Plain []string
	Tree  content.Node
}

// ParseGlossary decodes a glossary field. Any object carrying a "type"
// marker makes the whole field an annotation tree; otherwise it is a list
// of strings (non-string items are dropped) or a single string.
func ParseGlossary(raw json.RawMessage) (Glossary, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Glossary{}, fmt.Errorf("%w: glossary: %v", ErrMalformedRecord, err)
	}
	switch x := v.(type) {
	case string:
		return Glossary{Kind: SingleString, Plain: []string{x}}, nil
	case map[string]any:
		if _, ok := x["type"]; !ok {
			return Glossary{}, fmt.Errorf("%w: glossary object without type", ErrMalformedRecord)
		}
		n, _ := content.FromValue(x)
		return Glossary{Kind: AnnotationTree, Tree: content.Node{Children: []content.Node{n}}}, nil
	case []any:
		g := Glossary{Kind: PlainList}
		if isTree(x) {
			g.Kind = AnnotationTree
			g.Tree, _ = content.FromValue(x)
		}
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				g.Plain = append(g.Plain, strings.TrimSpace(s))
			}
		}
		return g, nil
	default:
		return Glossary{}, fmt.Errorf("%w: glossary has type %T", ErrMalformedRecord, v)
	}
}

func isTree(items []any) bool {
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if _, ok := m["type"]; ok {
				return true
			}
		}
	}
	return false
}

// Glosses returns the plain strings followed by the extracted definitions
// of the tree, if any.
func (g Glossary) Glosses() []string {
	if g.Kind == AnnotationTree {
		return mergeGlosses(g.Plain, content.Extract(g.Tree).Definitions)
	}
	return g.Plain
}

// mergeGlosses appends the definitions not already among the plain
// glosses. Tree fallbacks repeat top-level strings.
func mergeGlosses(plain, defs []string) []string {
	if len(plain) == 0 {
		return defs
	}
	out := append([]string(nil), plain...)
	seen := make(map[string]bool, len(plain))
	for _, p := range plain {
		seen[p] = true
	}
	for _, d := range defs {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
