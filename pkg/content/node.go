package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// MaxDepth bounds how deep a tree is decoded and walked. Real dictionaries
// stay well under ten levels.
const MaxDepth = 32

// Node is one element of a structured-content tree. A text leaf has only
// Text set; every other node is an element with optional attributes and
// children.
type Node struct {
	Text     string
	Tag      string
	Type     string
	Lang     string
	Href     string
	Data     map[string]string
	Children []Node
}

// IsText reports whether n is a bare text leaf.
func (n Node) IsText() bool {
	return n.Tag == "" && n.Type == "" && len(n.Children) == 0 && n.Data == nil && n.Text != ""
}

// Kind returns the content kind declared on n, or KindNone.
func (n Node) Kind() Kind {
	if n.Data == nil {
		return KindNone
	}
	return ParseKind(n.Data["content"])
}

var blockTags = map[string]bool{
	"div": true, "li": true, "ul": true, "ol": true, "p": true,
	"table": true, "tr": true, "td": true, "th": true, "thead": true, "tbody": true,
	"details": true, "summary": true,
}

func (n Node) isBlock() bool { return blockTags[n.Tag] }

// hasBlockDescendant reports whether any node below n is a block element.
func (n Node) hasBlockDescendant() bool {
	for _, c := range n.Children {
		if c.isBlock() || c.hasBlockDescendant() {
			return true
		}
	}
	return false
}

// Flatten returns the visible text of n with whitespace collapsed. Ruby
// annotations (rt, rp) are dropped so furigana does not leak into the text.
func (n Node) Flatten() string {
	var b strings.Builder
	n.flatten(&b, 0)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (n Node) flatten(b *strings.Builder, depth int) {
	if depth > MaxDepth {
		return
	}
	switch n.Tag {
	case "rt", "rp":
		return
	case "br":
		b.WriteByte(' ')
		return
	}
	b.WriteString(n.Text)
	for _, c := range n.Children {
		if c.isBlock() {
			b.WriteByte(' ')
		}
		c.flatten(b, depth+1)
	}
}

// firstText returns the first non-blank text leaf in depth-first order.
func (n Node) firstText(depth int) string {
	if depth > MaxDepth {
		return ""
	}
	if t := strings.TrimSpace(n.Text); t != "" {
		return t
	}
	for _, c := range n.Children {
		if c.Tag == "rt" || c.Tag == "rp" {
			continue
		}
		if t := c.firstText(depth + 1); t != "" {
			return t
		}
	}
	return ""
}

// ParseJSON decodes raw JSON into a tree. Malformed nodes are skipped with
// a warning; only invalid JSON is an error.
func ParseJSON(raw []byte) (Node, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Node{}, fmt.Errorf("content: %w", err)
	}
	n, _ := FromValue(v)
	return n, nil
}

// FromValue converts a value produced by encoding/json into a tree. The
// boolean is false when v itself is malformed; malformed descendants are
// dropped.
func FromValue(v any) (Node, bool) {
	return fromValue(v, 0)
}

func fromValue(v any, depth int) (Node, bool) {
	if depth > MaxDepth {
		log.Warn().Int("depth", depth).Msg("structured content exceeds depth limit, subtree skipped")
		return Node{}, false
	}
	switch x := v.(type) {
	case string:
		return Node{Text: x}, true
	case []any:
		var n Node
		for _, item := range x {
			if c, ok := fromValue(item, depth+1); ok {
				n.Children = append(n.Children, c)
			}
		}
		return n, true
	case map[string]any:
		return fromObject(x, depth)
	default:
		log.Warn().Str("value", fmt.Sprintf("%T", v)).Msg("malformed structured content node skipped")
		return Node{}, false
	}
}

func fromObject(m map[string]any, depth int) (Node, bool) {
	var n Node
	n.Tag = stringField(m, "tag")
	n.Type = stringField(m, "type")
	n.Lang = stringField(m, "lang")
	n.Href = stringField(m, "href")
	if n.Type == "text" {
		n.Text = stringField(m, "text")
	}
	if d, ok := m["data"].(map[string]any); ok {
		n.Data = make(map[string]string, len(d))
		for k, v := range d {
			if s, ok := v.(string); ok {
				n.Data[k] = s
			}
		}
	}
	if c, ok := m["content"]; ok && c != nil {
		child, ok := fromValue(c, depth+1)
		if ok {
			// A list payload becomes the children directly.
			if _, isList := c.([]any); isList {
				n.Children = child.Children
			} else {
				n.Children = []Node{child}
			}
		}
	}
	return n, true
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		log.Warn().Str("field", key).Msg("structured content attribute has wrong type, ignored")
		return ""
	}
	return s
}
