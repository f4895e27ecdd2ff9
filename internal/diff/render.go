package diff

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CSS classes used on rendered fragments
const (
	ClassAdded   = "added"
	ClassRemoved = "removed"
)

// RenderHTML renders segments as an HTML fragment. Added text is wrapped in
// <ins>, removed text in <del>, and unchanged text is emitted escaped.
func RenderHTML(segments []Segment) (string, error) {
	var buf bytes.Buffer

	for _, s := range segments {
		if err := html.Render(&buf, segmentNode(s)); err != nil {
			return "", fmt.Errorf("failed to render segment: %w", err)
		}
	}

	return buf.String(), nil
}

func segmentNode(s Segment) *html.Node {
	text := &html.Node{Type: html.TextNode, Data: s.Value}

	var el *html.Node
	switch s.Kind() {
	case KindAdded:
		el = &html.Node{
			Type:     html.ElementNode,
			Data:     "ins",
			DataAtom: atom.Ins,
			Attr:     []html.Attribute{{Key: "class", Val: ClassAdded}},
		}
	case KindRemoved:
		el = &html.Node{
			Type:     html.ElementNode,
			Data:     "del",
			DataAtom: atom.Del,
			Attr:     []html.Attribute{{Key: "class", Val: ClassRemoved}},
		}
	default:
		return text
	}

	el.AppendChild(text)
	return el
}
