package body

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FromHTML builds a tree from an HTML fragment as produced by the markup
// renderer. `pre` elements become code blocks; comments are dropped.
func FromHTML(fragment string, host ChipHost, rootClasses ...string) (*Tree, error) {
	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return nil, fmt.Errorf("parsing body html: %w", err)
	}

	t := New(host, rootClasses...)
	for _, n := range nodes {
		t.importNode(t.root, n)
	}
	return t, nil
}

func (t *Tree) importNode(parent NodeID, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		t.AppendChild(parent, t.NewText(n.Data, 0))
	case html.ElementNode:
		kind := KindElement
		if n.DataAtom == atom.Pre {
			kind = KindCodeBlock
		}
		attrs := make([]Attr, 0, len(n.Attr))
		for _, a := range n.Attr {
			attrs = append(attrs, Attr{Key: a.Key, Val: a.Val})
		}
		id := t.NewElement(kind, n.Data, attrs...)
		t.AppendChild(parent, id)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			t.importNode(id, c)
		}
	}
}

// HTML renders the whole tree, root span included.
func (t *Tree) HTML() string {
	return t.RenderHTML(t.root)
}

// RenderHTML renders the subtree at id.
func (t *Tree) RenderHTML(id NodeID) string {
	n := t.exportNode(id)
	if n == nil {
		return ""
	}
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// InnerHTML renders the children of id without id itself.
func (t *Tree) InnerHTML(id NodeID) string {
	n := t.Node(id)
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range n.children {
		if hn := t.exportNode(c); hn != nil {
			if err := html.Render(&sb, hn); err != nil {
				return ""
			}
		}
	}
	return sb.String()
}

func (t *Tree) exportNode(id NodeID) *html.Node {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	if n.kind == KindText {
		return &html.Node{Type: html.TextNode, Data: n.text}
	}
	out := &html.Node{
		Type:     html.ElementNode,
		Data:     n.tag,
		DataAtom: atom.Lookup([]byte(n.tag)),
	}
	for _, a := range n.attrs {
		out.Attr = append(out.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	for _, c := range n.children {
		if hc := t.exportNode(c); hc != nil {
			out.AppendChild(hc)
		}
	}
	return out
}
