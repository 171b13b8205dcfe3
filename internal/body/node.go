package body

import (
	"slices"
	"strings"
)

// NodeID is a stable handle to a node within one Tree. The zero value
// refers to no node.
type NodeID int32

const NoNode NodeID = 0

type Kind uint8

const (
	KindRoot Kind = iota
	KindText
	KindElement
	KindChip
	KindCodeBlock
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindText:
		return "text"
	case KindElement:
		return "element"
	case KindChip:
		return "chip"
	case KindCodeBlock:
		return "code-block"
	default:
		return "unknown"
	}
}

// Mark is a per-node idempotence marker. Each pass owns its marks and skips
// nodes that already carry them.
type Mark uint16

const (
	MarkChipsScanned Mark = 1 << iota
	MarkLinksScanned
	MarkSearchHighlighted
	MarkCodeWrapped
	MarkLineNumbers
	MarkHighlightQueued
	MarkHighlighted

	// MarkScanned is every text-scanning mark; nodes created by a pass
	// carry it so no later pass rescans them.
	MarkScanned = MarkChipsScanned | MarkLinksScanned | MarkSearchHighlighted

	// MarkLabel is for visible label text a pass creates, such as chip and
	// link text, which term highlighting still visits.
	MarkLabel = MarkChipsScanned | MarkLinksScanned
)

type Attr struct {
	Key string
	Val string
}

// Node is one entry of a Tree's arena. Nodes are read through their
// accessors and written only through Tree methods.
type Node struct {
	id       NodeID
	kind     Kind
	tag      string
	text     string
	attrs    []Attr
	parent   NodeID
	children []NodeID
	marks    Mark
}

func (n *Node) ID() NodeID     { return n.id }
func (n *Node) Kind() Kind     { return n.kind }
func (n *Node) Tag() string    { return n.tag }
func (n *Node) Text() string   { return n.text }
func (n *Node) Parent() NodeID { return n.parent }

func (n *Node) Children() []NodeID { return slices.Clone(n.children) }

func (n *Node) Has(m Mark) bool { return n.marks&m == m }

func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) Attrs() []Attr { return slices.Clone(n.attrs) }

func (n *Node) HasClass(class string) bool {
	v, _ := n.Attr("class")
	return slices.Contains(strings.Fields(v), class)
}

// IsElement reports whether the node renders as an element with the
// given tag. Chips and code blocks are elements too.
func (n *Node) IsElement(tag string) bool {
	return n.kind != KindText && n.tag == tag
}
