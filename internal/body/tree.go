// Package body holds the enriched representation of one message body: an
// arena of nodes addressed by stable ids, plus the chips and code-block
// state that hang off them.
package body

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Tree is the BodyTree for one (content, highlights, reply-strip) tuple.
// It is not safe for concurrent use; the owner drives every pass and every
// deferred job from one goroutine.
type Tree struct {
	id    string
	nodes []*Node
	root  NodeID

	chips     map[NodeID]ChipInstance
	chipOrder []NodeID
	host      ChipHost

	code map[NodeID]*CodeBlockState

	disposed  bool
	onDispose []func()
	mutations uint64
}

// New returns an empty tree whose root renders as a span of the given
// classes.
func New(host ChipHost, rootClasses ...string) *Tree {
	if host == nil {
		host = nopChipHost{}
	}
	t := &Tree{
		id:    uuid.NewString(),
		nodes: []*Node{nil},
		chips: make(map[NodeID]ChipInstance),
		code:  make(map[NodeID]*CodeBlockState),
		host:  host,
	}
	var attrs []Attr
	if len(rootClasses) > 0 {
		attrs = append(attrs, Attr{Key: "class", Val: strings.Join(rootClasses, " ")})
	}
	attrs = append(attrs, Attr{Key: "dir", Val: "auto"})
	t.root = t.alloc(&Node{kind: KindRoot, tag: "span", attrs: attrs})
	return t
}

func (t *Tree) ID() string        { return t.id }
func (t *Tree) Root() NodeID      { return t.root }
func (t *Tree) Disposed() bool    { return t.disposed }
func (t *Tree) Mutations() uint64 { return t.mutations }

// Node returns the live node for id, or nil when id was released.
func (t *Tree) Node(id NodeID) *Node {
	if id <= NoNode || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

func (t *Tree) alloc(n *Node) NodeID {
	n.id = NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	return n.id
}

// writable reports whether mutations are still allowed and counts one.
func (t *Tree) writable() bool {
	if t.disposed {
		return false
	}
	t.mutations++
	return true
}

// NewText allocates a detached text node.
func (t *Tree) NewText(text string, marks Mark) NodeID {
	if !t.writable() {
		return NoNode
	}
	return t.alloc(&Node{kind: KindText, text: text, marks: marks})
}

// NewElement allocates a detached element.
func (t *Tree) NewElement(kind Kind, tag string, attrs ...Attr) NodeID {
	if !t.writable() {
		return NoNode
	}
	return t.alloc(&Node{kind: kind, tag: tag, attrs: slices.Clone(attrs)})
}

// AppendChild attaches the detached node child as the last child of parent.
func (t *Tree) AppendChild(parent, child NodeID) bool {
	p, c := t.Node(parent), t.Node(child)
	if p == nil || c == nil || c.parent != NoNode || !t.writable() {
		return false
	}
	c.parent = parent
	p.children = append(p.children, child)
	return true
}

// InsertBefore attaches the detached node child in front of ref.
func (t *Tree) InsertBefore(ref, child NodeID) bool {
	r, c := t.Node(ref), t.Node(child)
	if r == nil || c == nil || c.parent != NoNode || r.parent == NoNode {
		return false
	}
	p := t.Node(r.parent)
	i := slices.Index(p.children, ref)
	if i < 0 || !t.writable() {
		return false
	}
	c.parent = p.id
	p.children = slices.Insert(p.children, i, child)
	return true
}

// ReplaceWith swaps id for the detached nodes repl and releases id and its
// subtree.
func (t *Tree) ReplaceWith(id NodeID, repl ...NodeID) bool {
	n := t.Node(id)
	if n == nil || n.parent == NoNode {
		return false
	}
	for _, r := range repl {
		if rn := t.Node(r); rn == nil || rn.parent != NoNode {
			return false
		}
	}
	p := t.Node(n.parent)
	i := slices.Index(p.children, id)
	if i < 0 || !t.writable() {
		return false
	}
	for _, r := range repl {
		t.nodes[r].parent = p.id
	}
	p.children = slices.Replace(p.children, i, i+1, repl...)
	n.parent = NoNode
	t.release(id)
	return true
}

// Wrap moves id into a new element that takes id's place and returns the
// wrapper.
func (t *Tree) Wrap(id NodeID, tag string, attrs ...Attr) NodeID {
	n := t.Node(id)
	if n == nil || n.parent == NoNode || t.disposed {
		return NoNode
	}
	p := t.Node(n.parent)
	i := slices.Index(p.children, id)
	if i < 0 {
		return NoNode
	}
	w := t.NewElement(KindElement, tag, attrs...)
	wrapper := t.nodes[w]
	wrapper.parent = p.id
	wrapper.children = []NodeID{id}
	p.children[i] = w
	n.parent = w
	return w
}

// Remove detaches id and releases its subtree.
func (t *Tree) Remove(id NodeID) bool {
	n := t.Node(id)
	if n == nil || n.parent == NoNode || !t.writable() {
		return false
	}
	p := t.Node(n.parent)
	p.children = slices.DeleteFunc(p.children, func(c NodeID) bool { return c == id })
	n.parent = NoNode
	t.release(id)
	return true
}

// release drops id and its descendants from the arena, unmounting chips
// and forgetting code-block state.
func (t *Tree) release(id NodeID) {
	n := t.Node(id)
	if n == nil {
		return
	}
	for _, c := range n.children {
		t.release(c)
	}
	if _, ok := t.chips[id]; ok {
		t.ReleaseChip(id)
	}
	delete(t.code, id)
	t.nodes[id] = nil
}

func (t *Tree) SetText(id NodeID, text string) bool {
	n := t.Node(id)
	if n == nil || n.kind != KindText || n.text == text || !t.writable() {
		return false
	}
	n.text = text
	return true
}

func (t *Tree) SetAttr(id NodeID, key, val string) bool {
	n := t.Node(id)
	if n == nil || n.kind == KindText {
		return false
	}
	for i, a := range n.attrs {
		if a.Key == key {
			if a.Val == val || !t.writable() {
				return false
			}
			n.attrs[i].Val = val
			return true
		}
	}
	if !t.writable() {
		return false
	}
	n.attrs = append(n.attrs, Attr{Key: key, Val: val})
	return true
}

func (t *Tree) AddClass(id NodeID, class string) bool {
	n := t.Node(id)
	if n == nil || n.HasClass(class) {
		return false
	}
	v, _ := n.Attr("class")
	return t.SetAttr(id, "class", strings.TrimSpace(v+" "+class))
}

func (t *Tree) RemoveClass(id NodeID, class string) bool {
	n := t.Node(id)
	if n == nil || !n.HasClass(class) {
		return false
	}
	v, _ := n.Attr("class")
	kept := slices.DeleteFunc(strings.Fields(v), func(c string) bool { return c == class })
	return t.SetAttr(id, "class", strings.Join(kept, " "))
}

// Mark sets m on id. It reports false when nothing changed.
func (t *Tree) Mark(id NodeID, m Mark) bool {
	n := t.Node(id)
	if n == nil || n.Has(m) || !t.writable() {
		return false
	}
	n.marks |= m
	return true
}

// Walk visits id and its descendants in document order over a snapshot,
// so fn may replace the node it is visiting. Returning false skips the
// node's children.
func (t *Tree) Walk(id NodeID, fn func(n *Node) bool) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range slices.Clone(n.children) {
		t.Walk(c, fn)
	}
}

// Find returns every node under id matching pred, in document order.
func (t *Tree) Find(id NodeID, pred func(n *Node) bool) []NodeID {
	var out []NodeID
	t.Walk(id, func(n *Node) bool {
		if pred(n) {
			out = append(out, n.id)
		}
		return true
	})
	return out
}

// Closest returns the nearest ancestor-or-self of id matching pred.
func (t *Tree) Closest(id NodeID, pred func(n *Node) bool) NodeID {
	for n := t.Node(id); n != nil; n = t.Node(n.parent) {
		if pred(n) {
			return n.id
		}
	}
	return NoNode
}

// TextContent concatenates the text under id.
func (t *Tree) TextContent(id NodeID) string {
	var sb strings.Builder
	t.Walk(id, func(n *Node) bool {
		if n.kind == KindText {
			sb.WriteString(n.text)
		}
		return true
	})
	return sb.String()
}

// OnDispose registers fn to run when the tree is disposed.
func (t *Tree) OnDispose(fn func()) {
	if t.disposed {
		fn()
		return
	}
	t.onDispose = append(t.onDispose, fn)
}

// Dispose releases every chip, runs dispose hooks and freezes the tree.
// Later mutations are ignored. Dispose is idempotent.
func (t *Tree) Dispose() {
	if t.disposed {
		return
	}
	for _, id := range slices.Clone(t.chipOrder) {
		t.ReleaseChip(id)
	}
	t.disposed = true
	hooks := t.onDispose
	t.onDispose = nil
	for _, fn := range hooks {
		fn()
	}
}
