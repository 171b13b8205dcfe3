package body

import "slices"

// NewChip allocates a detached chip node labelled label and mounts its
// instance.
func (t *Tree) NewChip(kind ChipKind, identifier, label, href string) NodeID {
	id := t.NewElement(KindChip, "span",
		Attr{Key: "class", Val: kind.className()},
		Attr{Key: "data-mx-chip", Val: string(kind)},
		Attr{Key: "data-mx-identifier", Val: identifier},
	)
	if id == NoNode {
		return NoNode
	}
	t.nodes[id].marks = MarkScanned
	t.AppendChild(id, t.NewText(label, MarkLabel))

	chip := ChipInstance{Node: id, Kind: kind, Identifier: identifier, Label: label, Href: href}
	t.chips[id] = chip
	t.chipOrder = append(t.chipOrder, id)
	t.host.MountChip(t.id, chip)
	return id
}

// ReleaseChip unmounts the chip at id and drops it from the arena's chip
// set. The node itself stays in place.
func (t *Tree) ReleaseChip(id NodeID) bool {
	chip, ok := t.chips[id]
	if !ok {
		return false
	}
	delete(t.chips, id)
	t.chipOrder = slices.DeleteFunc(t.chipOrder, func(c NodeID) bool { return c == id })
	t.host.UnmountChip(t.id, chip)
	return true
}

// Chips returns the live chip instances in creation order.
func (t *Tree) Chips() []ChipInstance {
	out := make([]ChipInstance, 0, len(t.chipOrder))
	for _, id := range t.chipOrder {
		out = append(out, t.chips[id])
	}
	return out
}

func (t *Tree) ChipCount() int { return len(t.chipOrder) }

// CodeBlock returns a copy of the state recorded for the code block id.
func (t *Tree) CodeBlock(id NodeID) (CodeBlockState, bool) {
	st, ok := t.code[id]
	if !ok {
		return CodeBlockState{}, false
	}
	return *st, true
}

// UpdateCodeBlock applies fn to the state of code block id, creating it on
// first use. It does nothing on a disposed tree.
func (t *Tree) UpdateCodeBlock(id NodeID, fn func(st *CodeBlockState)) bool {
	n := t.Node(id)
	if n == nil || n.kind != KindCodeBlock || !t.writable() {
		return false
	}
	st, ok := t.code[id]
	if !ok {
		st = &CodeBlockState{}
		t.code[id] = st
	}
	fn(st)
	return true
}

// CodeBlocks lists code blocks that have state, in document order.
func (t *Tree) CodeBlocks() []NodeID {
	return t.Find(t.root, func(n *Node) bool {
		_, ok := t.code[n.id]
		return ok
	})
}
