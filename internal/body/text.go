package body

// Segment is a byte range [Start,End) within a text node.
type Segment struct {
	Start int
	End   int
}

// SplitText replaces the text node id with its text cut around segs. Each
// segment becomes the node build returns for it, or stays text when build
// returns NoNode. The surrounding text nodes inherit id's marks plus marks.
// Segments must be sorted and non-overlapping.
func (t *Tree) SplitText(id NodeID, segs []Segment, marks Mark, build func(i int, text string) NodeID) bool {
	n := t.Node(id)
	if n == nil || n.kind != KindText || len(segs) == 0 || t.disposed {
		return false
	}
	text, inherited := n.text, n.marks|marks
	last := 0
	for _, s := range segs {
		if s.Start < last || s.End > len(text) || s.Start >= s.End {
			return false
		}
		last = s.End
	}

	var parts []NodeID
	plain := func(s string) {
		if s != "" {
			parts = append(parts, t.NewText(s, inherited))
		}
	}
	last = 0
	for i, s := range segs {
		plain(text[last:s.Start])
		if built := build(i, text[s.Start:s.End]); built != NoNode {
			parts = append(parts, built)
		} else {
			plain(text[s.Start:s.End])
		}
		last = s.End
	}
	plain(text[last:])
	return t.ReplaceWith(id, parts...)
}

// InsideAny reports whether id or one of its ancestors is an element with
// one of tags or a chip.
func (t *Tree) InsideAny(id NodeID, tags ...string) bool {
	return t.Closest(id, func(n *Node) bool {
		if n.kind == KindChip {
			return true
		}
		for _, tag := range tags {
			if n.IsElement(tag) {
				return true
			}
		}
		return false
	}) != NoNode
}
