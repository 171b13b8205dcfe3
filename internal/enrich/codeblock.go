package enrich

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/config"
	"github.com/sst/chatbody/internal/pubsub"
)

const (
	ClassPreContainer   = "mx_EventTile_pre_container"
	ClassCollapsedBlock = "mx_EventTile_collapsedCodeBlock"
	ClassLineNumbers    = "mx_EventTile_lineNumbers"
	ClassButton         = "mx_EventTile_button"
	ClassCopyButton     = "mx_EventTile_copyButton"
	ClassCollapseButton = "mx_EventTile_collapseButton"
	ClassExpandButton   = "mx_EventTile_expandButton"
)

// processCodeBlocks wraps new code blocks, installs their controls and
// queues highlighting. It returns how many blocks it wrapped.
func (p *Pipeline) processCodeBlocks(tree *body.Tree, opts Options) int {
	wrapped := 0
	blocks := tree.Find(tree.Root(), func(n *body.Node) bool { return n.Kind() == body.KindCodeBlock })
	for _, pre := range blocks {
		if !tree.Node(pre).Has(body.MarkCodeWrapped) {
			p.wrapBlock(tree, pre, opts)
			wrapped++
		}
		if opts.Flags.ShowCodeLineNumbers && !tree.Node(pre).Has(body.MarkLineNumbers) {
			addLineNumbers(tree, pre)
		}
		p.scheduleHighlight(tree, pre, opts.Flags.AutoDetectLanguage)
	}
	return wrapped
}

func (p *Pipeline) wrapBlock(tree *body.Tree, pre body.NodeID, opts Options) {
	tree.Mark(pre, body.MarkCodeWrapped)
	container := tree.Wrap(pre, "div", body.Attr{Key: "class", Val: ClassPreContainer})
	code := codeNode(tree, pre)

	lines := lineCount(tree.TextContent(code))
	threshold := opts.Flags.CollapseThreshold
	if threshold <= 0 {
		threshold = config.DefaultCollapseThreshold
	}
	height, viewport := opts.Layout.BlockHeight(lines), opts.Layout.ViewportHeight()
	collapsible := viewport > 0 && height >= threshold*viewport
	collapsed := collapsible && !opts.Flags.ExpandCodeByDefault

	copyBtn := button(tree, ClassCopyButton, "Copy")
	tree.AppendChild(container, copyBtn)

	toggle := body.NoNode
	if collapsible {
		toggle = button(tree, toggleClass(collapsed), toggleLabel(collapsed))
		tree.AppendChild(container, toggle)
	}
	if collapsed {
		tree.AddClass(pre, ClassCollapsedBlock)
	}

	tree.UpdateCodeBlock(pre, func(st *body.CodeBlockState) {
		st.Container = container
		st.Code = code
		st.Copy = copyBtn
		st.Toggle = toggle
		st.Collapsible = collapsible
		st.Collapsed = collapsed
		st.Language = explicitLanguage(tree, code)
	})
}

func addLineNumbers(tree *body.Tree, pre body.NodeID) {
	tree.Mark(pre, body.MarkLineNumbers)
	code := codeNode(tree, pre)
	lines := lineCount(tree.TextContent(code))

	gutter := tree.NewElement(body.KindElement, "span", body.Attr{Key: "class", Val: ClassLineNumbers})
	for i := 1; i <= lines; i++ {
		n := tree.NewElement(body.KindElement, "span")
		tree.AppendChild(n, tree.NewText(strconv.Itoa(i), body.MarkScanned))
		tree.AppendChild(gutter, n)
	}
	// A bare pre holds the code itself, so its gutter sits beside it.
	tree.InsertBefore(code, gutter)
	tree.UpdateCodeBlock(pre, func(st *body.CodeBlockState) { st.HasLineNumbers = true })
}

func button(tree *body.Tree, class, label string) body.NodeID {
	return tree.NewElement(body.KindElement, "span",
		body.Attr{Key: "class", Val: ClassButton + " " + class},
		body.Attr{Key: "role", Val: "button"},
		body.Attr{Key: "aria-label", Val: label},
	)
}

func toggleClass(collapsed bool) string {
	if collapsed {
		return ClassExpandButton
	}
	return ClassCollapseButton
}

func toggleLabel(collapsed bool) string {
	if collapsed {
		return "Expand code"
	}
	return "Collapse code"
}

// codeNode returns the code element inside pre, or pre itself.
func codeNode(tree *body.Tree, pre body.NodeID) body.NodeID {
	for _, c := range tree.Node(pre).Children() {
		if tree.Node(c).IsElement("code") {
			return c
		}
	}
	return pre
}

func lineCount(text string) int {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return 1
	}
	return strings.Count(text, "\n") + 1
}

// Toggle flips the collapsed state of the code block pre. It reports false
// when the block has no toggle control.
func (p *Pipeline) Toggle(tree *body.Tree, pre body.NodeID) (collapsed bool, ok bool) {
	st, found := tree.CodeBlock(pre)
	if !found || !st.Collapsible || tree.Disposed() {
		return false, false
	}
	collapsed = !st.Collapsed
	tree.UpdateCodeBlock(pre, func(st *body.CodeBlockState) { st.Collapsed = collapsed })
	if collapsed {
		tree.AddClass(pre, ClassCollapsedBlock)
	} else {
		tree.RemoveClass(pre, ClassCollapsedBlock)
	}
	tree.SetAttr(st.Toggle, "class", ClassButton+" "+toggleClass(collapsed))
	tree.SetAttr(st.Toggle, "aria-label", toggleLabel(collapsed))

	p.Publish(EventContentHeightChanged, Notice{TreeID: tree.ID(), Node: pre, Collapsed: collapsed})
	return collapsed, true
}

// Copy puts the code of block pre on the clipboard and reports the outcome
// to the user. Failures are not returned as errors.
func (p *Pipeline) Copy(tree *body.Tree, pre body.NodeID) bool {
	st, found := tree.CodeBlock(pre)
	if !found {
		return false
	}
	err := p.clipboard.WriteAll(tree.TextContent(st.Code))
	ok := err == nil
	if ok {
		p.status.Info("Copied!")
	} else {
		slog.Warn("copy to clipboard failed", "tree", tree.ID(), "node", pre, "error", err)
		p.status.Error("Failed to copy")
	}
	p.Publish(EventCopyRequested, Notice{TreeID: tree.ID(), Node: pre, Success: ok})
	return ok
}

var _ pubsub.Publisher[Notice] = (*Pipeline)(nil)
